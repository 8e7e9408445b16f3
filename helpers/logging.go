package helpers

import (
	"io"
	"os"
	"strings"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// ConfigureLogging sets up the standard logger every component derives its
// entry from. An empty or unparseable level falls back to info.
func ConfigureLogging(logger *log.Logger, level string, out io.Writer) {
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil || level == "" {
		parsed = log.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetOutput(out)
	logger.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"module", "request", "speaker"},
		TimestampFormat: time.TimeOnly,
		NoColors:        !isTerminal(out),
	})
	if err != nil && level != "" {
		logger.Warnf("unknown LOG_LEVEL %q, using info", level)
	}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
