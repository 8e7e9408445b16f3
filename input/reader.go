package input

import (
	"context"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"jukebox/controller"
)

// Reader dispatches codes from a tag reader, one per line. The reader
// helper writes to stdin or to a FIFO.
type Reader struct {
	in     io.Reader
	codes  *CodeTable
	player Player
	logger *log.Entry
}

func NewReader(in io.Reader, codes *CodeTable, player Player, logger *log.Entry) *Reader {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if codes == nil {
		codes = NewCodeTable(nil)
	}
	return &Reader{
		in:     in,
		codes:  codes,
		player: player,
		logger: logger.WithField("module", "reader"),
	}
}

// Run handles codes until the input is closed.
func (r *Reader) Run(ctx context.Context) error {
	r.logger.Debugf("known codes: %s", strings.Join(r.codes.Codes(), ", "))
	return readLines(ctx, r.in, r.logger, nil, func(code string) {
		action := r.codes.Lookup(code)
		if action.Type == controller.ActionUnknown {
			r.logger.Warnf("unknown code %s", code)
			return
		}
		r.logger.Debugf("code %s: %s", code, action)
		dispatch(ctx, r.player, r.logger, action)
	})
}

// OpenSource opens the code stream: stdin for "" or "-", else the named
// file or FIFO.
func OpenSource(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
