package input

import (
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"jukebox/controller"
	"jukebox/spotify"
)

const consolePrompt = "Title: "

// Console reads titles typed at a prompt. A line of the form
// "playlist <owner> <id>" plays a playlist instead.
type Console struct {
	in     io.Reader
	out    io.Writer
	player Player
	logger *log.Entry
}

func NewConsole(in io.Reader, out io.Writer, player Player, logger *log.Entry) *Console {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Console{
		in:     in,
		out:    out,
		player: player,
		logger: logger.WithField("module", "console"),
	}
}

// Run prompts until EOF.
func (c *Console) Run(ctx context.Context) error {
	prompt := func() { fmt.Fprint(c.out, consolePrompt) }
	err := readLines(ctx, c.in, c.logger, prompt, func(line string) {
		dispatch(ctx, c.player, c.logger, ParseConsoleLine(line))
	})
	fmt.Fprintln(c.out)
	return err
}

// ParseConsoleLine turns one typed line into an action. A pasted playlist
// link plays that playlist whoever owns it; track links go through as
// titles and are looked up directly by the catalog.
func ParseConsoleLine(line string) controller.Action {
	if spotify.IsLink(line) {
		if request, err := spotify.ParseSpotifyURL(line); err == nil && request.PlaylistID != "" {
			return controller.PlaylistAction("", request.PlaylistID)
		}
	}
	fields := strings.Fields(line)
	if len(fields) == 3 && strings.EqualFold(fields[0], "playlist") {
		return controller.PlaylistAction(fields[1], fields[2])
	}
	return controller.TrackAction(strings.TrimSpace(line))
}
