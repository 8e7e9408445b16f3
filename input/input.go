// Package input holds the front ends that turn keyboard lines and tag
// reader codes into playback actions.
package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"jukebox/controller"
	"jukebox/sonos"
	"jukebox/spotify"
)

type Player interface {
	Play(ctx context.Context, action controller.Action) error
}

// maxLineLength bounds a single input line. Longer lines are skipped.
const maxLineLength = 64 * 1024

var errLineTooLong = errors.New("line too long")

// readLines calls handle for every non-blank trimmed line until EOF or until
// ctx is done. before, when set, runs ahead of each read. Reading happens
// on its own goroutine so a blocked read does not hold up cancellation.
func readLines(ctx context.Context, in io.Reader, logger *log.Entry, before func(), handle func(line string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		br := bufio.NewReader(in)
		for {
			line, err := readLine(br)
			if errors.Is(err, errLineTooLong) {
				logger.Warnf("skipping input line longer than %d bytes", maxLineLength)
				continue
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if before != nil {
			before()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			handle(line)
		}
	}
}

// readLine returns the next line without its terminator. A line over
// maxLineLength is read to its end and reported as errLineTooLong.
func readLine(br *bufio.Reader) (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return "", err
		}
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > maxLineLength {
				tooLong = true
				line = nil
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errLineTooLong
	}
	return string(line), nil
}

// dispatch plays action and logs the outcome. Failures never end the loop:
// the next line gets a fresh attempt.
func dispatch(ctx context.Context, player Player, logger *log.Entry, action controller.Action) {
	err := player.Play(ctx, action)
	if err == nil {
		return
	}

	var protoErr *sonos.ProtocolError
	switch {
	case errors.Is(err, spotify.ErrNotFound):
		logger.Warnf("not found: %s", action)
	case errors.Is(err, sonos.ErrSpeakerNotFound):
		logger.WithError(err).Error("speaker is not reachable")
	case errors.As(err, &protoErr):
		logger.WithError(err).WithField("enqueued", protoErr.Enqueued).Error("speaker rejected the queue")
	default:
		logger.WithError(err).Errorf("failed to play %s", action)
	}
}
