package helpers

import (
	"errors"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestTimedSuccess(t *testing.T) {
	logger, hook := test.NewNullLogger()

	got, err := Timed(log.NewEntry(logger), "Finding speaker", func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Timed() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Timed() = %d, want 42", got)
	}

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected start and done lines, got %d entries", len(entries))
	}
	if entries[0].Message != "Finding speaker..." {
		t.Errorf("start line = %q", entries[0].Message)
	}
	if !strings.HasPrefix(entries[1].Message, "Finding speaker done, took ") {
		t.Errorf("done line = %q", entries[1].Message)
	}
	if _, ok := entries[1].Data["elapsed"]; !ok {
		t.Error("done line should carry the elapsed field")
	}
}

func TestTimedErrorPropagates(t *testing.T) {
	logger, hook := test.NewNullLogger()
	boom := errors.New("boom")

	got, err := Timed(log.NewEntry(logger), "Authenticating", func() (string, error) {
		return "partial", boom
	})
	if err != boom {
		t.Errorf("Timed() error = %v, want the original error", err)
	}
	if got != "partial" {
		t.Errorf("Timed() result = %q, want it passed through", got)
	}
	if len(hook.AllEntries()) != 1 {
		t.Errorf("expected only the start line on failure, got %d entries", len(hook.AllEntries()))
	}
}

func TestTimedErr(t *testing.T) {
	logger, hook := test.NewNullLogger()
	calls := 0

	err := TimedErr(log.NewEntry(logger), "Clearing queue", func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("TimedErr() = %v after %d calls", err, calls)
	}
	if len(hook.AllEntries()) != 2 {
		t.Errorf("expected 2 entries, got %d", len(hook.AllEntries()))
	}
}
