package helpers

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// Timed runs op between a "starting" and a "done" log line. The done line is
// only written when op returns a nil error; errors come back untouched.
func Timed[T any](logger *log.Entry, description string, op func() (T, error)) (T, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	start := time.Now()
	logger.Infof("%s...", description)

	result, err := op()
	if err != nil {
		return result, err
	}

	elapsed := time.Since(start)
	logger.WithField("elapsed", elapsed).Infof("%s done, took %s", description, elapsed.Round(time.Millisecond))
	return result, nil
}

// TimedErr is Timed for operations without a result.
func TimedErr(logger *log.Entry, description string, op func() error) error {
	_, err := Timed(logger, description, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
