package sentry

import (
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"jukebox/config"
)

// Init configures the global hub. An empty DSN leaves Sentry disabled, which
// turns every capture into a no-op.
func Init(cfg config.SentryConfig) error {
	if !cfg.IsEnabled() {
		log.Debug("sentry disabled, no SENTRY_DSN set")
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Release:          cfg.Release,
		TracesSampleRate: 1.0,
	})
}

// Flush waits for buffered events before the process exits.
func Flush() {
	sentry.Flush(2 * time.Second)
}

func GetSentryGin() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// ReportFatal captures err and flushes, for errors that end the process.
func ReportFatal(err error) {
	sentry.CaptureException(err)
	Flush()
}
