// Package sentryhelper provides utilities for Sentry transaction and scope management.
// Each playback request gets its own cloned hub so breadcrumbs and tags never
// leak between requests.
package sentryhelper

import (
	"context"
	"fmt"

	sentry "github.com/getsentry/sentry-go"
)

// contextKey is used to store the cloned hub in context
type contextKey string

const hubContextKey contextKey = "sentry_hub"

// StartRequestTransaction creates a new transaction with a cloned hub for one
// playback request. kind is "track", "playlist" or "code"; key is the human
// input that triggered it.
func StartRequestTransaction(ctx context.Context, kind string, key string, requestID string) (context.Context, *sentry.Span) {
	hub := sentry.CurrentHub().Clone()
	ctx = context.WithValue(ctx, hubContextKey, hub)

	transaction := sentry.StartTransaction(ctx, fmt.Sprintf("jukebox.play.%s", kind),
		sentry.WithOpName("jukebox.play"),
		sentry.WithTransactionSource(sentry.SourceTask),
	)
	transaction.SetTag("kind", kind)
	transaction.SetTag("key", key)
	transaction.SetTag("request_id", requestID)

	hub.Scope().SetSpan(transaction)

	return transaction.Context(), transaction
}

// HubFromContext retrieves the cloned hub from context.
// Falls back to CurrentHub if no cloned hub is found.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if hub, ok := ctx.Value(hubContextKey).(*sentry.Hub); ok && hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// AddBreadcrumb adds a breadcrumb to the hub in context.
func AddBreadcrumb(ctx context.Context, category string, message string) {
	HubFromContext(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    sentry.LevelInfo,
	}, nil)
}

// CaptureException captures an exception on the hub in context.
func CaptureException(ctx context.Context, err error) *sentry.EventID {
	return HubFromContext(ctx).CaptureException(err)
}
