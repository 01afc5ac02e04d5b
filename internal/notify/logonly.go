package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher records notifications instead of sending them. Used when no
// FCM credentials are configured.
type LogDispatcher struct {
	log *zerolog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: logger}
}

// Send logs the would-be notification.
func (d *LogDispatcher) Send(_ context.Context, tokens []string, title, body string) error {
	d.log.Info().
		Int("tokens", len(tokens)).
		Str("title", title).
		Str("body", body).
		Msg("notification dispatch skipped (no FCM credentials)")
	return nil
}
