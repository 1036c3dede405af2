package dispatch

import (
	"context"
	"log/slog"
)

// LogDispatcher writes sends to the structured log instead of delivering
// them. Used in development and tests.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, message Message) error {
	d.logger.InfoContext(ctx, "Dispatching message",
		"customer_id", message.CustomerID,
		"channel", message.Channel,
		"subject", message.Subject,
		"content", message.Content,
	)

	return nil
}
