package jobs

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/dealqueue/core/logger"
)

// PushMessage is a mobile push notification.
type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]any
}

// PushSender delivers push notifications.
type PushSender interface {
	SendPush(ctx context.Context, msg PushMessage) error
}

// LogPushSender writes push messages to the log instead of a push gateway.
type LogPushSender struct {
	logger *slog.Logger
}

// NewLogPushSender creates a push sender that logs at info level.
func NewLogPushSender(log *slog.Logger) *LogPushSender {
	if log == nil {
		log = logger.Discard()
	}
	return &LogPushSender{logger: log}
}

// SendPush implements PushSender.
func (s *LogPushSender) SendPush(ctx context.Context, msg PushMessage) error {
	s.logger.InfoContext(ctx, "push notification",
		logger.Component("push"),
		logger.Count("tokens", len(msg.Tokens)),
		slog.String("title", msg.Title))
	return nil
}
