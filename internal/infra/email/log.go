package email

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes would-be deliveries to the log instead of a relay.
// Used in development and when SMTP is not configured.
type LogSender struct {
	Log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{Log: log}
}

func (s *LogSender) Send(_ context.Context, to, subject, templateRef string, data map[string]any) error {
	s.Log.Info("email delivery skipped, no relay configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("template", templateRef),
		zap.Any("data", data))
	return nil
}
