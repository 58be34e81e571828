package email

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes the email to the log instead of delivering it.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, email Email) Result {
	s.logger.Info("email (log provider)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Body),
	)
	return ok("email logged")
}
