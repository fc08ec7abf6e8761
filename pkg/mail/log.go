package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes the invitation to the log instead of delivering it.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a development sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) (Result, error) {
	if err := ctx.Err(); err != nil {
		return failed(err.Error()), nil
	}
	s.logger.Sugar().Infow("report invitation", "to", msg.To, "name", msg.StudentName, "url", msg.ReportURL)
	return Result{Success: true, Detail: "logged"}, nil
}
