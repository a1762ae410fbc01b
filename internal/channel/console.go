package channel

import (
	"context"

	"github.com/Klinik-Sehat/service-appointment/internal/domain/notification"
	"go.uber.org/zap"
)

// ConsoleChannel logs messages instead of delivering them. Used in
// development and anywhere no gateway is configured.
type ConsoleChannel struct {
	logger *zap.Logger
}

// NewConsoleChannel creates a ConsoleChannel.
func NewConsoleChannel(logger *zap.Logger) *ConsoleChannel {
	return &ConsoleChannel{logger: logger}
}

// Name identifies the channel in notification log entries.
func (c *ConsoleChannel) Name() string { return "console" }

// Send logs the message and reports success.
func (c *ConsoleChannel) Send(_ context.Context, recipient, body string) (notification.SendReceipt, error) {
	c.logger.Info("console notification",
		zap.String("recipient", recipient),
		zap.String("body", body),
	)
	return notification.SendReceipt{StatusCode: 200, Body: "logged"}, nil
}
