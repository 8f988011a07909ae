// Package notify delivers best-effort user notifications. The only
// implementation today writes structured log lines; swapping in a real
// mail sender only requires another implementation of the same method set.
package notify

import (
	"context"

	"github.com/jx-dohwan/devlog/internal/obs"
)

// LogSender records notifications as log events instead of delivering them
// anywhere. Useful for development and as the default wiring.
type LogSender struct{}

// NewLogSender returns a sender that logs instead of sending.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendWelcome announces a freshly registered account.
func (s *LogSender) SendWelcome(ctx context.Context, email, nickname string) error {
	obs.Info("welcome notification", map[string]any{
		"email":    email,
		"nickname": nickname,
	})
	return nil
}
