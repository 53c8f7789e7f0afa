// Package email sends account emails such as registration confirmations.
package email

//go:generate mockgen -source=sender.go -destination=mocks/mock_sender.go -package=mocks

import (
	"context"

	"github.com/charmbracelet/log"
)

// Sender delivers an HTML email message.
type Sender interface {
	SendEmail(ctx context.Context, email, subject, htmlMessage string) error
}

// LogSender writes messages to the application log instead of delivering
// them. It is the default sender for development deployments.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendEmail(_ context.Context, email, subject, htmlMessage string) error {
	log.Info("Sending email", "to", email, "subject", subject)
	log.Debug("Email body", "to", email, "body", htmlMessage)
	return nil
}
