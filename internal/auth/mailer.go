package auth

import (
	"context"

	"github.com/apex/log"
)

// Mailer delivers password-reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes reset links to the log instead of sending mail.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	log.WithFields(log.Fields{"email": email, "link": link}).Info("password reset requested")
	return nil
}
