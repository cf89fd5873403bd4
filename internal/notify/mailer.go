package notify

import (
	"context"
	"fmt"
	"time"

	mail "gopkg.in/mail.v2"
)

// SMTPMailer delivers notification emails over SMTP.
type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

// NewSMTPMailer constructs a mailer. Username and password may be empty for
// unauthenticated relays (local Mailpit in development).
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 10 * time.Second
	return &SMTPMailer{dialer: dialer, from: from}
}

// Send delivers a single message to all recipients. The context deadline is
// honored by racing dial-and-send against cancellation; mail.v2 itself only
// supports a dialer-level timeout.
func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("notify: smtp send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("notify: smtp send: %w", err)
		}
		return nil
	}
}
