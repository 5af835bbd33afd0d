package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
}

func NewSMTPMailer(host string, port int, username, password string) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(port)}
	if username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password))
	} else {
		// Local dev relays (mailhog and friends) run without TLS or auth.
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailer: creating smtp client: %w", err)
	}

	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return fmt.Errorf("mailer: invalid from address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("mailer: invalid to address: %w", err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: sending email: %w", err)
	}

	return nil
}
