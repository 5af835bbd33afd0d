// Package mailer sends transactional email.
package mailer

import "context"

type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, email Email) error
}
