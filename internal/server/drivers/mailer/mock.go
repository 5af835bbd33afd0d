package mailer

import (
	"context"
	"sync"
)

// MockMailer records sent emails in memory.
type MockMailer struct {
	mu     sync.Mutex
	emails []Email

	SendErr error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(ctx context.Context, email Email) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return nil
}

// Emails returns a copy of everything sent so far.
func (m *MockMailer) Emails() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.emails))
	copy(out, m.emails)
	return out
}
