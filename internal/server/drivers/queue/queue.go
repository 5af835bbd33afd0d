// Package queue provides the asynchronous job queue the server pushes to and
// the worker pulls from.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeRegistrationEmail    MessageType = "send_registration_email"
	MessageTypeSignInEmail          MessageType = "send_sign_in_email"
	MessageTypeGroupInvitationEmail MessageType = "send_group_invitation_email"
	MessageTypeEmailChangedEmail    MessageType = "send_email_changed_email"
	MessageTypeVerifyEmailEmail     MessageType = "send_verify_email_email"
	MessageTypeDeleteOldData        MessageType = "delete_old_data"
)

// Message is the unit of work stored in the jobs table. Data holds the
// type-specific payload.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

type RegistrationEmailData struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Code     string `json:"code"`
}

type SignInEmailData struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}

type GroupInvitationEmailData struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	GroupName   string `json:"group_name"`
	InviterName string `json:"inviter_name"`
}

type EmailChangedEmailData struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	NewEmail string `json:"new_email"`
}

type VerifyEmailEmailData struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Code  string `json:"code"`
}

// NewMessage marshals a typed payload into a Message.
func NewMessage(messageType MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: messageType, Data: raw}, nil
}

// Job is a pulled queue entry. FailedAttempts counts delivery failures so the
// worker can give up after a few retries.
type Job struct {
	ID             int64
	FailedAttempts int64
	Message        Message
}

type Queue interface {
	// Push enqueues a message. A nil scheduledFor means now.
	Push(ctx context.Context, message Message, scheduledFor *time.Time) error
	// Pull atomically claims up to numberOfJobs due jobs.
	Pull(ctx context.Context, numberOfJobs int64) ([]Job, error)
	DeleteJob(ctx context.Context, jobID int64) error
	// FailJob releases a claimed job back to the queue and counts the failure.
	FailJob(ctx context.Context, job Job) error
}
