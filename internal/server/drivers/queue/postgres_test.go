package queue

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newQueueWithMock(t *testing.T) (*PostgresQueue, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresQueue(db), mock, db
}

func TestPush_Success(t *testing.T) {
	q, mock, db := newQueueWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+queue`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	message, err := NewMessage(MessageTypeRegistrationEmail, RegistrationEmailData{
		Email: "sylvie@bloom.sh", Username: "sylvie", Code: "1234-5678",
	})
	if err != nil {
		t.Fatalf("NewMessage error: %v", err)
	}

	if err := q.Push(context.Background(), message, nil); err != nil {
		t.Fatalf("Push error: %v", err)
	}
}

func TestPush_ScheduledForLater(t *testing.T) {
	q, mock, db := newQueueWithMock(t)
	defer db.Close()

	later := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+queue`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	message, _ := NewMessage(MessageTypeDeleteOldData, struct{}{})
	if err := q.Push(context.Background(), message, &later); err != nil {
		t.Fatalf("Push error: %v", err)
	}
}

func TestPull_ClaimsAndDecodes(t *testing.T) {
	q, mock, db := newQueueWithMock(t)
	defer db.Close()

	raw := []byte(`{"type":"send_sign_in_email","data":{"email":"sylvie@bloom.sh","name":"Sylvie","code":"1234-5678"}}`)
	rows := sqlmock.NewRows([]string{"id", "failed_attempts", "message"}).
		AddRow(int64(7), int64(0), raw)

	mock.ExpectQuery(`(?s)^UPDATE\s+queue\s+SET\s+status.*FOR\s+UPDATE\s+SKIP\s+LOCKED.*RETURNING`).
		WillReturnRows(rows)

	jobs, err := q.Pull(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pull error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("want 1 job, got %d", len(jobs))
	}
	if jobs[0].ID != 7 || jobs[0].Message.Type != MessageTypeSignInEmail {
		t.Fatalf("unexpected job: %+v", jobs[0])
	}
}

func TestFailJob_RequeuesWithCount(t *testing.T) {
	q, mock, db := newQueueWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+queue\s+SET\s+status.*failed_attempts\s*=\s*failed_attempts\s*\+\s*1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := q.FailJob(context.Background(), Job{ID: 7}); err != nil {
		t.Fatalf("FailJob error: %v", err)
	}
}

func TestDeleteJob_DBError(t *testing.T) {
	q, mock, db := newQueueWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+queue`).
		WillReturnError(errors.New("db down"))

	if err := q.DeleteJob(context.Background(), 7); err == nil {
		t.Fatal("expected wrapped db error, got nil")
	}
}
