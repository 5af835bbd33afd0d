package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	session := &models.Session{
		ID: uuid.New(), CreatedAt: now, UpdatedAt: now,
		SecretHash: []byte("hash"), UserID: uuid.New(),
	}

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+sessions`).
		WithArgs(session.ID, session.CreatedAt, session.UpdatedAt, session.SecretHash, session.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+sessions\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), id)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestFindByUserID_OrdersNewestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	userID := uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "secret_hash", "user_id"}).
		AddRow(uuid.New(), now, now, []byte("h2"), userID).
		AddRow(uuid.New(), now.Add(-time.Hour), now.Add(-time.Hour), []byte("h1"), userID)

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+sessions\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs(userID).
		WillReturnRows(rows)

	got, err := repo.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("FindByUserID error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(got))
	}
}

func TestFindPendingSessionByID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	want := &models.PendingSession{
		ID: uuid.New(), CreatedAt: now, UpdatedAt: now,
		CodeHash: "salt$hash", TwoFaVerified: true, FailedAttempts: 2,
		UserID: uuid.New(),
	}

	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "code_hash",
		"two_fa_verified", "failed_attempts", "user_id"}).
		AddRow(want.ID, want.CreatedAt, want.UpdatedAt, want.CodeHash,
			want.TwoFaVerified, want.FailedAttempts, want.UserID)

	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+pending_sessions\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(want.ID).
		WillReturnRows(rows)

	got, err := repo.FindPendingSessionByID(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("FindPendingSessionByID error: %v", err)
	}
	if !got.TwoFaVerified || got.FailedAttempts != 2 || got.UserID != want.UserID {
		t.Fatalf("unexpected pending session: %+v", got)
	}
}

func TestUpdatePendingSession_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+pending_sessions`).
		WillReturnError(errors.New("db down"))

	err := repo.UpdatePendingSession(context.Background(), &models.PendingSession{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected wrapped db error, got nil")
	}
}

func TestDeletePendingSessionsCreatedBefore_ReportsCount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	before := time.Now().UTC().Add(-35 * time.Minute)
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+pending_sessions\s+WHERE\s+created_at\s*<\s*\$1`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 2))

	got, err := repo.DeletePendingSessionsCreatedBefore(context.Background(), before)
	if err != nil {
		t.Fatalf("DeletePendingSessionsCreatedBefore error: %v", err)
	}
	if got != 2 {
		t.Fatalf("want 2 deleted, got %d", got)
	}
}
