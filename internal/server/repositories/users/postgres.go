package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bloomlabs/bloom/internal/common"
	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, created_at, updated_at, blocked_at, username, email, is_admin,
	two_fa_enabled, two_fa_method, encrypted_totp_secret, totp_secret_nonce,
	name, description, avatar_id, namespace_id`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	var twoFaMethod *string
	err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.BlockedAt,
		&user.Username, &user.Email, &user.IsAdmin,
		&user.TwoFaEnabled, &twoFaMethod, &user.EncryptedTotpSecret, &user.TotpSecretNonce,
		&user.Name, &user.Description, &user.AvatarID, &user.NamespaceID)
	if err != nil {
		return nil, err
	}
	if twoFaMethod != nil {
		method := models.TwoFaMethod(*twoFaMethod)
		user.TwoFaMethod = &method
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, created_at, updated_at, blocked_at, username, email, is_admin,
		two_fa_enabled, two_fa_method, encrypted_totp_secret, totp_secret_nonce,
		name, description, avatar_id, namespace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.CreatedAt, user.UpdatedAt, user.BlockedAt,
		user.Username, user.Email, user.IsAdmin,
		user.TwoFaEnabled, user.TwoFaMethod, user.EncryptedTotpSecret, user.TotpSecretNonce,
		user.Name, user.Description, user.AvatarID, user.NamespaceID)
	if err != nil {
		return fmt.Errorf("users: creating user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET updated_at = $1, blocked_at = $2, username = $3, email = $4,
		is_admin = $5, two_fa_enabled = $6, two_fa_method = $7, encrypted_totp_secret = $8,
		totp_secret_nonce = $9, name = $10, description = $11, avatar_id = $12
		WHERE id = $13`

	_, err := r.db.ExecContext(ctx, query, user.UpdatedAt, user.BlockedAt, user.Username, user.Email,
		user.IsAdmin, user.TwoFaEnabled, user.TwoFaMethod, user.EncryptedTotpSecret,
		user.TotpSecretNonce, user.Name, user.Description, user.AvatarID, user.ID)
	if err != nil {
		return fmt.Errorf("users: updating user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("users: finding user by id: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("users: finding user by email: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("users: finding user by username: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return []models.User{}, nil
	}

	placeholders := make([]string, len(usernames))
	args := make([]any, len(usernames))
	for i, username := range usernames {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = username
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE username IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("users: finding users by usernames: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("users: scanning user: %w", err)
		}
		users = append(users, *user)
	}

	return users, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("users: counting users: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: deleting user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error {
	query := `INSERT INTO pending_users (id, created_at, updated_at, username, email, failed_attempts, code_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, pendingUser.ID, pendingUser.CreatedAt, pendingUser.UpdatedAt,
		pendingUser.Username, pendingUser.Email, pendingUser.FailedAttempts, pendingUser.CodeHash)
	if err != nil {
		return fmt.Errorf("users: creating pending user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindPendingUserByID(ctx context.Context, id uuid.UUID) (*models.PendingUser, error) {
	query := `SELECT id, created_at, updated_at, username, email, failed_attempts, code_hash
		FROM pending_users WHERE id = $1`

	pendingUser := &models.PendingUser{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&pendingUser.ID, &pendingUser.CreatedAt,
		&pendingUser.UpdatedAt, &pendingUser.Username, &pendingUser.Email,
		&pendingUser.FailedAttempts, &pendingUser.CodeHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("users: finding pending user: %w", err)
	}

	return pendingUser, nil
}

func (r *PostgresRepository) UpdatePendingUser(ctx context.Context, pendingUser *models.PendingUser) error {
	query := `UPDATE pending_users SET updated_at = $1, failed_attempts = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, pendingUser.UpdatedAt, pendingUser.FailedAttempts, pendingUser.ID)
	if err != nil {
		return fmt.Errorf("users: updating pending user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeletePendingUser(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: deleting pending user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePendingUsersCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_users WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("users: deleting old pending users: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) CreatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error {
	query := `INSERT INTO pending_emails (id, created_at, updated_at, email, code_hash, failed_attempts, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query, pendingEmail.ID, pendingEmail.CreatedAt, pendingEmail.UpdatedAt,
		pendingEmail.Email, pendingEmail.CodeHash, pendingEmail.FailedAttempts, pendingEmail.UserID)
	if err != nil {
		return fmt.Errorf("users: creating pending email: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindPendingEmailByID(ctx context.Context, id uuid.UUID) (*models.PendingEmail, error) {
	query := `SELECT id, created_at, updated_at, email, code_hash, failed_attempts, user_id
		FROM pending_emails WHERE id = $1`

	pendingEmail := &models.PendingEmail{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&pendingEmail.ID, &pendingEmail.CreatedAt,
		&pendingEmail.UpdatedAt, &pendingEmail.Email, &pendingEmail.CodeHash,
		&pendingEmail.FailedAttempts, &pendingEmail.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("users: finding pending email: %w", err)
	}

	return pendingEmail, nil
}

func (r *PostgresRepository) UpdatePendingEmail(ctx context.Context, pendingEmail *models.PendingEmail) error {
	query := `UPDATE pending_emails SET updated_at = $1, failed_attempts = $2 WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, pendingEmail.UpdatedAt, pendingEmail.FailedAttempts, pendingEmail.ID)
	if err != nil {
		return fmt.Errorf("users: updating pending email: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeletePendingEmail(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_emails WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("users: deleting pending email: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePendingEmailsCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_emails WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("users: deleting old pending emails: %w", err)
	}
	return res.RowsAffected()
}
