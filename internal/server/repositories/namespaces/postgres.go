package namespaces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const namespaceColumns = `id, created_at, updated_at, path, type, used_storage, plan, parent_id`

func scanNamespace(row interface{ Scan(dest ...any) error }) (*models.Namespace, error) {
	namespace := &models.Namespace{}
	err := row.Scan(&namespace.ID, &namespace.CreatedAt, &namespace.UpdatedAt,
		&namespace.Path, &namespace.Type, &namespace.UsedStorage, &namespace.Plan,
		&namespace.ParentID)
	if err != nil {
		return nil, err
	}
	return namespace, nil
}

func (r *PostgresRepository) Create(ctx context.Context, namespace *models.Namespace) error {
	query := `INSERT INTO namespaces (id, created_at, updated_at, path, type, used_storage, plan, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query, namespace.ID, namespace.CreatedAt, namespace.UpdatedAt,
		namespace.Path, namespace.Type, namespace.UsedStorage, namespace.Plan, namespace.ParentID)
	if err != nil {
		return fmt.Errorf("namespaces: creating namespace: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Namespace, error) {
	query := `SELECT ` + namespaceColumns + ` FROM namespaces WHERE id = $1`

	namespace, err := scanNamespace(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("namespaces: finding namespace by id: %w", err)
	}

	return namespace, nil
}

func (r *PostgresRepository) FindByPath(ctx context.Context, path string) (*models.Namespace, error) {
	query := `SELECT ` + namespaceColumns + ` FROM namespaces WHERE path = $1`

	namespace, err := scanNamespace(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("namespaces: finding namespace by path: %w", err)
	}

	return namespace, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM namespaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("namespaces: deleting namespace: %w", err)
	}
	return nil
}
