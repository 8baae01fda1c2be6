package attachments

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db  dbx.DBTX
	log logging.Logger
}

func NewPostgresRepository(db dbx.DBTX, log logging.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

func (r *PostgresRepository) ListByItem(ctx context.Context, ownerID, itemID string) ([]models.Attachment, error) {
	query :=
		`SELECT id, item_id, owner_id, bucket, path, url, mime_type, file_name, size, created_at
		 FROM attachments
		 WHERE item_id = $1 AND owner_id = $2
		 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, itemID, ownerID)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "attachments.list", fmt.Errorf("db error: %w", err))
	}
	defer rows.Close()

	out := []models.Attachment{}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.OwnerID, &a.Bucket, &a.Path, &a.URL, &a.MimeType, &a.FileName, &a.Size, &a.CreatedAt); err != nil {
			return nil, repositories.Fail(ctx, r.log, "attachments.list", fmt.Errorf("db error: %w", err))
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Fail(ctx, r.log, "attachments.list", fmt.Errorf("db error: %w", err))
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Attachment, error) {
	query :=
		`SELECT id, item_id, owner_id, bucket, path, url, mime_type, file_name, size, created_at
		 FROM attachments
		 WHERE id = $1 AND owner_id = $2`

	a := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).
		Scan(&a.ID, &a.ItemID, &a.OwnerID, &a.Bucket, &a.Path, &a.URL, &a.MimeType, &a.FileName, &a.Size, &a.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "attachments.get", fmt.Errorf("db error: %w", err))
	}
	return a, nil
}

// Create stores the metadata row for an uploaded blob. An empty ID is
// generated.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query :=
		`INSERT INTO attachments (id, item_id, owner_id, bucket, path, url, mime_type, file_name, size)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.ItemID, a.OwnerID, a.Bucket, a.Path, a.URL, a.MimeType, a.FileName, a.Size).Scan(&a.CreatedAt)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "attachments.create", fmt.Errorf("db error: %w", err))
	}
	return a, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "attachments.delete", fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "attachments.delete", fmt.Errorf("db error: %w", err))
	}
	return n > 0, nil
}

func (r *PostgresRepository) DeleteByItem(ctx context.Context, ownerID, itemID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE item_id = $1 AND owner_id = $2`, itemID, ownerID)
	if err != nil {
		return 0, repositories.Fail(ctx, r.log, "attachments.delete_by_item", fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, repositories.Fail(ctx, r.log, "attachments.delete_by_item", fmt.Errorf("db error: %w", err))
	}
	return int(n), nil
}
