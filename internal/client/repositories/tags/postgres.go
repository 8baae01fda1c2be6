package tags

import (
	"context"
	"database/sql"
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

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, created_at
		 FROM tags
		 WHERE owner_id = $1
		 ORDER BY lower(name), id`, ownerID)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "tags.list", fmt.Errorf("db error: %w", err))
	}
	out, err := scanTags(rows)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "tags.list", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListForItem(ctx context.Context, ownerID, itemID string) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.owner_id, t.name, t.created_at
		 FROM tags t
		 JOIN item_tags it ON it.tag_id = t.id
		 WHERE it.item_id = $1 AND t.owner_id = $2
		 ORDER BY lower(t.name), t.id`, itemID, ownerID)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "tags.list_for_item", fmt.Errorf("db error: %w", err))
	}
	out, err := scanTags(rows)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "tags.list_for_item", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Tag, error) {
	t := &models.Tag{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, created_at FROM tags WHERE id = $1 AND owner_id = $2`, id, ownerID).
		Scan(&t.ID, &t.OwnerID, &t.Name, &t.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "tags.get", fmt.Errorf("db error: %w", err))
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in models.TagInput) (*models.Tag, error) {
	t := &models.Tag{ID: uuid.NewString(), OwnerID: ownerID, Name: in.Name}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO tags (id, owner_id, name)
		 VALUES ($1, $2, $3)
		 RETURNING created_at`, t.ID, ownerID, in.Name).Scan(&t.CreatedAt)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "tags.create", fmt.Errorf("db error: %w", err))
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, in models.TagInput) (*models.Tag, error) {
	t := &models.Tag{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE tags SET name = $3
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, name, created_at`, id, ownerID, in.Name).
		Scan(&t.ID, &t.OwnerID, &t.Name, &t.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "tags.update", fmt.Errorf("db error: %w", err))
	}
	return t, nil
}

// Delete removes the tag's join rows before the tag itself.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	var deleted bool
	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM item_tags
			 WHERE tag_id = $1
			   AND tag_id IN (SELECT id FROM tags WHERE owner_id = $2)`, id, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "tags.delete", err)
	}
	return deleted, nil
}

func (r *PostgresRepository) NameExists(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM tags
		   WHERE owner_id = $1 AND lower(name) = lower($2) AND id <> $3
		 )`, ownerID, name, excludeID).Scan(&exists)
	if err != nil {
		return false, repositories.Fail(ctx, r.log, "tags.name_exists", fmt.Errorf("db error: %w", err))
	}
	return exists, nil
}
