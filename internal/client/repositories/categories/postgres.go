package categories

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

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]models.Category, error) {
	query :=
		`SELECT id, owner_id, name, color, icon, created_at
		 FROM categories
		 WHERE owner_id = $1
		 ORDER BY lower(name), id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "categories.list", fmt.Errorf("db error: %w", err))
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, repositories.Fail(ctx, r.log, "categories.list", fmt.Errorf("db error: %w", err))
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.Fail(ctx, r.log, "categories.list", fmt.Errorf("db error: %w", err))
	}
	return out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Category, error) {
	query :=
		`SELECT id, owner_id, name, color, icon, created_at
		 FROM categories
		 WHERE id = $1 AND owner_id = $2`

	c := &models.Category{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "categories.get", fmt.Errorf("db error: %w", err))
	}
	return c, nil
}

func withDefaults(in models.CategoryInput) models.CategoryInput {
	if in.Color == "" {
		in.Color = models.DefaultCategoryColor
	}
	if in.Icon == "" {
		in.Icon = models.DefaultCategoryIcon
	}
	return in
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID string, in models.CategoryInput) (*models.Category, error) {
	in = withDefaults(in)
	query :=
		`INSERT INTO categories (id, owner_id, name, color, icon)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	c := &models.Category{ID: uuid.NewString(), OwnerID: ownerID, Name: in.Name, Color: in.Color, Icon: in.Icon}
	err := r.db.QueryRowContext(ctx, query, c.ID, ownerID, in.Name, in.Color, in.Icon).Scan(&c.CreatedAt)
	if err != nil {
		return nil, repositories.Fail(ctx, r.log, "categories.create", fmt.Errorf("db error: %w", err))
	}
	return c, nil
}

func (r *PostgresRepository) Update(ctx context.Context, ownerID, id string, in models.CategoryInput) (*models.Category, error) {
	in = withDefaults(in)
	query :=
		`UPDATE categories SET name = $3, color = $4, icon = $5
		 WHERE id = $1 AND owner_id = $2
		 RETURNING id, owner_id, name, color, icon, created_at`

	c := &models.Category{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID, in.Name, in.Color, in.Icon).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "categories.update", fmt.Errorf("db error: %w", err))
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) (int, bool, error) {
	var detached int
	var deleted bool

	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET category_id = NULL, updated_at = now()
			 WHERE category_id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		detached = int(n)

		res, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND owner_id = $2`, id, ownerID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return 0, false, repositories.Fail(ctx, r.log, "categories.delete", err)
	}
	return detached, deleted, nil
}

// NameExists compares case-insensitively; excludeID lets an update keep
// its own name.
func (r *PostgresRepository) NameExists(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	query :=
		`SELECT EXISTS (
		   SELECT 1 FROM categories
		   WHERE owner_id = $1 AND lower(name) = lower($2) AND id <> $3
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, name, excludeID).Scan(&exists); err != nil {
		return false, repositories.Fail(ctx, r.log, "categories.name_exists", fmt.Errorf("db error: %w", err))
	}
	return exists, nil
}
