package categories

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type Repository interface {
	List(ctx context.Context, ownerID string) ([]models.Category, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Category, error)
	Create(ctx context.Context, ownerID string, in models.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, ownerID, id string, in models.CategoryInput) (*models.Category, error)
	// Delete detaches the category's items and removes the category,
	// returning how many items were detached and whether a row was removed.
	Delete(ctx context.Context, ownerID, id string) (detached int, deleted bool, err error)
	NameExists(ctx context.Context, ownerID, name, excludeID string) (bool, error)
}
