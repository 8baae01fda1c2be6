package tags

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type Repository interface {
	List(ctx context.Context, ownerID string) ([]models.Tag, error)
	ListForItem(ctx context.Context, ownerID, itemID string) ([]models.Tag, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Tag, error)
	Create(ctx context.Context, ownerID string, in models.TagInput) (*models.Tag, error)
	Update(ctx context.Context, ownerID, id string, in models.TagInput) (*models.Tag, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	NameExists(ctx context.Context, ownerID, name, excludeID string) (bool, error)
}
