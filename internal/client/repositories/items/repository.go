package items

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type Repository interface {
	List(ctx context.Context, ownerID string, filter models.ItemFilter, page models.Pagination) (*models.ListResult[models.Item], error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Item, error)
	Create(ctx context.Context, ownerID string, in models.ItemInput) (*models.Item, error)
	Update(ctx context.Context, ownerID, id string, patch models.ItemPatch) (*models.Item, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)

	AddTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error
	RemoveTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error
	SetTags(ctx context.Context, ownerID, itemID string, tagIDs []string) error

	ItemIDsWithTags(ctx context.Context, ownerID string, tagIDs []string) ([]string, error)
	CountByCategory(ctx context.Context, ownerID, categoryID string) (int, error)
}
