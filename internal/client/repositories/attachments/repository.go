package attachments

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

type Repository interface {
	ListByItem(ctx context.Context, ownerID, itemID string) ([]models.Attachment, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Attachment, error)
	Create(ctx context.Context, a *models.Attachment) (*models.Attachment, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	DeleteByItem(ctx context.Context, ownerID, itemID string) (int, error)
}
