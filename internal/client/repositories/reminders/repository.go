package reminders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// ListOptions narrows a reminder list. Upcoming keeps unsent reminders at
// or after Now.
type ListOptions struct {
	ItemID   string
	Upcoming bool
	Now      time.Time
}

type Repository interface {
	List(ctx context.Context, ownerID string, opts ListOptions) ([]models.Reminder, error)
	GetByID(ctx context.Context, ownerID, id string) (*models.Reminder, error)
	Create(ctx context.Context, ownerID string, in models.ReminderInput) (*models.Reminder, error)
	Update(ctx context.Context, ownerID, id string, patch models.ReminderPatch) (*models.Reminder, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
	MarkSent(ctx context.Context, ownerID, id string) (bool, error)
}
