// Package sessions declares the contract for persisting identity sessions
// in the hosted database so they survive process restarts.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// Repository stores at most one session per user.
type Repository interface {
	// Save inserts or replaces the session of s.User.ID.
	Save(ctx context.Context, s *models.Session) error

	// Get returns the stored session for userID, or (nil, nil) when absent.
	Get(ctx context.Context, userID string) (*models.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error
}
