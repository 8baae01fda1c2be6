package sessions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type PostgresRepository struct {
	db  dbx.DBTX
	log logging.Logger
}

func NewPostgresRepository(db dbx.DBTX, log logging.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

func (r *PostgresRepository) Save(ctx context.Context, s *models.Session) error {
	query :=
		`INSERT INTO sessions (user_id, email, name, avatar_url, access_token, refresh_token, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   name = EXCLUDED.name,
		   avatar_url = EXCLUDED.avatar_url,
		   access_token = EXCLUDED.access_token,
		   refresh_token = EXCLUDED.refresh_token,
		   expires_at = EXCLUDED.expires_at,
		   updated_at = now()`

	var expiry sql.NullTime
	if !s.Expiry.IsZero() {
		expiry = sql.NullTime{Time: s.Expiry, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		s.User.ID, s.User.Email, s.User.Name, s.User.AvatarURL, s.AccessToken, s.RefreshToken, expiry)
	if err != nil {
		return repositories.Fail(ctx, r.log, "sessions.save", fmt.Errorf("db error: %w", err))
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.Session, error) {
	query :=
		`SELECT user_id, email, name, avatar_url, access_token, refresh_token, expires_at
		 FROM sessions
		 WHERE user_id = $1`

	s := &models.Session{}
	var expiry sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.User.ID, &s.User.Email, &s.User.Name, &s.User.AvatarURL, &s.AccessToken, &s.RefreshToken, &expiry)
	if err != nil {
		if dbx.IsNoRows(err) {
			return nil, nil
		}
		return nil, repositories.Fail(ctx, r.log, "sessions.get", fmt.Errorf("db error: %w", err))
	}
	if expiry.Valid {
		s.Expiry = expiry.Time
	}
	return s, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return repositories.Fail(ctx, r.log, "sessions.delete", fmt.Errorf("db error: %w", err))
	}
	return nil
}
