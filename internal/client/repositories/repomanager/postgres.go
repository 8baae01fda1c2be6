// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together the gateway constructors and the schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/migrations"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/reminders"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed gateways that share one
// logger and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	log logging.Logger
}

func (m *PostgresRepositoryManager) Items(db dbx.DBTX) items.Repository {
	return items.NewPostgresRepository(db, m.log.With("gateway", "items"))
}

func (m *PostgresRepositoryManager) Categories(db dbx.DBTX) categories.Repository {
	return categories.NewPostgresRepository(db, m.log.With("gateway", "categories"))
}

func (m *PostgresRepositoryManager) Tags(db dbx.DBTX) tags.Repository {
	return tags.NewPostgresRepository(db, m.log.With("gateway", "tags"))
}

func (m *PostgresRepositoryManager) Attachments(db dbx.DBTX) attachments.Repository {
	return attachments.NewPostgresRepository(db, m.log.With("gateway", "attachments"))
}

func (m *PostgresRepositoryManager) Reminders(db dbx.DBTX) reminders.Repository {
	return reminders.NewPostgresRepository(db, m.log.With("gateway", "reminders"))
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db, m.log.With("gateway", "sessions"))
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	m.log.Info(ctx, "schema migrations applied")
	return nil
}

func NewPostgresRepositoryManager(log logging.Logger) RepositoryManager {
	return &PostgresRepositoryManager{log: log}
}

// Open connects to the hosted database through the pgx driver and checks
// the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
