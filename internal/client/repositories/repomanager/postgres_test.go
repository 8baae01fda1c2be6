package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/migrations"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/reminders"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager(logging.Nop())

	assert.IsType(t, &items.PostgresRepository{}, m.Items(db))
	assert.IsType(t, &categories.PostgresRepository{}, m.Categories(db))
	assert.IsType(t, &tags.PostgresRepository{}, m.Tags(db))
	assert.IsType(t, &attachments.PostgresRepository{}, m.Attachments(db))
	assert.IsType(t, &reminders.PostgresRepository{}, m.Reminders(db))
	assert.IsType(t, &sessions.PostgresRepository{}, m.Sessions(db))
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(logging.Nop())
	assert.NoError(t, m.RunMigrations(context.Background(), db))
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(logging.Nop())
	assert.EqualError(t, m.RunMigrations(context.Background(), db), "boom")
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.Glob(migrations.Migrations, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, entries, "00001_init.sql")
}
