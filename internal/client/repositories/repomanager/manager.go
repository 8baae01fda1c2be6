package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/reminders"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/dbx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Items(db dbx.DBTX) items.Repository
	Categories(db dbx.DBTX) categories.Repository
	Tags(db dbx.DBTX) tags.Repository
	Attachments(db dbx.DBTX) attachments.Repository
	Reminders(db dbx.DBTX) reminders.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
