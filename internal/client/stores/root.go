package stores

import (
	"github.com/dmitrijs2005/docvault/internal/client/notify"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/reminders"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Gateways are the backends the stores are built over.
type Gateways struct {
	Items       items.Repository
	Categories  categories.Repository
	Tags        tags.Repository
	Attachments attachments.Repository
	Reminders   reminders.Repository
	Blobs       Blobs
	Identity    Identity
	Notifier    notify.Scheduler
}

// Root owns one instance of every store. Build it once at startup and
// hand it to the screens.
type Root struct {
	Items      *ItemsStore
	Categories *CategoriesStore
	Tags       *TagsStore
	Reminders  *RemindersStore
	Auth       *AuthStore
	UI         *UIStore
}

func NewRoot(g Gateways, log logging.Logger) *Root {
	r := &Root{
		Items:     NewItemsStore(g.Items, g.Attachments, g.Blobs, log),
		Reminders: NewRemindersStore(g.Reminders, g.Notifier, log),
		Auth:      NewAuthStore(g.Identity, log),
		UI:        NewUIStore(),
	}
	r.Categories = NewCategoriesStore(g.Categories, r.Items, log)
	r.Tags = NewTagsStore(g.Tags, r.Items, log)

	r.Items.OnItemDeleted(r.Reminders.ForgetItem)
	r.Auth.onSignedOut = r.resetData
	return r
}

// Reset clears every store.
func (r *Root) Reset() {
	r.resetData()
	r.Auth.Reset()
	r.UI.Reset()
}

func (r *Root) resetData() {
	r.Items.Reset()
	r.Categories.Reset()
	r.Tags.Reset()
	r.Reminders.Reset()
}
