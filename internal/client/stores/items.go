package stores

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/saga"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

// Blobs is the part of the object storage gateway the items store uses.
type Blobs interface {
	Bucket() string
	UploadMany(ctx context.Context, ownerID, itemID string, files []models.NewFile) []storage.UploadOutcome
	Delete(ctx context.Context, path string) error
	DeleteMany(ctx context.Context, paths []string) error
}

type ItemsState struct {
	Status
	Items   []models.Item
	Current *models.Item
	Filters models.ItemFilter
	Page    int
	Total   int
	HasMore bool

	inFlight int
}

// Fetching reports whether a list call is outstanding.
func (s ItemsState) Fetching() bool { return s.inFlight > 0 }

// ItemsStore is the paginated item list plus the item being viewed.
type ItemsStore struct {
	st          state[ItemsState]
	items       items.Repository
	attachments attachments.Repository
	blobs       Blobs
	log         logging.Logger
	pageSize    int

	onDeleted func(ctx context.Context, id string)
}

func NewItemsStore(repo items.Repository, atts attachments.Repository, blobs Blobs, log logging.Logger) *ItemsStore {
	return &ItemsStore{
		items:       repo,
		attachments: atts,
		blobs:       blobs,
		log:         log.With("store", "items"),
		pageSize:    common.DefaultPageSize,
	}
}

// SetPageSize changes the page size of later fetches; n < 1 is ignored.
func (s *ItemsStore) SetPageSize(n int) {
	if n > 0 {
		s.pageSize = n
	}
}

// OnItemDeleted sets a hook run after an item is deleted.
func (s *ItemsStore) OnItemDeleted(fn func(ctx context.Context, id string)) {
	s.onDeleted = fn
}

func (s *ItemsStore) Snapshot() ItemsState { return s.st.Snapshot() }

func (s *ItemsStore) Subscribe(fn func(ItemsState)) func() { return s.st.Subscribe(fn) }

func itemID(i models.Item) string { return i.ID }

func attachmentID(a models.Attachment) string { return a.ID }

// FetchItems loads the first page and replaces the list when refresh is
// set, otherwise the page after the last one loaded is appended.
// Overlapping calls are not serialized; the last to complete wins.
func (s *ItemsStore) FetchItems(ctx context.Context, ownerID string, refresh bool) {
	page, filter, _ := s.startFetch(refresh, false)
	s.fetchPage(ctx, ownerID, page, filter)
}

// LoadMore appends the next page. It does nothing when there is no next
// page or a fetch is already running; started reports whether it ran.
func (s *ItemsStore) LoadMore(ctx context.Context, ownerID string) (started bool) {
	page, filter, ok := s.startFetch(false, true)
	if !ok {
		return false
	}
	s.fetchPage(ctx, ownerID, page, filter)
	return true
}

func (s *ItemsStore) startFetch(refresh, guarded bool) (page int, filter models.ItemFilter, ok bool) {
	s.st.mu.RLock()
	blocked := guarded && (!s.st.v.HasMore || s.st.v.inFlight > 0)
	s.st.mu.RUnlock()
	if blocked {
		return 0, filter, false
	}

	s.st.update(func(v *ItemsState) {
		v.begin()
		v.inFlight++
		filter = v.Filters
		page = 1
		if !refresh && len(v.Items) > 0 {
			page = v.Page + 1
		}
	})
	return page, filter, true
}

func (s *ItemsStore) fetchPage(ctx context.Context, ownerID string, page int, filter models.ItemFilter) {
	res, err := s.items.List(ctx, ownerID, filter, models.Pagination{Page: page, Limit: s.pageSize})
	if err != nil {
		s.log.Error(ctx, "fetch items", "page", page, "error", err)
	}

	s.st.update(func(v *ItemsState) {
		v.inFlight--
		if err == nil {
			if page == 1 {
				v.Items = res.Data
			} else {
				v.Items = appendNew(v.Items, res.Data)
			}
			v.Page = res.Page
			v.Total = res.Total
			v.HasMore = res.HasMore
		}
		v.finish(err)
	})
}

// appendNew returns list followed by the elements of more it lacks.
func appendNew(list, more []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(list))
	out := make([]models.Item, 0, len(list)+len(more))
	for _, it := range list {
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	for _, it := range more {
		if _, ok := seen[it.ID]; !ok {
			out = append(out, it)
		}
	}
	return out
}

// SetFilters replaces the filters and reloads from the first page.
func (s *ItemsStore) SetFilters(ctx context.Context, ownerID string, f models.ItemFilter) {
	s.st.update(func(v *ItemsState) {
		v.Filters = f
		v.Page = 0
		v.HasMore = false
	})
	s.FetchItems(ctx, ownerID, true)
}

func (s *ItemsStore) ClearFilters(ctx context.Context, ownerID string) {
	s.SetFilters(ctx, ownerID, models.ItemFilter{})
}

// FetchItem loads one item with its relations into the current slot. It
// returns nil when the item could not be loaded.
func (s *ItemsStore) FetchItem(ctx context.Context, ownerID, id string) *models.Item {
	it, err := s.items.GetByID(ctx, ownerID, id)
	if err == nil && it == nil {
		err = fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "fetch item", "id", id, "error", err)
		fail(&s.st, err)
		return nil
	}

	succeed(&s.st, func(v *ItemsState) { v.Current = it })
	return it
}

// CreateItem inserts the item, links its tags and attaches the files, then
// reloads the list. A tag link failure undoes the insert. A file that fails
// to upload or to record is skipped; its blob does not outlive a failed
// record. It returns nil when the item was not created.
func (s *ItemsStore) CreateItem(ctx context.Context, ownerID string, in models.ItemInput, tagIDs []string, files []models.NewFile) *models.Item {
	if err := models.ValidateItem(&in); err != nil {
		fail(&s.st, err)
		return nil
	}

	sg := saga.New("create item", s.log)
	var item *models.Item

	err := sg.Run(ctx, "insert item",
		func(ctx context.Context) error {
			var err error
			item, err = s.items.Create(ctx, ownerID, in)
			return err
		},
		func(ctx context.Context) error {
			_, err := s.items.Delete(ctx, ownerID, item.ID)
			return err
		})
	if err != nil {
		s.log.Error(ctx, "create item", "error", err)
		fail(&s.st, err)
		return nil
	}

	if len(tagIDs) > 0 {
		err = sg.Run(ctx, "link tags", func(ctx context.Context) error {
			return s.items.AddTags(ctx, ownerID, item.ID, tagIDs)
		}, nil)
		if err != nil {
			s.log.Error(ctx, "create item", "id", item.ID, "error", err)
			if cerr := sg.Compensate(context.WithoutCancel(ctx)); cerr != nil {
				s.log.Error(ctx, "undo item insert", "id", item.ID, "error", cerr)
			}
			fail(&s.st, err)
			return nil
		}
	}

	if len(files) > 0 {
		attached, failed := s.attach(ctx, ownerID, item.ID, files)
		s.log.Info(ctx, "item files attached", "id", item.ID, "attached", len(attached), "failed", failed)
	}

	// a failed reload leaves the item created; the list keeps the error
	s.FetchItems(ctx, ownerID, true)
	if fresh, ok := s.find(item.ID); ok {
		return &fresh
	}
	return item
}

// attach uploads files concurrently and records one attachment row per
// stored blob. It returns the recorded rows and the count of files lost.
func (s *ItemsStore) attach(ctx context.Context, ownerID, itemID string, files []models.NewFile) ([]models.Attachment, int) {
	var (
		out    []models.Attachment
		failed int
	)

	for _, o := range s.blobs.UploadMany(ctx, ownerID, itemID, files) {
		if o.Err != nil {
			s.log.Warn(ctx, "upload failed", "file", o.File.Name, "error", o.Err)
			failed++
			continue
		}

		mimeType := o.File.MimeType
		if mimeType == "" {
			mimeType = filex.DetectMimeType(o.File.Name, nil)
		}
		row := &models.Attachment{
			ItemID:   itemID,
			OwnerID:  ownerID,
			Bucket:   s.blobs.Bucket(),
			Path:     o.Result.Path,
			URL:      o.Result.URL,
			MimeType: mimeType,
			FileName: o.File.Name,
			Size:     o.File.Size,
		}

		path := o.Result.Path
		sg := saga.New("attach "+o.File.Name, s.log)
		sg.Defer("delete blob", func(ctx context.Context) error { return s.blobs.Delete(ctx, path) })

		var a *models.Attachment
		err := sg.Run(ctx, "record attachment", func(ctx context.Context) error {
			var err error
			a, err = s.attachments.Create(ctx, row)
			return err
		}, nil)
		if err != nil {
			s.log.Warn(ctx, "attachment not recorded", "file", o.File.Name, "error", err)
			if cerr := sg.Compensate(context.WithoutCancel(ctx)); cerr != nil {
				s.log.Error(ctx, "orphaned blob", "path", path, "error", cerr)
			}
			failed++
			continue
		}
		out = append(out, *a)
	}
	return out, failed
}

// UpdateItem applies patch and, when tagIDs is not nil, replaces the tag
// set with it. It returns nil when the update failed.
func (s *ItemsStore) UpdateItem(ctx context.Context, ownerID, id string, patch models.ItemPatch, tagIDs []string) *models.Item {
	if err := models.ValidateItemPatch(&patch); err != nil {
		fail(&s.st, err)
		return nil
	}

	var (
		it  *models.Item
		err error
	)
	if !patch.Empty() {
		it, err = s.items.Update(ctx, ownerID, id, patch)
		if err == nil && it == nil {
			err = fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
		}
	}
	if err == nil && tagIDs != nil {
		err = s.items.SetTags(ctx, ownerID, id, tagIDs)
		it = nil
	}
	if err == nil && it == nil {
		it, err = s.items.GetByID(ctx, ownerID, id)
		if err == nil && it == nil {
			err = fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
		}
	}
	if err != nil {
		s.log.Error(ctx, "update item", "id", id, "error", err)
		fail(&s.st, err)
		return nil
	}

	s.apply(*it)
	return it
}

// DeleteItem removes the item's blobs, then the item. Blob removal is
// best effort; the row delete takes its attachments, tags and reminders.
func (s *ItemsStore) DeleteItem(ctx context.Context, ownerID, id string) bool {
	atts, err := s.attachments.ListByItem(ctx, ownerID, id)
	if err != nil {
		s.log.Warn(ctx, "list attachments before delete", "id", id, "error", err)
	}
	if len(atts) > 0 {
		paths := make([]string, 0, len(atts))
		for _, a := range atts {
			paths = append(paths, a.Path)
		}
		if err := s.blobs.DeleteMany(ctx, paths); err != nil {
			s.log.Warn(ctx, "delete item blobs", "id", id, "count", len(paths), "error", err)
		}
	}

	deleted, err := s.items.Delete(ctx, ownerID, id)
	if err == nil && !deleted {
		err = fmt.Errorf("item %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "delete item", "id", id, "error", err)
		fail(&s.st, err)
		return false
	}

	succeed(&s.st, func(v *ItemsState) {
		before := len(v.Items)
		v.Items = without(v.Items, id, itemID)
		if len(v.Items) < before && v.Total > 0 {
			v.Total--
		}
		if v.Current != nil && v.Current.ID == id {
			v.Current = nil
		}
	})
	if s.onDeleted != nil {
		s.onDeleted(ctx, id)
	}
	return true
}

// AddAttachments uploads files to an existing item and returns the
// attachments recorded. It fails, returning nil, only when every file was
// lost.
func (s *ItemsStore) AddAttachments(ctx context.Context, ownerID, itemID string, files []models.NewFile) []models.Attachment {
	if len(files) == 0 {
		return nil
	}

	added, failed := s.attach(ctx, ownerID, itemID, files)
	if len(added) == 0 {
		fail(&s.st, fmt.Errorf("%d of %d files could not be attached", failed, len(files)))
		return nil
	}

	succeed(&s.st, func(v *ItemsState) {
		v.Items, v.Current = mapItem(v.Items, v.Current, itemID, func(it models.Item) models.Item {
			it.Attachments = append(append([]models.Attachment(nil), it.Attachments...), added...)
			return it
		})
	})
	return added
}

// DeleteAttachment removes the attachment row and, best effort, its blob.
func (s *ItemsStore) DeleteAttachment(ctx context.Context, ownerID, id string) bool {
	a, err := s.attachments.GetByID(ctx, ownerID, id)
	if err == nil && a == nil {
		err = fmt.Errorf("attachment %s: %w", id, common.ErrorNotFound)
	}
	if err == nil {
		_, err = s.attachments.Delete(ctx, ownerID, id)
	}
	if err != nil {
		s.log.Error(ctx, "delete attachment", "id", id, "error", err)
		fail(&s.st, err)
		return false
	}

	if err := s.blobs.Delete(ctx, a.Path); err != nil {
		s.log.Warn(ctx, "delete attachment blob", "path", a.Path, "error", err)
	}

	succeed(&s.st, func(v *ItemsState) {
		v.Items, v.Current = mapItem(v.Items, v.Current, a.ItemID, func(it models.Item) models.Item {
			it.Attachments = without(it.Attachments, id, attachmentID)
			return it
		})
	})
	return true
}

// DetachCategory clears a deleted category from the held items.
func (s *ItemsStore) DetachCategory(categoryID string) {
	s.st.update(func(v *ItemsState) {
		v.Items, v.Current = mapAll(v.Items, v.Current, func(it models.Item) (models.Item, bool) {
			if it.CategoryID == nil || *it.CategoryID != categoryID {
				return it, false
			}
			it.CategoryID, it.Category = nil, nil
			return it, true
		})
	})
}

// ReplaceCategory refreshes the embedded copy of an updated category.
func (s *ItemsStore) ReplaceCategory(c models.Category) {
	s.st.update(func(v *ItemsState) {
		v.Items, v.Current = mapAll(v.Items, v.Current, func(it models.Item) (models.Item, bool) {
			if it.CategoryID == nil || *it.CategoryID != c.ID {
				return it, false
			}
			cc := c
			it.Category = &cc
			return it, true
		})
	})
}

// RemoveTag drops a deleted tag from the held items.
func (s *ItemsStore) RemoveTag(id string) {
	s.st.update(func(v *ItemsState) {
		v.Items, v.Current = mapAll(v.Items, v.Current, func(it models.Item) (models.Item, bool) {
			if !it.HasTag(id) {
				return it, false
			}
			it.Tags = without(it.Tags, id, tagID)
			return it, true
		})
	})
}

// ReplaceTag refreshes the embedded copy of a renamed tag.
func (s *ItemsStore) ReplaceTag(t models.Tag) {
	s.st.update(func(v *ItemsState) {
		v.Items, v.Current = mapAll(v.Items, v.Current, func(it models.Item) (models.Item, bool) {
			if !it.HasTag(t.ID) {
				return it, false
			}
			it.Tags, _ = replaced(it.Tags, t, tagID)
			return it, true
		})
	})
}

func (s *ItemsStore) Reset() {
	s.st.set(ItemsState{})
}

func (s *ItemsStore) find(id string) (models.Item, bool) {
	for _, it := range s.Snapshot().Items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

// apply puts the gateway's copy of an item in the list and current slot.
func (s *ItemsStore) apply(it models.Item) {
	succeed(&s.st, func(v *ItemsState) {
		v.Items, _ = replaced(v.Items, it, itemID)
		if v.Current != nil && v.Current.ID == it.ID {
			cur := it
			v.Current = &cur
		}
	})
}

func mapItem(list []models.Item, cur *models.Item, id string, fn func(models.Item) models.Item) ([]models.Item, *models.Item) {
	return mapAll(list, cur, func(it models.Item) (models.Item, bool) {
		if it.ID != id {
			return it, false
		}
		return fn(it), true
	})
}

// mapAll rewrites the items fn changes, leaving the others shared.
func mapAll(list []models.Item, cur *models.Item, fn func(models.Item) (models.Item, bool)) ([]models.Item, *models.Item) {
	out := make([]models.Item, len(list))
	for i, it := range list {
		out[i], _ = fn(it)
	}
	if cur != nil {
		if next, changed := fn(*cur); changed {
			cur = &next
		}
	}
	return out, cur
}
