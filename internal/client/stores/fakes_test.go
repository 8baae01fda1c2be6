package stores

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/items"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/client/storage"
)

var errBackend = errors.New("backend unavailable")

// recorder keeps the order of gateway calls across fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.list() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

type fakeItems struct {
	mu      sync.Mutex
	rec     *recorder
	atts    *fakeAttachments
	catalog map[string]models.Tag
	rows    map[string]*models.Item
	order   []string
	nextID  int

	failCreate, failAddTags, failList, failDelete error
}

var _ items.Repository = (*fakeItems)(nil)

func newFakeItems(rec *recorder, atts *fakeAttachments) *fakeItems {
	return &fakeItems{rec: rec, atts: atts, catalog: map[string]models.Tag{}, rows: map[string]*models.Item{}}
}

// seed adds n items titled "Item 1".. directly, bypassing the call log.
func (f *fakeItems) seed(owner string, n int) []string {
	var ids []string
	for i := 0; i < n; i++ {
		it, _ := f.insert(owner, models.ItemInput{Title: fmt.Sprintf("Item %d", i+1)})
		ids = append(ids, it.ID)
	}
	return ids
}

func (f *fakeItems) insert(owner string, in models.ItemInput) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := time.Date(2026, 1, 1, 0, 0, f.nextID, 0, time.UTC)
	it := &models.Item{
		ID: fmt.Sprintf("item-%d", f.nextID), OwnerID: owner, Title: in.Title,
		Description: in.Description, CategoryID: in.CategoryID, IsFolder: in.IsFolder,
		CreatedAt: now, UpdatedAt: now,
	}
	f.rows[it.ID] = it
	f.order = append(f.order, it.ID)
	cp := *it
	return &cp, nil
}

func (f *fakeItems) view(id string) models.Item {
	it := *f.rows[id]
	it.Tags = append([]models.Tag(nil), it.Tags...)
	if f.atts != nil {
		it.Attachments = f.atts.forItem(id)
	}
	return it
}

func (f *fakeItems) List(_ context.Context, owner string, _ models.ItemFilter, page models.Pagination) (*models.ListResult[models.Item], error) {
	f.rec.add("items.List page=%d", page.Page)
	if f.failList != nil {
		return nil, f.failList
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Item
	for i := len(f.order) - 1; i >= 0; i-- {
		if it := f.rows[f.order[i]]; it.OwnerID == owner {
			all = append(all, f.view(it.ID))
		}
	}

	start := min(page.Offset(), len(all))
	end := min(start+page.Limit, len(all))
	return &models.ListResult[models.Item]{
		Data:    all[start:end],
		Total:   len(all),
		Page:    page.Page,
		Limit:   page.Limit,
		HasMore: page.Page*page.Limit < len(all),
	}, nil
}

func (f *fakeItems) GetByID(_ context.Context, owner, id string) (*models.Item, error) {
	f.rec.add("items.GetByID")
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.rows[id]
	if !ok || it.OwnerID != owner {
		return nil, nil
	}
	v := f.view(id)
	return &v, nil
}

func (f *fakeItems) Create(_ context.Context, owner string, in models.ItemInput) (*models.Item, error) {
	f.rec.add("items.Create")
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return f.insert(owner, in)
}

func (f *fakeItems) Update(_ context.Context, owner, id string, p models.ItemPatch) (*models.Item, error) {
	f.rec.add("items.Update")
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.rows[id]
	if !ok || it.OwnerID != owner {
		return nil, nil
	}
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Description != nil {
		it.Description = p.Description
	}
	if p.ClearCategory {
		it.CategoryID = nil
	} else if p.CategoryID != nil {
		it.CategoryID = p.CategoryID
	}
	v := f.view(id)
	return &v, nil
}

func (f *fakeItems) Delete(_ context.Context, owner, id string) (bool, error) {
	f.rec.add("items.Delete")
	if f.failDelete != nil {
		return false, f.failDelete
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.rows[id]
	if !ok || it.OwnerID != owner {
		return false, nil
	}
	delete(f.rows, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeItems) AddTags(_ context.Context, _ string, itemID string, ids []string) error {
	f.rec.add("items.AddTags n=%d", len(ids))
	if f.failAddTags != nil {
		return f.failAddTags
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.rows[itemID]
	for _, id := range ids {
		if t, ok := f.catalog[id]; ok && !it.HasTag(id) {
			it.Tags = append(it.Tags, t)
		}
	}
	return nil
}

func (f *fakeItems) RemoveTags(_ context.Context, _ string, itemID string, ids []string) error {
	f.rec.add("items.RemoveTags")
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.rows[itemID]
	for _, id := range ids {
		it.Tags = without(it.Tags, id, tagID)
	}
	return nil
}

func (f *fakeItems) SetTags(_ context.Context, _ string, itemID string, ids []string) error {
	f.rec.add("items.SetTags n=%d", len(ids))
	f.mu.Lock()
	defer f.mu.Unlock()
	it := f.rows[itemID]
	it.Tags = nil
	for _, id := range ids {
		if t, ok := f.catalog[id]; ok {
			it.Tags = append(it.Tags, t)
		}
	}
	return nil
}

func (f *fakeItems) ItemIDsWithTags(context.Context, string, []string) ([]string, error) {
	return nil, nil
}

func (f *fakeItems) CountByCategory(context.Context, string, string) (int, error) {
	return 0, nil
}

type fakeAttachments struct {
	mu     sync.Mutex
	rec    *recorder
	rows   []models.Attachment
	nextID int

	failCreate error
}

var _ attachments.Repository = (*fakeAttachments)(nil)

func (f *fakeAttachments) forItem(itemID string) []models.Attachment {
	var out []models.Attachment
	for _, a := range f.rows {
		if a.ItemID == itemID {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeAttachments) ListByItem(_ context.Context, _ string, itemID string) ([]models.Attachment, error) {
	f.rec.add("attachments.ListByItem")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forItem(itemID), nil
}

func (f *fakeAttachments) GetByID(_ context.Context, _ string, id string) (*models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeAttachments) Create(_ context.Context, a *models.Attachment) (*models.Attachment, error) {
	f.rec.add("attachments.Create")
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	row := *a
	row.ID = fmt.Sprintf("att-%d", f.nextID)
	f.rows = append(f.rows, row)
	return &row, nil
}

func (f *fakeAttachments) Delete(_ context.Context, _ string, id string) (bool, error) {
	f.rec.add("attachments.Delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	before := len(f.rows)
	f.rows = without(f.rows, id, attachmentID)
	return len(f.rows) < before, nil
}

func (f *fakeAttachments) DeleteByItem(_ context.Context, _ string, itemID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	keep := f.rows[:0:0]
	for _, a := range f.rows {
		if a.ItemID == itemID {
			n++
			continue
		}
		keep = append(keep, a)
	}
	f.rows = keep
	return n, nil
}

type fakeBlobs struct {
	rec  *recorder
	fail map[string]error

	failDeleteMany error
}

func (f *fakeBlobs) Bucket() string { return "documents" }

func (f *fakeBlobs) UploadMany(_ context.Context, owner, itemID string, files []models.NewFile) []storage.UploadOutcome {
	f.rec.add("blobs.UploadMany n=%d", len(files))
	out := make([]storage.UploadOutcome, len(files))
	for i, file := range files {
		out[i].File = file
		if err := f.fail[file.Name]; err != nil {
			out[i].Err = err
			continue
		}
		path := storage.BuildPath(owner, itemID, fmt.Sprintf("%08x", i), file.Name, time.Unix(1700000000, 0))
		out[i].Result = &storage.UploadResult{Path: path, URL: "https://blobs.example/" + path}
	}
	return out
}

func (f *fakeBlobs) Delete(_ context.Context, path string) error {
	f.rec.add("blobs.Delete %s", path)
	return nil
}

func (f *fakeBlobs) DeleteMany(_ context.Context, paths []string) error {
	f.rec.add("blobs.DeleteMany n=%d", len(paths))
	return f.failDeleteMany
}

func newFile(name string) models.NewFile {
	return models.NewFile{Name: name, Size: 1024, MimeType: "application/pdf"}
}

// fakeCategories and fakeTags keep rows in insertion order and sort only
// in List, like the SQL does.
type fakeCategories struct {
	rec    *recorder
	rows   []models.Category
	nextID int
	// detached is what Delete reports.
	detached int
	failAll  error
}

var _ categories.Repository = (*fakeCategories)(nil)

func (f *fakeCategories) List(context.Context, string) ([]models.Category, error) {
	f.rec.add("categories.List")
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := append([]models.Category(nil), f.rows...)
	sort.Slice(out, func(i, j int) bool { return categoryLess(out[i], out[j]) })
	return out, nil
}

func (f *fakeCategories) GetByID(_ context.Context, _ string, id string) (*models.Category, error) {
	for _, c := range f.rows {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Create(_ context.Context, owner string, in models.CategoryInput) (*models.Category, error) {
	f.rec.add("categories.Create")
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextID++
	c := models.Category{ID: fmt.Sprintf("cat-%d", f.nextID), OwnerID: owner, Name: in.Name, Color: in.Color, Icon: in.Icon}
	f.rows = append(f.rows, c)
	return &c, nil
}

func (f *fakeCategories) Update(_ context.Context, _ string, id string, in models.CategoryInput) (*models.Category, error) {
	f.rec.add("categories.Update")
	if f.failAll != nil {
		return nil, f.failAll
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Name, f.rows[i].Color, f.rows[i].Icon = in.Name, in.Color, in.Icon
			c := f.rows[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategories) Delete(_ context.Context, _ string, id string) (int, bool, error) {
	f.rec.add("categories.Delete")
	if f.failAll != nil {
		return 0, false, f.failAll
	}
	before := len(f.rows)
	f.rows = without(f.rows, id, categoryID)
	if len(f.rows) == before {
		return 0, false, nil
	}
	return f.detached, true, nil
}

func (f *fakeCategories) NameExists(_ context.Context, _ string, name, exclude string) (bool, error) {
	f.rec.add("categories.NameExists")
	for _, c := range f.rows {
		if strings.EqualFold(c.Name, name) && c.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

type fakeTags struct {
	rec     *recorder
	rows    []models.Tag
	nextID  int
	failAll error
}

var _ tags.Repository = (*fakeTags)(nil)

func (f *fakeTags) List(context.Context, string) ([]models.Tag, error) {
	f.rec.add("tags.List")
	if f.failAll != nil {
		return nil, f.failAll
	}
	out := append([]models.Tag(nil), f.rows...)
	sort.Slice(out, func(i, j int) bool { return tagLess(out[i], out[j]) })
	return out, nil
}

func (f *fakeTags) ListForItem(context.Context, string, string) ([]models.Tag, error) {
	return nil, nil
}

func (f *fakeTags) GetByID(_ context.Context, _ string, id string) (*models.Tag, error) {
	for _, t := range f.rows {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTags) Create(_ context.Context, owner string, in models.TagInput) (*models.Tag, error) {
	f.rec.add("tags.Create")
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.nextID++
	t := models.Tag{ID: fmt.Sprintf("tag-%d", f.nextID), OwnerID: owner, Name: in.Name}
	f.rows = append(f.rows, t)
	return &t, nil
}

func (f *fakeTags) Update(_ context.Context, _ string, id string, in models.TagInput) (*models.Tag, error) {
	f.rec.add("tags.Update")
	if f.failAll != nil {
		return nil, f.failAll
	}
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].Name = in.Name
			t := f.rows[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTags) Delete(_ context.Context, _ string, id string) (bool, error) {
	f.rec.add("tags.Delete")
	if f.failAll != nil {
		return false, f.failAll
	}
	before := len(f.rows)
	f.rows = without(f.rows, id, tagID)
	return len(f.rows) < before, nil
}

func (f *fakeTags) NameExists(_ context.Context, _ string, name, exclude string) (bool, error) {
	for _, t := range f.rows {
		if strings.EqualFold(t.Name, name) && t.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

