package stores

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "user-1"

type itemsFixture struct {
	rec   *recorder
	repo  *fakeItems
	atts  *fakeAttachments
	blobs *fakeBlobs
	store *ItemsStore
}

func newItemsFixture() *itemsFixture {
	rec := &recorder{}
	atts := &fakeAttachments{rec: rec}
	repo := newFakeItems(rec, atts)
	blobs := &fakeBlobs{rec: rec, fail: map[string]error{}}
	return &itemsFixture{
		rec:   rec,
		repo:  repo,
		atts:  atts,
		blobs: blobs,
		store: NewItemsStore(repo, atts, blobs, logging.Nop()),
	}
}

func TestCreateItem_PassportWithTagsAndFile(t *testing.T) {
	f := newItemsFixture()
	f.repo.catalog["tag-a"] = models.Tag{ID: "tag-a", Name: "travel"}
	f.repo.catalog["tag-b"] = models.Tag{ID: "tag-b", Name: "identity"}
	ctx := context.Background()

	it := f.store.CreateItem(ctx, owner, models.ItemInput{Title: "  Passport "},
		[]string{"tag-a", "tag-b"}, []models.NewFile{newFile("passport scan.pdf")})
	require.NotNil(t, it)

	assert.Equal(t, []string{
		"items.Create",
		"items.AddTags n=2",
		"blobs.UploadMany n=1",
		"attachments.Create",
		"items.List page=1",
	}, f.rec.list())

	st := f.store.Snapshot()
	require.Len(t, st.Items, 1)
	got := st.Items[0]
	assert.Equal(t, it.ID, got.ID)
	assert.Equal(t, "Passport", got.Title)
	assert.Len(t, got.Tags, 2)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "passport scan.pdf", got.Attachments[0].FileName)
	assert.True(t, strings.HasSuffix(got.Attachments[0].Path, "_passport_scan.pdf"))
	assert.Equal(t, "documents", got.Attachments[0].Bucket)
	assert.Contains(t, got.Attachments[0].Path, owner+"/"+it.ID+"/")
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Empty(t, st.Err)
}

func TestCreateItem_ValidationFailsBeforeAnyCall(t *testing.T) {
	f := newItemsFixture()

	it := f.store.CreateItem(context.Background(), owner, models.ItemInput{Title: "   "}, nil, nil)
	assert.Nil(t, it)
	assert.Empty(t, f.rec.list())
	assert.Equal(t, "Please enter a title", f.store.Snapshot().Err)
}

func TestCreateItem_TagLinkFailureUndoesInsert(t *testing.T) {
	f := newItemsFixture()
	f.repo.failAddTags = errBackend

	it := f.store.CreateItem(context.Background(), owner, models.ItemInput{Title: "Lease"}, []string{"tag-a"}, nil)
	require.Nil(t, it)

	assert.Equal(t, []string{"items.Create", "items.AddTags n=1", "items.Delete"}, f.rec.list())
	assert.Empty(t, f.repo.rows)
	assert.Empty(t, f.store.Snapshot().Items)
	assert.Equal(t, errBackend.Error(), f.store.Snapshot().Err)
}

func TestCreateItem_PartialFileFailures(t *testing.T) {
	f := newItemsFixture()
	f.blobs.fail["broken.pdf"] = errors.New("upload refused")
	ctx := context.Background()

	it := f.store.CreateItem(ctx, owner, models.ItemInput{Title: "Insurance"}, nil,
		[]models.NewFile{newFile("policy.pdf"), newFile("broken.pdf")})
	require.NotNil(t, it)
	assert.Len(t, it.Attachments, 1)
	assert.Equal(t, 1, f.rec.count("attachments.Create"))

	// a row that cannot be recorded takes its blob with it
	f.rec.reset()
	f.atts.failCreate = errBackend
	added := f.store.AddAttachments(ctx, owner, it.ID, []models.NewFile{newFile("extra.pdf")})
	assert.Nil(t, added)
	assert.Equal(t, "1 of 1 files could not be attached", f.store.Snapshot().Err)
	assert.Equal(t, 1, f.rec.count("blobs.Delete "))
	assert.Len(t, f.store.Snapshot().Items[0].Attachments, 1)
}

func TestDeleteItem_BatchesBlobDeletes(t *testing.T) {
	f := newItemsFixture()
	ctx := context.Background()

	it := f.store.CreateItem(ctx, owner, models.ItemInput{Title: "Car"}, nil,
		[]models.NewFile{newFile("title.pdf"), newFile("registration.pdf")})
	require.NotNil(t, it)
	require.Len(t, f.store.Snapshot().Items, 1)

	var hooked string
	f.store.OnItemDeleted(func(_ context.Context, id string) { hooked = id })

	f.rec.reset()
	require.True(t, f.store.DeleteItem(ctx, owner, it.ID))

	assert.Equal(t, []string{"attachments.ListByItem", "blobs.DeleteMany n=2", "items.Delete"}, f.rec.list())
	assert.Empty(t, f.store.Snapshot().Items)
	assert.Equal(t, it.ID, hooked)
}

func TestDeleteItem_BlobFailureStillDeletesRow(t *testing.T) {
	f := newItemsFixture()
	ctx := context.Background()

	it := f.store.CreateItem(ctx, owner, models.ItemInput{Title: "Visa"}, nil, []models.NewFile{newFile("visa.pdf")})
	require.NotNil(t, it)

	f.blobs.failDeleteMany = errBackend
	assert.True(t, f.store.DeleteItem(ctx, owner, it.ID))
	assert.Empty(t, f.store.Snapshot().Items)
	assert.Empty(t, f.store.Snapshot().Err)
}

func TestDeleteItem_FailureLeavesListUntouched(t *testing.T) {
	f := newItemsFixture()
	f.repo.seed(owner, 2)
	ctx := context.Background()
	f.store.FetchItems(ctx, owner, true)

	f.repo.failDelete = errBackend
	assert.False(t, f.store.DeleteItem(ctx, owner, "item-1"))

	st := f.store.Snapshot()
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 2, st.Total)
	assert.Contains(t, st.Err, "backend unavailable")

	f.repo.failDelete = nil
	assert.False(t, f.store.DeleteItem(ctx, owner, "missing"))
	assert.Contains(t, f.store.Snapshot().Err, common.ErrorNotFound.Error())
}

func TestFetchItems_PagesAndLoadMore(t *testing.T) {
	f := newItemsFixture()
	f.store.pageSize = 2
	f.repo.seed(owner, 3)
	ctx := context.Background()

	f.store.FetchItems(ctx, owner, true)
	st := f.store.Snapshot()
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 3, st.Total)
	assert.True(t, st.HasMore)
	assert.Equal(t, "Item 3", st.Items[0].Title)

	assert.True(t, f.store.LoadMore(ctx, owner))
	st = f.store.Snapshot()
	assert.Len(t, st.Items, 3)
	assert.Equal(t, 2, st.Page)
	assert.False(t, st.HasMore)

	// nothing left: no call, no page change
	calls := f.rec.count("items.List")
	assert.False(t, f.store.LoadMore(ctx, owner))
	assert.Equal(t, calls, f.rec.count("items.List"))
	assert.Equal(t, 2, f.store.Snapshot().Page)

	// refresh goes back to one page
	f.store.FetchItems(ctx, owner, true)
	assert.Len(t, f.store.Snapshot().Items, 2)
	assert.Equal(t, 1, f.store.Snapshot().Page)
}

func TestLoadMore_SkippedWhileFetching(t *testing.T) {
	f := newItemsFixture()
	f.store.st.update(func(v *ItemsState) {
		v.HasMore = true
		v.Page = 1
		v.inFlight = 1
	})

	assert.False(t, f.store.LoadMore(context.Background(), owner))
	assert.Zero(t, f.rec.count("items.List"))
}

func TestFetchItems_PhasesAndErrors(t *testing.T) {
	f := newItemsFixture()
	f.repo.seed(owner, 1)
	ctx := context.Background()

	var phases []Phase
	f.store.Subscribe(func(s ItemsState) { phases = append(phases, s.Phase) })

	f.store.FetchItems(ctx, owner, true)
	f.repo.failList = errBackend
	f.store.FetchItems(ctx, owner, true)

	assert.Equal(t, []Phase{PhaseLoading, PhaseReady, PhaseRefreshing, PhaseError}, phases)
	st := f.store.Snapshot()
	assert.Len(t, st.Items, 1, "failed reload keeps the last list")
	assert.Equal(t, "backend unavailable", st.Err)
	assert.False(t, st.Fetching())
}

func TestFetchItems_FailureOnlyRecordsError(t *testing.T) {
	f := newItemsFixture()
	f.repo.failList = errBackend
	ctx := context.Background()

	f.store.FetchItems(ctx, owner, true)

	assert.Equal(t, ItemsState{Status: Status{Phase: PhaseError, Err: "backend unavailable"}}, f.store.Snapshot())

	// the next success clears it
	f.repo.failList = nil
	f.store.FetchItems(ctx, owner, true)
	assert.Equal(t, PhaseReady, f.store.Snapshot().Phase)
	assert.Empty(t, f.store.Snapshot().Err)
}

func TestSetFilters_ResetsPagination(t *testing.T) {
	f := newItemsFixture()
	f.store.pageSize = 1
	f.repo.seed(owner, 3)
	ctx := context.Background()

	f.store.FetchItems(ctx, owner, true)
	require.True(t, f.store.LoadMore(ctx, owner))
	require.Equal(t, 2, f.store.Snapshot().Page)

	f.store.SetFilters(ctx, owner, models.ItemFilter{Search: "item"})
	st := f.store.Snapshot()
	assert.Equal(t, 1, st.Page)
	assert.Len(t, st.Items, 1)
	assert.Equal(t, "item", st.Filters.Search)

	f.store.ClearFilters(ctx, owner)
	assert.True(t, f.store.Snapshot().Filters.IsZero())
}

func TestUpdateItem_PatchAndTagReplacement(t *testing.T) {
	f := newItemsFixture()
	f.repo.catalog["tag-a"] = models.Tag{ID: "tag-a", Name: "a"}
	f.repo.catalog["tag-b"] = models.Tag{ID: "tag-b", Name: "b"}
	ids := f.repo.seed(owner, 1)
	ctx := context.Background()
	f.store.FetchItems(ctx, owner, true)
	require.NotNil(t, f.store.FetchItem(ctx, owner, ids[0]))

	title := "Renamed"
	it := f.store.UpdateItem(ctx, owner, ids[0], models.ItemPatch{Title: &title}, []string{"tag-b"})
	require.NotNil(t, it)
	assert.Equal(t, "Renamed", it.Title)
	require.Len(t, it.Tags, 1)
	assert.Equal(t, "tag-b", it.Tags[0].ID)

	st := f.store.Snapshot()
	assert.Equal(t, "Renamed", st.Items[0].Title)
	assert.Equal(t, "Renamed", st.Current.Title)

	blank := " "
	assert.Nil(t, f.store.UpdateItem(ctx, owner, ids[0], models.ItemPatch{Title: &blank}, nil))
	assert.Equal(t, "Please enter a title", f.store.Snapshot().Err)
	assert.Equal(t, "Renamed", f.store.Snapshot().Items[0].Title)

	assert.Nil(t, f.store.UpdateItem(ctx, owner, "missing", models.ItemPatch{Title: &title}, nil))
	assert.Contains(t, f.store.Snapshot().Err, common.ErrorNotFound.Error())
}

func TestFetchItem_Missing(t *testing.T) {
	f := newItemsFixture()

	assert.Nil(t, f.store.FetchItem(context.Background(), owner, "missing"))
	assert.Nil(t, f.store.Snapshot().Current)
	assert.Contains(t, f.store.Snapshot().Err, common.ErrorNotFound.Error())
}

func TestDeleteAttachment(t *testing.T) {
	f := newItemsFixture()
	ctx := context.Background()
	it := f.store.CreateItem(ctx, owner, models.ItemInput{Title: "Deed"}, nil, []models.NewFile{newFile("deed.pdf")})
	require.NotNil(t, it)
	attID := f.store.Snapshot().Items[0].Attachments[0].ID

	f.rec.reset()
	require.True(t, f.store.DeleteAttachment(ctx, owner, attID))
	assert.Equal(t, 1, f.rec.count("blobs.Delete "+owner+"/"+it.ID))
	assert.Empty(t, f.store.Snapshot().Items[0].Attachments)

	assert.False(t, f.store.DeleteAttachment(ctx, owner, attID))
	assert.Contains(t, f.store.Snapshot().Err, common.ErrorNotFound.Error())
}

func TestMirrors_CategoryAndTagChanges(t *testing.T) {
	f := newItemsFixture()
	cat := "cat-1"
	f.store.st.set(ItemsState{Items: []models.Item{
		{ID: "a", CategoryID: &cat, Category: &models.Category{ID: cat, Name: "Old"}, Tags: []models.Tag{{ID: "t1", Name: "x"}}},
		{ID: "b", CategoryID: &cat, Tags: []models.Tag{{ID: "t2", Name: "y"}}},
		{ID: "c"},
	}})

	f.store.ReplaceCategory(models.Category{ID: cat, Name: "New"})
	assert.Equal(t, "New", f.store.Snapshot().Items[1].Category.Name)

	f.store.ReplaceTag(models.Tag{ID: "t1", Name: "renamed"})
	assert.Equal(t, "renamed", f.store.Snapshot().Items[0].Tags[0].Name)

	f.store.DetachCategory(cat)
	f.store.RemoveTag("t2")
	for _, it := range f.store.Snapshot().Items {
		assert.Nil(t, it.CategoryID, it.ID)
		assert.Nil(t, it.Category, it.ID)
		assert.False(t, it.HasTag("t2"), it.ID)
	}
	assert.True(t, f.store.Snapshot().Items[0].HasTag("t1"))
}
