package stores

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/tags"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type TagsState struct {
	Status
	Tags []models.Tag
	// ItemTags holds the tags of the item last passed to FetchForItem.
	ItemTags []models.Tag
}

// TagsStore keeps the owner's tags ordered by name.
type TagsStore struct {
	st    state[TagsState]
	repo  tags.Repository
	items *ItemsStore
	log   logging.Logger
}

func NewTagsStore(repo tags.Repository, items *ItemsStore, log logging.Logger) *TagsStore {
	return &TagsStore{repo: repo, items: items, log: log.With("store", "tags")}
}

func (s *TagsStore) Snapshot() TagsState { return s.st.Snapshot() }

func (s *TagsStore) Subscribe(fn func(TagsState)) func() { return s.st.Subscribe(fn) }

func tagID(t models.Tag) string { return t.ID }

func tagLess(a, b models.Tag) bool { return lessName(a.Name, b.Name) }

func (s *TagsStore) FetchAll(ctx context.Context, ownerID string) {
	s.st.update(func(v *TagsState) { v.begin() })

	list, err := s.repo.List(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "fetch tags", "error", err)
	}

	s.st.update(func(v *TagsState) {
		if err == nil {
			v.Tags = list
		}
		v.finish(err)
	})
}

// FetchForItem loads the tags of one item into ItemTags. ok is false when
// the load failed.
func (s *TagsStore) FetchForItem(ctx context.Context, ownerID, itemID string) ([]models.Tag, bool) {
	list, err := s.repo.ListForItem(ctx, ownerID, itemID)
	if err != nil {
		s.log.Error(ctx, "fetch item tags", "item", itemID, "error", err)
		fail(&s.st, err)
		return nil, false
	}
	succeed(&s.st, func(v *TagsState) { v.ItemTags = list })
	return list, true
}

func (s *TagsStore) Create(ctx context.Context, ownerID string, in models.TagInput) *models.Tag {
	if err := models.ValidateTag(&in); err != nil {
		fail(&s.st, err)
		return nil
	}
	if err := s.checkName(ctx, ownerID, in.Name, ""); err != nil {
		fail(&s.st, err)
		return nil
	}

	t, err := s.repo.Create(ctx, ownerID, in)
	if err != nil {
		s.log.Error(ctx, "create tag", "error", err)
		fail(&s.st, err)
		return nil
	}

	succeed(&s.st, func(v *TagsState) { v.Tags = upsertSorted(v.Tags, *t, tagID, tagLess) })
	return t
}

func (s *TagsStore) Update(ctx context.Context, ownerID, id string, in models.TagInput) *models.Tag {
	if err := models.ValidateTag(&in); err != nil {
		fail(&s.st, err)
		return nil
	}
	if err := s.checkName(ctx, ownerID, in.Name, id); err != nil {
		fail(&s.st, err)
		return nil
	}

	t, err := s.repo.Update(ctx, ownerID, id, in)
	if err == nil && t == nil {
		err = fmt.Errorf("tag %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "update tag", "id", id, "error", err)
		fail(&s.st, err)
		return nil
	}

	succeed(&s.st, func(v *TagsState) {
		v.Tags = upsertSorted(v.Tags, *t, tagID, tagLess)
		v.ItemTags, _ = replaced(v.ItemTags, *t, tagID)
	})
	if s.items != nil {
		s.items.ReplaceTag(*t)
	}
	return t
}

// Delete removes the tag. Its item associations are gone before the tag
// row is, so no item keeps it.
func (s *TagsStore) Delete(ctx context.Context, ownerID, id string) bool {
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err == nil && !deleted {
		err = fmt.Errorf("tag %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "delete tag", "id", id, "error", err)
		fail(&s.st, err)
		return false
	}

	succeed(&s.st, func(v *TagsState) {
		v.Tags = without(v.Tags, id, tagID)
		v.ItemTags = without(v.ItemTags, id, tagID)
	})
	if s.items != nil {
		s.items.RemoveTag(id)
	}
	return true
}

func (s *TagsStore) checkName(ctx context.Context, ownerID, name, excludeID string) error {
	exists, err := s.repo.NameExists(ctx, ownerID, name, excludeID)
	if err != nil {
		s.log.Warn(ctx, "tag name check", "error", err)
		return nil
	}
	if exists {
		return &DuplicateNameError{Kind: "tag", Name: name}
	}
	return nil
}

func (s *TagsStore) Reset() {
	s.st.set(TagsState{})
}
