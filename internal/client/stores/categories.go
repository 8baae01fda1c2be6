package stores

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/categories"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type CategoriesState struct {
	Status
	Categories []models.Category
	Current    *models.Category
}

// CategoriesStore keeps the owner's categories ordered by name.
type CategoriesStore struct {
	st    state[CategoriesState]
	repo  categories.Repository
	items *ItemsStore
	log   logging.Logger
}

// NewCategoriesStore builds the store. Deletions are mirrored into items
// when it is not nil.
func NewCategoriesStore(repo categories.Repository, items *ItemsStore, log logging.Logger) *CategoriesStore {
	return &CategoriesStore{repo: repo, items: items, log: log.With("store", "categories")}
}

func (s *CategoriesStore) Snapshot() CategoriesState { return s.st.Snapshot() }

func (s *CategoriesStore) Subscribe(fn func(CategoriesState)) func() { return s.st.Subscribe(fn) }

func categoryID(c models.Category) string { return c.ID }

func categoryLess(a, b models.Category) bool { return lessName(a.Name, b.Name) }

// FetchAll replaces the held categories.
func (s *CategoriesStore) FetchAll(ctx context.Context, ownerID string) {
	s.st.update(func(v *CategoriesState) { v.begin() })

	list, err := s.repo.List(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "fetch categories", "error", err)
	}

	s.st.update(func(v *CategoriesState) {
		if err == nil {
			v.Categories = list
		}
		v.finish(err)
	})
}

// FetchOne loads a category into the current slot, returning nil on failure.
func (s *CategoriesStore) FetchOne(ctx context.Context, ownerID, id string) *models.Category {
	c, err := s.repo.GetByID(ctx, ownerID, id)
	if err == nil && c == nil {
		err = fmt.Errorf("category %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		fail(&s.st, err)
		return nil
	}
	succeed(&s.st, func(v *CategoriesState) { v.Current = c })
	return c
}

func (s *CategoriesStore) Create(ctx context.Context, ownerID string, in models.CategoryInput) *models.Category {
	if err := models.ValidateCategory(&in); err != nil {
		fail(&s.st, err)
		return nil
	}
	if err := s.checkName(ctx, ownerID, in.Name, ""); err != nil {
		fail(&s.st, err)
		return nil
	}

	c, err := s.repo.Create(ctx, ownerID, in)
	if err != nil {
		s.log.Error(ctx, "create category", "error", err)
		fail(&s.st, err)
		return nil
	}

	succeed(&s.st, func(v *CategoriesState) {
		v.Categories = upsertSorted(v.Categories, *c, categoryID, categoryLess)
	})
	return c
}

func (s *CategoriesStore) Update(ctx context.Context, ownerID, id string, in models.CategoryInput) *models.Category {
	if err := models.ValidateCategory(&in); err != nil {
		fail(&s.st, err)
		return nil
	}
	if err := s.checkName(ctx, ownerID, in.Name, id); err != nil {
		fail(&s.st, err)
		return nil
	}

	c, err := s.repo.Update(ctx, ownerID, id, in)
	if err == nil && c == nil {
		err = fmt.Errorf("category %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "update category", "id", id, "error", err)
		fail(&s.st, err)
		return nil
	}

	succeed(&s.st, func(v *CategoriesState) {
		v.Categories = upsertSorted(v.Categories, *c, categoryID, categoryLess)
		if v.Current != nil && v.Current.ID == c.ID {
			v.Current = c
		}
	})
	if s.items != nil {
		s.items.ReplaceCategory(*c)
	}
	return c
}

// Delete removes the category and reports how many items lost it. ok is
// false when nothing was deleted.
func (s *CategoriesStore) Delete(ctx context.Context, ownerID, id string) (detached int, ok bool) {
	detached, deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err == nil && !deleted {
		err = fmt.Errorf("category %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "delete category", "id", id, "error", err)
		fail(&s.st, err)
		return 0, false
	}

	succeed(&s.st, func(v *CategoriesState) {
		v.Categories = without(v.Categories, id, categoryID)
		if v.Current != nil && v.Current.ID == id {
			v.Current = nil
		}
	})
	if s.items != nil {
		s.items.DetachCategory(id)
	}
	s.log.Info(ctx, "category deleted", "id", id, "detached", detached)
	return detached, true
}

// checkName rejects a name another category of the owner already uses.
// The check is advisory: a lookup failure lets the write through.
func (s *CategoriesStore) checkName(ctx context.Context, ownerID, name, excludeID string) error {
	exists, err := s.repo.NameExists(ctx, ownerID, name, excludeID)
	if err != nil {
		s.log.Warn(ctx, "category name check", "error", err)
		return nil
	}
	if exists {
		return &DuplicateNameError{Kind: "category", Name: name}
	}
	return nil
}

func (s *CategoriesStore) Reset() {
	s.st.set(CategoriesState{})
}
