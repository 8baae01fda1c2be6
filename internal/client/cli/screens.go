package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/client/format"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/stores"
)

var errNotSignedIn = errors.New("Please login first")

// Navigate switches to r and renders it.
func (a *App) Navigate(ctx context.Context, r Route) error {
	if requiresAuth(r) && !a.isLoggedIn() {
		return errNotSignedIn
	}
	a.mu.Lock()
	a.route = r
	a.mu.Unlock()
	a.log.Debug(ctx, "navigate", "route", r.route())

	switch r := r.(type) {
	case ItemsRoute:
		return a.itemsScreen(ctx)
	case ItemDetailRoute:
		return a.itemScreen(ctx, r.ItemID)
	case ItemEditRoute:
		return a.editScreen(ctx, r.ItemID)
	case NewItemRoute:
		return a.newItemScreen(ctx)
	case CategoriesRoute:
		return a.categoriesScreen(ctx)
	case TagsRoute:
		return a.tagsScreen(ctx)
	case RemindersRoute:
		return a.remindersScreen(ctx)
	case SettingsRoute:
		return a.settingsScreen(ctx)
	case SignInRoute:
		return a.signInScreen(ctx)
	}
	return fmt.Errorf("unknown route %q", r.route())
}

// Route is the screen last navigated to.
func (a *App) Route() Route {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.route
}

// lookups loads categories and tags once so names can be resolved.
func (a *App) lookups(ctx context.Context) ([]models.Category, []models.Tag) {
	owner := a.owner()
	if a.root.Categories.Snapshot().Phase == stores.PhaseIdle {
		a.root.Categories.FetchAll(ctx, owner)
		if msg := a.root.Categories.Snapshot().Err; msg != "" {
			a.log.Warn(ctx, "load categories", "error", msg)
		}
	}
	if a.root.Tags.Snapshot().Phase == stores.PhaseIdle {
		a.root.Tags.FetchAll(ctx, owner)
		if msg := a.root.Tags.Snapshot().Err; msg != "" {
			a.log.Warn(ctx, "load tags", "error", msg)
		}
	}
	return a.root.Categories.Snapshot().Categories, a.root.Tags.Snapshot().Tags
}

func (a *App) itemsScreen(ctx context.Context) error {
	a.root.Items.FetchItems(ctx, a.owner(), true)
	return a.printItems(ctx)
}

// printItems renders the loaded list and remembers the order for numeric
// references. A failed last fetch is returned instead of an empty list.
func (a *App) printItems(ctx context.Context) error {
	st := a.root.Items.Snapshot()
	if st.Phase == stores.PhaseError {
		return failed(st.Status)
	}
	now := a.now()

	ids := make([]string, len(st.Items))
	for i, it := range st.Items {
		ids[i] = it.ID
	}
	a.mu.Lock()
	a.listed = ids
	a.mu.Unlock()

	if !st.Filters.IsZero() {
		cats, tags := a.lookups(ctx)
		printlnFn(filterLine(st.Filters, cats, tags))
	}
	for i, it := range st.Items {
		printlnFn(itemLine(i+1, it, now))
	}
	printlnFn(itemsFooter(st))
	return nil
}

// resolveItem maps a list position or a raw id to an item id.
func (a *App) resolveItem(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("Which item? Give its number from the list")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, err := pickIndex(ref, len(a.listed)); err == nil && n >= 0 {
		return a.listed[n], nil
	}
	if strings.Trim(ref, "0123456789") == "" {
		return "", fmt.Errorf("No item number %s in the list", ref)
	}
	return ref, nil
}

func (a *App) itemScreen(ctx context.Context, id string) error {
	owner := a.owner()
	it := a.root.Items.FetchItem(ctx, owner, id)
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}
	now := a.now()

	for _, l := range itemDetail(*it, now) {
		printlnFn(l)
	}
	if len(it.Attachments) > 0 {
		printlnFn("Attachments:")
		for i, att := range it.Attachments {
			printlnFn(attachmentLine(i+1, att, a.blobs.AccessURL(ctx, att.Path)))
		}
	}

	rems, ok := a.root.Reminders.FetchForItem(ctx, owner, id)
	if !ok {
		a.log.Warn(ctx, "load item reminders", "item", id, "error", a.root.Reminders.Snapshot().Err)
		return nil
	}
	if len(rems) > 0 {
		printlnFn("Reminders:")
		for i, r := range rems {
			r.ItemTitle = it.Title
			printlnFn(reminderLine(i+1, r, now))
		}
	}
	return nil
}

func (a *App) newItemScreen(ctx context.Context) error {
	owner := a.owner()

	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	desc, err := GetMultiline(a.reader, "Description (optional)", a.out)
	if err != nil {
		return err
	}
	in := models.ItemInput{Title: title}
	if desc != "" {
		in.Description = &desc
	}

	cat, err := a.pickCategory(ctx, nil)
	if err != nil {
		return err
	}
	in.CategoryID = cat

	names, err := GetSimpleText(a.reader, "Tags (comma separated, optional)", a.out)
	if err != nil {
		return err
	}
	tagIDs, err := a.tagIDs(ctx, splitList(names))
	if err != nil {
		return err
	}

	paths, err := GetSimpleText(a.reader, "Files to attach (comma separated paths, optional)", a.out)
	if err != nil {
		return err
	}
	files, err := openFiles(splitList(paths))
	if err != nil {
		return err
	}

	var it *models.Item
	a.loading("Saving", func() { it = a.root.Items.CreateItem(ctx, owner, in, tagIDs, files) })
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}

	if got := len(it.Attachments); got < len(files) {
		a.toast(stores.ToastError, fmt.Sprintf("Item created, but only %d of %d files were uploaded", got, len(files)))
	} else {
		a.toast(stores.ToastSuccess, "Item created")
	}
	return a.Navigate(ctx, ItemDetailRoute{ItemID: it.ID})
}

func (a *App) editScreen(ctx context.Context, id string) error {
	owner := a.owner()
	it := a.root.Items.FetchItem(ctx, owner, id)
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}

	var patch models.ItemPatch

	title, err := GetDefaultText(a.reader, "Title", it.Title, a.out)
	if err != nil {
		return err
	}
	if title != it.Title {
		patch.Title = &title
	}

	cur := ""
	if it.Description != nil {
		cur = *it.Description
	}
	desc, err := GetDefaultText(a.reader, "Description", cur, a.out)
	if err != nil {
		return err
	}
	if desc != cur {
		patch.Description = &desc
	}

	cat, err := a.pickCategory(ctx, it.CategoryID)
	if err != nil {
		return err
	}
	switch {
	case cat == nil && it.CategoryID != nil:
		patch.ClearCategory = true
	case cat != nil && (it.CategoryID == nil || *cat != *it.CategoryID):
		patch.CategoryID = cat
	}

	curTags := make([]string, len(it.Tags))
	for i, t := range it.Tags {
		curTags[i] = t.Name
	}
	names, err := GetDefaultText(a.reader, "Tags (comma separated, '-' for none)", strings.Join(curTags, ", "), a.out)
	if err != nil {
		return err
	}
	var tagIDs []string
	if names != strings.Join(curTags, ", ") {
		if names == "-" {
			names = ""
		}
		if tagIDs, err = a.tagIDs(ctx, splitList(names)); err != nil {
			return err
		}
		if tagIDs == nil {
			tagIDs = []string{}
		}
	}

	if patch.Empty() && tagIDs == nil {
		printlnFn("Nothing changed.")
		return nil
	}

	var saved *models.Item
	a.loading("Saving", func() { saved = a.root.Items.UpdateItem(ctx, owner, id, patch, tagIDs) })
	if saved == nil {
		return failed(a.root.Items.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Item updated")
	return a.Navigate(ctx, ItemDetailRoute{ItemID: id})
}

// pickCategory offers the categories as a sheet. An empty answer keeps
// current; "0" chooses none.
func (a *App) pickCategory(ctx context.Context, current *string) (*string, error) {
	cats, _ := a.lookups(ctx)
	if len(cats) == 0 {
		return current, nil
	}

	options := make([]string, len(cats))
	for i, c := range cats {
		options[i] = c.Name
	}
	a.root.UI.ShowSheet("Category", options, 0)
	defer a.root.UI.HideSheet()

	sheet := a.root.UI.Snapshot().Sheet
	printlnFn(sheet.Title + ":")
	printlnFn("  0. (none)")
	for i, o := range sheet.Options {
		mark := " "
		if current != nil && cats[i].ID == *current {
			mark = "*"
		}
		printlnFn(fmt.Sprintf("%s%2d. %s", mark, i+1, o))
	}

	answer, err := GetSimpleText(a.reader, "Choose a number (Enter to keep)", a.out)
	if err != nil {
		return nil, err
	}
	if answer == "0" {
		return nil, nil
	}
	n, err := pickIndex(answer, len(cats))
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return current, nil
	}
	return &cats[n].ID, nil
}

// tagIDs resolves tag names, creating the ones that do not exist yet.
func (a *App) tagIDs(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	_, tags := a.lookups(ctx)

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if t, ok := findTag(tags, name); ok {
			ids = append(ids, t.ID)
			continue
		}
		t := a.root.Tags.Create(ctx, a.owner(), models.TagInput{Name: name})
		if t == nil {
			return nil, failed(a.root.Tags.Snapshot().Status)
		}
		ids = append(ids, t.ID)
	}
	return ids, nil
}

func (a *App) categoriesScreen(ctx context.Context) error {
	a.root.Categories.FetchAll(ctx, a.owner())
	if st := a.root.Categories.Snapshot(); st.Phase == stores.PhaseError {
		return failed(st.Status)
	}
	cats := a.root.Categories.Snapshot().Categories
	if len(cats) == 0 {
		printlnFn("No categories yet. Type 'addcategory <name>' to create one.")
		return nil
	}
	for _, c := range cats {
		printlnFn(categoryLine(c))
	}
	return nil
}

func (a *App) tagsScreen(ctx context.Context) error {
	a.root.Tags.FetchAll(ctx, a.owner())
	if st := a.root.Tags.Snapshot(); st.Phase == stores.PhaseError {
		return failed(st.Status)
	}
	tags := a.root.Tags.Snapshot().Tags
	if len(tags) == 0 {
		printlnFn("No tags yet. Type 'addtag <name>' to create one.")
		return nil
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = "#" + t.Name
	}
	printlnFn(strings.Join(names, " "))
	return nil
}

func (a *App) remindersScreen(ctx context.Context) error {
	a.root.Reminders.FetchAll(ctx, a.owner())
	if st := a.root.Reminders.Snapshot(); st.Phase == stores.PhaseError {
		return failed(st.Status)
	}
	now := a.now()
	groups := a.root.Reminders.Grouped(now)

	var ids []string
	for _, g := range groups {
		printlnFn(g.Bucket.String() + ":")
		for _, r := range g.Reminders {
			ids = append(ids, r.ID)
			printlnFn(reminderLine(len(ids), r, now))
		}
	}
	a.mu.Lock()
	a.reminders = ids
	a.mu.Unlock()
	if len(ids) == 0 {
		printlnFn("No upcoming reminders. Type 'remind <item> <when>' to add one.")
	}
	return nil
}

func (a *App) settingsScreen(ctx context.Context) error {
	st := a.root.Auth.Snapshot()
	if st.User != nil {
		printlnFn("Account:        " + st.User.Email)
	} else {
		printlnFn("Account:        not signed in")
	}
	lock := "off"
	if a.lock.Enabled(ctx) {
		lock = "on"
	}
	printlnFn("Biometric lock: " + lock)
	if owner := a.owner(); owner != "" {
		printlnFn("Storage:        " + a.storageUsage(ctx, owner))
	}
	printlnFn("Notifications:  " + a.notes.Permission(ctx).String())
	printlnFn(fmt.Sprintf("Page size:      %d", a.config.PageSize))
	printlnFn("Toast duration: " + a.config.ToastDuration.String())
	return nil
}

func (a *App) signInScreen(ctx context.Context) error {
	if a.isLoggedIn() {
		printlnFn("Already signed in " + a.status())
		return nil
	}

	var ok bool
	a.loading("Waiting for sign-in", func() { ok = a.root.Auth.SignInWithGoogle(ctx) })
	if !ok {
		if st := a.root.Auth.Snapshot(); st.Err != "" {
			return failed(st.Status)
		}
		printlnFn("Sign-in cancelled.")
		return nil
	}

	if p := a.root.Auth.Persistence(); p != nil {
		go func() {
			if err := p.Wait(context.WithoutCancel(ctx)); err != nil {
				a.log.Warn(ctx, "session not saved", "error", err)
			}
		}()
	}
	a.toast(stores.ToastSuccess, "Signed in "+a.status())
	return a.Navigate(ctx, ItemsRoute{})
}

// storageUsage sums the objects stored under the owner's prefix.
func (a *App) storageUsage(ctx context.Context, owner string) string {
	objs, err := a.blobs.List(ctx, owner+"/")
	if err != nil {
		a.log.Warn(ctx, "list stored files", "error", err)
		return "unavailable"
	}
	var total int64
	for _, o := range objs {
		total += o.Size
	}
	return fmt.Sprintf("%d files, %s", len(objs), format.FileSize(total))
}
