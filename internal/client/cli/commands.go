package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/client/format"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/stores"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/filex"
)

func (a *App) Login(ctx context.Context) error {
	return a.Navigate(ctx, SignInRoute{})
}

func (a *App) Logout(ctx context.Context) error {
	if !a.confirm(stores.Dialog{
		Title:        "Sign out",
		Message:      "You will need to sign in again to see your documents.",
		ConfirmLabel: "Sign out",
	}) {
		return nil
	}
	if !a.root.Auth.SignOut(ctx) {
		return failed(a.root.Auth.Snapshot().Status)
	}
	a.mu.Lock()
	a.listed, a.reminders = nil, nil
	a.mu.Unlock()
	a.toast(stores.ToastInfo, "Signed out")
	return nil
}

func (a *App) Items(ctx context.Context) error {
	return a.Navigate(ctx, ItemsRoute{})
}

// More loads the next page and prints the whole list again.
func (a *App) More(ctx context.Context) error {
	if !a.root.Items.LoadMore(ctx, a.owner()) {
		printlnFn("No more items.")
		return nil
	}
	return a.printItems(ctx)
}

// Search applies filters parsed from args; no args clears them.
func (a *App) Search(ctx context.Context, args []string) error {
	owner := a.owner()
	if len(args) == 0 {
		a.root.Items.ClearFilters(ctx, owner)
		return a.printItems(ctx)
	}

	cats, tags := a.lookups(ctx)
	f, err := parseSearch(args, cats, tags)
	if err != nil {
		return err
	}
	a.root.Items.SetFilters(ctx, owner, f)
	return a.printItems(ctx)
}

func (a *App) Show(ctx context.Context, ref string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	return a.Navigate(ctx, ItemDetailRoute{ItemID: id})
}

func (a *App) Add(ctx context.Context) error {
	return a.Navigate(ctx, NewItemRoute{})
}

func (a *App) Edit(ctx context.Context, ref string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	return a.Navigate(ctx, ItemEditRoute{ItemID: id})
}

func (a *App) Delete(ctx context.Context, ref string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	owner := a.owner()
	it := a.root.Items.FetchItem(ctx, owner, id)
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}

	msg := fmt.Sprintf("%q will be permanently deleted.", it.Title)
	if n := len(it.Attachments); n > 0 {
		msg = fmt.Sprintf("%q and its %d attached files will be permanently deleted.", it.Title, n)
	}
	if !a.confirm(stores.Dialog{Title: "Delete item", Message: msg, ConfirmLabel: "Delete", Destructive: true}) {
		return nil
	}

	var deleted bool
	a.loading("Deleting", func() { deleted = a.root.Items.DeleteItem(ctx, owner, id) })
	if !deleted {
		return failed(a.root.Items.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Item deleted")
	return a.printItems(ctx)
}

// Attach uploads local files to an existing item.
func (a *App) Attach(ctx context.Context, ref string, paths []string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("Usage: attach <item> <path>...")
	}
	files, err := openFiles(paths)
	if err != nil {
		return err
	}

	var added []models.Attachment
	a.loading("Uploading", func() { added = a.root.Items.AddAttachments(ctx, a.owner(), id, files) })
	if added == nil {
		return failed(a.root.Items.Snapshot().Status)
	}
	if len(added) < len(files) {
		a.toast(stores.ToastError, fmt.Sprintf("Only %d of %d files were uploaded", len(added), len(files)))
		return nil
	}
	a.toast(stores.ToastSuccess, fmt.Sprintf("%d files attached", len(added)))
	return nil
}

// Detach removes attachment n (1-based, as shown by "show") from an item.
func (a *App) Detach(ctx context.Context, ref, n string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	owner := a.owner()
	it := a.root.Items.FetchItem(ctx, owner, id)
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}
	i, err := pickIndex(n, len(it.Attachments))
	if err != nil || i < 0 {
		return errors.New("Usage: detach <item> <file number>")
	}
	att := it.Attachments[i]

	if !a.confirm(stores.Dialog{
		Title:        "Remove file",
		Message:      fmt.Sprintf("%q will be permanently deleted.", att.FileName),
		ConfirmLabel: "Remove",
		Destructive:  true,
	}) {
		return nil
	}
	if !a.root.Items.DeleteAttachment(ctx, owner, att.ID) {
		return failed(a.root.Items.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "File removed")
	return nil
}

// Save downloads attachment n of an item into dir.
func (a *App) Save(ctx context.Context, ref, n, dir string) error {
	id, err := a.resolveItem(ref)
	if err != nil {
		return err
	}
	it := a.root.Items.FetchItem(ctx, a.owner(), id)
	if it == nil {
		return failed(a.root.Items.Snapshot().Status)
	}
	i, err := pickIndex(n, len(it.Attachments))
	if err != nil || i < 0 {
		return errors.New("Usage: save <item> <file number> [dir]")
	}
	att := it.Attachments[i]

	if dir == "" {
		dir = "."
	}
	dest := filepath.Join(dir, filex.SanitizeFileName(att.FileName))
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("Cannot write %s: %w", dest, err)
	}

	var size int64
	a.loading("Downloading", func() { size, err = a.blobs.Download(ctx, att.Path, f) })
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return err
	}
	a.toast(stores.ToastSuccess, fmt.Sprintf("Saved %s (%s)", dest, format.FileSize(size)))
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	return a.Navigate(ctx, CategoriesRoute{})
}

// AddCategory takes a name and an optional trailing color ("#RRGGBB") and
// icon.
func (a *App) AddCategory(ctx context.Context, args []string) error {
	in := categoryInput(args)
	c := a.root.Categories.Create(ctx, a.owner(), in)
	if c == nil {
		return failed(a.root.Categories.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, fmt.Sprintf("Category %q created", c.Name))
	return nil
}

func (a *App) RenameCategory(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("Usage: renamecategory <name> <new name>")
	}
	cats, _ := a.lookups(ctx)
	c, ok := findCategory(cats, args[0])
	if !ok {
		return fmt.Errorf("No category named %q", args[0])
	}
	in := categoryInput(args[1:])
	if in.Color == "" {
		in.Color = c.Color
	}
	if in.Icon == "" {
		in.Icon = c.Icon
	}
	if a.root.Categories.Update(ctx, a.owner(), c.ID, in) == nil {
		return failed(a.root.Categories.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Category updated")
	return nil
}

func (a *App) RemoveCategory(ctx context.Context, name string) error {
	cats, _ := a.lookups(ctx)
	c, ok := findCategory(cats, name)
	if !ok {
		return fmt.Errorf("No category named %q", name)
	}
	if !a.confirm(stores.Dialog{
		Title:        "Delete category",
		Message:      fmt.Sprintf("Items in %q will keep their documents but lose the category.", c.Name),
		ConfirmLabel: "Delete",
		Destructive:  true,
	}) {
		return nil
	}
	n, ok := a.root.Categories.Delete(ctx, a.owner(), c.ID)
	if !ok {
		return failed(a.root.Categories.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, fmt.Sprintf("Category deleted, %d items updated", n))
	return nil
}

func (a *App) Tags(ctx context.Context) error {
	return a.Navigate(ctx, TagsRoute{})
}

func (a *App) AddTag(ctx context.Context, name string) error {
	t := a.root.Tags.Create(ctx, a.owner(), models.TagInput{Name: strings.TrimPrefix(name, "#")})
	if t == nil {
		return failed(a.root.Tags.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, fmt.Sprintf("Tag #%s created", t.Name))
	return nil
}

func (a *App) RenameTag(ctx context.Context, name, to string) error {
	_, tags := a.lookups(ctx)
	t, ok := findTag(tags, strings.TrimPrefix(name, "#"))
	if !ok {
		return fmt.Errorf("No tag named %q", name)
	}
	if a.root.Tags.Update(ctx, a.owner(), t.ID, models.TagInput{Name: strings.TrimPrefix(to, "#")}) == nil {
		return failed(a.root.Tags.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Tag renamed")
	return nil
}

func (a *App) RemoveTag(ctx context.Context, name string) error {
	_, tags := a.lookups(ctx)
	t, ok := findTag(tags, strings.TrimPrefix(name, "#"))
	if !ok {
		return fmt.Errorf("No tag named %q", name)
	}
	if !a.confirm(stores.Dialog{
		Title:        "Delete tag",
		Message:      fmt.Sprintf("#%s will be removed from every item.", t.Name),
		ConfirmLabel: "Delete",
		Destructive:  true,
	}) {
		return nil
	}
	if !a.root.Tags.Delete(ctx, a.owner(), t.ID) {
		return failed(a.root.Tags.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Tag deleted")
	return nil
}

func (a *App) Reminders(ctx context.Context) error {
	return a.Navigate(ctx, RemindersRoute{})
}

// Remind schedules a reminder: remind <item> <when> [note...].
func (a *App) Remind(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("Usage: remind <item> <when> [note]")
	}
	id, err := a.resolveItem(args[0])
	if err != nil {
		return err
	}

	when, rest := args[1], args[2:]
	// "2006-01-02 15:04" arrives as two fields.
	if len(rest) > 0 && strings.Count(rest[0], ":") == 1 && len(rest[0]) == len("15:04") {
		when, rest = when+" "+rest[0], rest[1:]
	}
	at, err := parseWhen(when, a.now())
	if err != nil {
		return err
	}

	in := models.ReminderInput{ItemID: id, NotifyAt: at}
	if note := strings.Join(rest, " "); note != "" {
		in.Note = &note
	}
	r := a.root.Reminders.Create(ctx, a.owner(), in)
	if r == nil {
		return failed(a.root.Reminders.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Reminder set for "+r.NotifyAt.Format("Jan 2 15:04"))
	return nil
}

// Unremind deletes reminder n as numbered by the reminders screen.
func (a *App) Unremind(ctx context.Context, ref string) error {
	a.mu.Lock()
	ids := a.reminders
	a.mu.Unlock()

	i, err := pickIndex(ref, len(ids))
	if err != nil || i < 0 {
		return errors.New("Usage: unremind <number from the reminders list>")
	}
	if !a.root.Reminders.Delete(ctx, a.owner(), ids[i]) {
		return failed(a.root.Reminders.Snapshot().Status)
	}
	a.toast(stores.ToastSuccess, "Reminder deleted")
	return a.Navigate(ctx, RemindersRoute{})
}

// Lock turns the biometric lock on or off, or reports it with no argument.
func (a *App) Lock(ctx context.Context, arg string) error {
	switch arg {
	case "":
		state := "off"
		if a.lock.Enabled(ctx) {
			state = "on"
		}
		printlnFn("Biometric lock is " + state)
		return nil

	case "on":
		if !a.enroll.IsEnrolled(ctx) {
			if err := a.enrollPassphrase(ctx); err != nil {
				return err
			}
		}
		res, err := a.lock.Enable(ctx)
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Reason.Message())
		}
		a.toast(stores.ToastSuccess, "Biometric lock enabled")
		return nil

	case "off":
		if err := a.lock.Disable(ctx); err != nil {
			return err
		}
		a.toast(stores.ToastSuccess, "Biometric lock disabled")
		return nil
	}
	return errors.New("Usage: lock [on|off]")
}

func (a *App) enrollPassphrase(ctx context.Context) error {
	printlnFn("Choose a passphrase to unlock docvault with.")
	pw, err := GetPassword(a.out, "Passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	again, err := GetPassword(a.out, "Repeat passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	if string(pw) != string(again) {
		return errors.New("Passphrases do not match")
	}
	return a.enroll.Enroll(ctx, pw)
}

func (a *App) Settings(ctx context.Context) error {
	return a.Navigate(ctx, SettingsRoute{})
}

// categoryInput reads "<name words> [#color] [icon:<name>]".
func categoryInput(args []string) models.CategoryInput {
	var in models.CategoryInput
	var words []string
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "#"):
			in.Color = arg
		case strings.HasPrefix(arg, "icon:"):
			in.Icon = strings.TrimPrefix(arg, "icon:")
		default:
			words = append(words, arg)
		}
	}
	in.Name = strings.Join(words, " ")
	return in
}

func openFiles(paths []string) ([]models.NewFile, error) {
	files := make([]models.NewFile, 0, len(paths))
	for _, p := range paths {
		f, err := filex.OpenLocal(p)
		if err != nil {
			return nil, fmt.Errorf("Cannot read %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}
