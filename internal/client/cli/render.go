package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/format"
	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/stores"
)

func toastLine(t stores.Toast) string {
	switch t.Kind {
	case stores.ToastSuccess:
		return "✓ " + t.Message
	case stores.ToastError:
		return "✗ " + t.Message
	default:
		return "• " + t.Message
	}
}

// itemLine is one row of the item list; n is the 1-based position the user
// refers to the item by.
func itemLine(n int, it models.Item, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d. %s", n, it.Title)
	if it.IsFolder {
		b.WriteString("/")
	}
	if it.Category != nil {
		fmt.Fprintf(&b, "  [%s]", it.Category.Name)
	}
	for _, t := range it.Tags {
		fmt.Fprintf(&b, " #%s", t.Name)
	}
	if len(it.Attachments) > 0 {
		fmt.Fprintf(&b, "  (%d files)", len(it.Attachments))
	}
	fmt.Fprintf(&b, "  %s", format.RelativeTime(now, it.UpdatedAt))
	return b.String()
}

func itemsFooter(st stores.ItemsState) string {
	if len(st.Items) == 0 {
		if !st.Filters.IsZero() {
			return "No items match the current filters."
		}
		return "No items yet. Type 'add' to create one."
	}
	s := fmt.Sprintf("Showing %d of %d", len(st.Items), st.Total)
	if st.HasMore {
		s += ". Type 'more' for the next page."
	}
	return s
}

// filterLine describes active filters, or "" when there are none.
func filterLine(f models.ItemFilter, cats []models.Category, tags []models.Tag) string {
	if f.IsZero() {
		return ""
	}
	var parts []string
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("%q", f.Search))
	}
	if f.CategoryID != "" {
		name := f.CategoryID
		for _, c := range cats {
			if c.ID == f.CategoryID {
				name = c.Name
			}
		}
		parts = append(parts, "@"+name)
	}
	for _, id := range f.TagIDs {
		name := id
		for _, t := range tags {
			if t.ID == id {
				name = t.Name
			}
		}
		parts = append(parts, "#"+name)
	}
	if f.SortBy != "" {
		parts = append(parts, "sort:"+sortKey(f.SortBy))
	}
	if f.SortDir != "" {
		parts = append(parts, f.SortDir)
	}
	return "Filters: " + strings.Join(parts, " ")
}

func itemDetail(it models.Item, now time.Time) []string {
	lines := []string{it.Title}
	if it.Category != nil {
		lines = append(lines, "Category: "+it.Category.Name)
	}
	if len(it.Tags) > 0 {
		names := make([]string, len(it.Tags))
		for i, t := range it.Tags {
			names[i] = "#" + t.Name
		}
		lines = append(lines, "Tags: "+strings.Join(names, " "))
	}
	if it.Description != nil && *it.Description != "" {
		lines = append(lines, "", *it.Description, "")
	}
	lines = append(lines,
		fmt.Sprintf("Created: %s (%s)", format.DateTime(it.CreatedAt), format.RelativeTime(now, it.CreatedAt)),
		fmt.Sprintf("Updated: %s (%s)", format.DateTime(it.UpdatedAt), format.RelativeTime(now, it.UpdatedAt)),
	)
	return lines
}

func attachmentLine(n int, a models.Attachment, url string) string {
	return fmt.Sprintf("%3d. %s  %s  %s\n     %s", n, a.FileName, format.FileSize(a.Size), a.MimeType, url)
}

func reminderLine(n int, r models.Reminder, now time.Time) string {
	s := fmt.Sprintf("%3d. %s  %s (%s)", n, r.ItemTitle, format.DateTime(r.NotifyAt), format.RelativeTime(now, r.NotifyAt))
	if r.Note != nil && *r.Note != "" {
		s += "  " + *r.Note
	}
	return s
}

func categoryLine(c models.Category) string {
	return fmt.Sprintf("%-24s %s  %s", c.Name, c.Color, c.Icon)
}

func sortKey(field string) string {
	switch field {
	case models.SortByCreatedAt:
		return "created"
	case models.SortByUpdatedAt:
		return "updated"
	}
	return field
}
