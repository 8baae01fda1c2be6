package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// parseSearch turns "search" arguments into a filter. Plain words form the
// search text, "#name" picks a tag, "@name" a category, "sort:title",
// "sort:created" or "sort:updated" the order and "asc"/"desc" its
// direction. Names match case-insensitively.
func parseSearch(args []string, cats []models.Category, tags []models.Tag) (models.ItemFilter, error) {
	var f models.ItemFilter
	var words []string

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "#") && len(arg) > 1:
			t, ok := findTag(tags, arg[1:])
			if !ok {
				return models.ItemFilter{}, fmt.Errorf("no tag named %q", arg[1:])
			}
			f.TagIDs = append(f.TagIDs, t.ID)
		case strings.HasPrefix(arg, "@") && len(arg) > 1:
			c, ok := findCategory(cats, arg[1:])
			if !ok {
				return models.ItemFilter{}, fmt.Errorf("no category named %q", arg[1:])
			}
			f.CategoryID = c.ID
		case strings.HasPrefix(arg, "sort:"):
			switch strings.TrimPrefix(arg, "sort:") {
			case "title":
				f.SortBy = models.SortByTitle
			case "created":
				f.SortBy = models.SortByCreatedAt
			case "updated":
				f.SortBy = models.SortByUpdatedAt
			default:
				return models.ItemFilter{}, fmt.Errorf("unknown sort %q (use title, created or updated)", arg)
			}
		case arg == models.SortAsc || arg == models.SortDesc:
			f.SortDir = arg
		default:
			words = append(words, arg)
		}
	}
	f.Search = strings.Join(words, " ")
	return f, nil
}

func findTag(tags []models.Tag, name string) (models.Tag, bool) {
	for _, t := range tags {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return models.Tag{}, false
}

func findCategory(cats []models.Category, name string) (models.Category, bool) {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.Category{}, false
}

// defaultReminderHour is the time of day used when only a date is given.
const defaultReminderHour = 9

// parseWhen reads a reminder time relative to now: "+30m", "+2h", "+3d",
// "today", "tomorrow", "2006-01-02", "2006-01-02 15:04" or RFC 3339.
// Dates without a time mean 09:00 in now's location.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	at := func(d time.Time) time.Time {
		y, m, day := d.Date()
		return time.Date(y, m, day, defaultReminderHour, 0, 0, 0, loc)
	}

	switch strings.ToLower(s) {
	case "":
		return time.Time{}, fmt.Errorf("a time is required")
	case "today":
		return at(now), nil
	case "tomorrow":
		return at(now.AddDate(0, 0, 1)), nil
	}

	if strings.HasPrefix(s, "+") && len(s) > 2 {
		n, err := strconv.Atoi(s[1 : len(s)-1])
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("bad offset %q", s)
		}
		switch s[len(s)-1] {
		case 'm':
			return now.Add(time.Duration(n) * time.Minute), nil
		case 'h':
			return now.Add(time.Duration(n) * time.Hour), nil
		case 'd':
			return now.AddDate(0, 0, n), nil
		case 'w':
			return now.AddDate(0, 0, 7*n), nil
		}
		return time.Time{}, fmt.Errorf("bad offset unit in %q (use m, h, d or w)", s)
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return at(t), nil
	}
	return time.Time{}, fmt.Errorf("cannot read time %q", s)
}

// pickIndex reads a 1-based choice among n options. Empty input returns -1.
func pickIndex(answer string, n int) (int, error) {
	if answer == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(answer)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("choose a number between 1 and %d", n)
	}
	return i - 1, nil
}
