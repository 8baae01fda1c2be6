// Package format renders timestamps and sizes for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// RelativeTime describes t relative to now: "Just now" within a minute in
// the past, "N minutes ago"/"N hours ago"/"N days ago" further back and
// "in N minutes"/"in N hours"/"in N days" for the future. Counts are
// truncated, so 90 seconds ago is "1 minute ago".
func RelativeTime(now, t time.Time) string {
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}

	if !future && d < time.Minute {
		return "Just now"
	}

	var n int64
	var unit string
	switch {
	case d < time.Minute:
		return "in less than a minute"
	case d < time.Hour:
		n, unit = int64(d/time.Minute), "minute"
	case d < 24*time.Hour:
		n, unit = int64(d/time.Hour), "hour"
	default:
		n, unit = int64(d/(24*time.Hour)), "day"
	}
	if n != 1 {
		unit += "s"
	}

	if future {
		return fmt.Sprintf("in %d %s", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FileSize renders a byte count with 1024-based units and at most one
// decimal: 0 → "0 B", 1536 → "1.5 KB", 2097152 → "2 MB".
func FileSize(n int64) string {
	if n <= 0 {
		return "0 B"
	}

	exp := 0
	v := float64(n)
	for v >= 1024 && exp < len(sizeUnits)-1 {
		v /= 1024
		exp++
	}
	v = math.Round(v*10) / 10
	if v >= 1024 && exp < len(sizeUnits)-1 {
		v = math.Round(v/1024*10) / 10
		exp++
	}

	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[exp]
}

// DateTime renders t for lists, in t's own location.
func DateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04")
}
