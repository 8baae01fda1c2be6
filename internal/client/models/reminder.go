package models

import "time"

type Reminder struct {
	ID        string
	ItemID    string
	OwnerID   string
	NotifyAt  time.Time
	Note      *string
	Sent      bool
	CreatedAt time.Time

	// ItemTitle is filled by list calls that join the owning item.
	ItemTitle string
}

type ReminderInput struct {
	ItemID   string    `validate:"required"`
	NotifyAt time.Time `validate:"required"`
	Note     *string   `validate:"omitempty,max=500"`
}

type ReminderPatch struct {
	NotifyAt *time.Time
	Note     *string `validate:"omitempty,max=500"`
	Sent     *bool
}

// ReminderBucket is the display group of a reminder relative to now.
type ReminderBucket int

const (
	BucketOverdue ReminderBucket = iota
	BucketToday
	BucketTomorrow
	BucketThisWeek
	BucketLater
)

// Buckets lists every bucket in display order.
var Buckets = []ReminderBucket{BucketOverdue, BucketToday, BucketTomorrow, BucketThisWeek, BucketLater}

func (b ReminderBucket) String() string {
	switch b {
	case BucketOverdue:
		return "Overdue"
	case BucketToday:
		return "Today"
	case BucketTomorrow:
		return "Tomorrow"
	case BucketThisWeek:
		return "This Week"
	default:
		return "Later"
	}
}

// ClassifyReminder buckets a notify-at time by calendar day against the
// wall clock now, in now's location. Days before today are Overdue, so a
// reminder from earlier today is still Today. This Week covers the next
// seven calendar days after tomorrow.
func ClassifyReminder(now, at time.Time) ReminderBucket {
	days := calendarDays(now, at)
	switch {
	case days < 0:
		return BucketOverdue
	case days == 0:
		return BucketToday
	case days == 1:
		return BucketTomorrow
	case days <= 7:
		return BucketThisWeek
	default:
		return BucketLater
	}
}

func calendarDays(from, to time.Time) int {
	loc := from.Location()
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.In(loc).Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// ReminderGroup is one non-empty bucket with its reminders in time order.
type ReminderGroup struct {
	Bucket    ReminderBucket
	Reminders []Reminder
}
