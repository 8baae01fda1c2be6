package models

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyReminder(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want ReminderBucket
	}{
		{name: "yesterday", at: now.AddDate(0, 0, -1), want: BucketOverdue},
		{name: "last minute of yesterday", at: time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), want: BucketOverdue},
		{name: "earlier today", at: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), want: BucketToday},
		{name: "a minute ago", at: now.Add(-time.Minute), want: BucketToday},
		{name: "later today", at: now.Add(6 * time.Hour), want: BucketToday},
		{name: "tomorrow morning", at: time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), want: BucketTomorrow},
		{name: "exactly three days out", at: now.AddDate(0, 0, 3), want: BucketThisWeek},
		{name: "seven days out", at: now.AddDate(0, 0, 7), want: BucketThisWeek},
		{name: "eight days out", at: now.AddDate(0, 0, 8), want: BucketLater},
		{name: "forty days out", at: now.AddDate(0, 0, 40), want: BucketLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReminder(now, tt.at))
		})
	}
}

func TestClassifyReminder_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, loc)
	// 21:30 UTC is 00:30 next day in UTC+3.
	at := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)

	assert.Equal(t, BucketTomorrow, ClassifyReminder(now, at))
}

func TestReminderBucket_String(t *testing.T) {
	want := []string{"Overdue", "Today", "Tomorrow", "This Week", "Later"}
	for i, b := range Buckets {
		assert.Equal(t, want[i], b.String())
	}
}

func TestValidateItem(t *testing.T) {
	in := &ItemInput{Title: "   "}
	err := ValidateItem(in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorValidation))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a title", verr.Message)

	desc := "  scanned copy  "
	in = &ItemInput{Title: "  Passport ", Description: &desc}
	require.NoError(t, ValidateItem(in))
	assert.Equal(t, "Passport", in.Title)
	assert.Equal(t, "scanned copy", *in.Description)
}

func TestValidateItemPatch_RejectsBlankTitle(t *testing.T) {
	blank := " "
	err := ValidateItemPatch(&ItemPatch{Title: &blank})
	require.ErrorIs(t, err, common.ErrorValidation)

	require.NoError(t, ValidateItemPatch(&ItemPatch{}))
}

func TestValidateCategory(t *testing.T) {
	require.ErrorIs(t, ValidateCategory(&CategoryInput{Name: ""}), common.ErrorValidation)

	err := ValidateCategory(&CategoryInput{Name: "Home", Color: "blue"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Color", verr.Field)

	require.NoError(t, ValidateCategory(&CategoryInput{Name: " Home ", Color: "#AABBCC"}))
}

func TestValidateTag(t *testing.T) {
	in := &TagInput{Name: "  travel "}
	require.NoError(t, ValidateTag(in))
	assert.Equal(t, "travel", in.Name)

	require.ErrorIs(t, ValidateTag(&TagInput{}), common.ErrorValidation)
}

func TestValidateReminder(t *testing.T) {
	err := ValidateReminder(&ReminderInput{ItemID: "i1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a reminder time", verr.Message)

	require.NoError(t, ValidateReminder(&ReminderInput{ItemID: "i1", NotifyAt: time.Now()}))
}

func TestPagination_Offset(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, Pagination{Page: 3, Limit: 20}.Offset())
	assert.Equal(t, 0, Pagination{Page: 0, Limit: 20}.Offset())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Session{}).Expired(now))
	assert.True(t, (&Session{Expiry: now.Add(-time.Second)}).Expired(now))
	assert.False(t, (&Session{Expiry: now.Add(time.Minute)}).Expired(now))
}

func TestItem_HasTag(t *testing.T) {
	it := Item{Tags: []Tag{{ID: "t1"}, {ID: "t2"}}}
	assert.True(t, it.HasTag("t2"))
	assert.False(t, it.HasTag("t3"))
}
