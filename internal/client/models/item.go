// Package models defines the client-side domain records of docvault and the
// input DTOs screens hand to the stores.
package models

import "time"

// Item is the user's core document record.
type Item struct {
	ID          string
	OwnerID     string
	Title       string
	Description *string
	CategoryID  *string
	IsFolder    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Embedded relations, filled by detail lookups and list calls.
	Category    *Category
	Tags        []Tag
	Attachments []Attachment
	Reminders   []Reminder
}

// HasTag reports whether the item carries the tag with the given id.
func (i *Item) HasTag(tagID string) bool {
	for _, t := range i.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// ItemInput carries the fields of a create call.
type ItemInput struct {
	Title       string  `validate:"required,max=200"`
	Description *string `validate:"omitempty,max=5000"`
	CategoryID  *string
	IsFolder    bool
}

// ItemPatch is a partial update; nil fields are left untouched.
// ClearCategory detaches the category (CategoryID is ignored then).
type ItemPatch struct {
	Title         *string `validate:"omitempty,max=200"`
	Description   *string `validate:"omitempty,max=5000"`
	CategoryID    *string
	ClearCategory bool
	IsFolder      *bool
}

// Empty reports whether the patch changes no column.
func (p ItemPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.CategoryID == nil && !p.ClearCategory && p.IsFolder == nil
}
