package models

import "time"

type Tag struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
}

type TagInput struct {
	Name string `validate:"required,max=30"`
}

// ItemTag is a row of the item/tag join table.
type ItemTag struct {
	ItemID string
	TagID  string
}
