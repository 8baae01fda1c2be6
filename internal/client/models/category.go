package models

import "time"

type Category struct {
	ID        string
	OwnerID   string
	Name      string
	Color     string
	Icon      string
	CreatedAt time.Time
}

type CategoryInput struct {
	Name  string `validate:"required,max=50"`
	Color string `validate:"omitempty,hexcolor"`
	Icon  string `validate:"omitempty,max=50"`
}

// DefaultCategoryColor is used when the caller leaves Color empty.
const DefaultCategoryColor = "#6366F1"

// DefaultCategoryIcon is used when the caller leaves Icon empty.
const DefaultCategoryIcon = "folder"
