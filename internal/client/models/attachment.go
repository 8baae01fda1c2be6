package models

import (
	"io"
	"time"
)

// Attachment describes a blob stored for an item.
type Attachment struct {
	ID        string
	ItemID    string
	OwnerID   string
	Bucket    string
	Path      string
	URL       string
	MimeType  string
	FileName  string
	Size      int64
	CreatedAt time.Time
}

// NewFile is a local file picked for upload.
type NewFile struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}
