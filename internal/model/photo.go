// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Photo is the metadata record for one stored image asset.
//
// A Photo row is created only after the asset has been successfully written
// to the object store — there is never a Photo pointing at a missing object
// (the reverse can happen: a best-effort object delete may fail while the
// metadata delete proceeds).
type Photo struct {
	ID           string    `json:"id"           db:"id"`
	URL          string    `json:"url"          db:"url"`           // public object-store URL
	Format       string    `json:"format"       db:"format"`        // short format name, e.g. "webp"
	Folder       string    `json:"folder"       db:"folder"`        // object-store key prefix
	OriginalName string    `json:"originalName" db:"original_name"` // client-supplied filename
	Size         int64     `json:"size"         db:"size"`          // stored size in bytes
	IsFavorite   bool      `json:"isFavorite"   db:"is_favorite"`
	UploadedBy   string    `json:"uploadedBy,omitempty" db:"uploaded_by"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}
