// Package storage defines the object-store capability consumed by the
// upload pipeline and the photo service, plus the Uploader that writes
// normalized assets under collision-resistant keys.
//
// The store is an injected collaborator, not a process-wide singleton:
// whoever wires the application decides whether keys land on local disk or
// a cloud bucket, and tests inject fakes.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcastellanos/recuerdos/internal/apperror"
)

// Object is one blob to be stored, with the metadata the backend should
// attach to it. Objects are always publicly readable once stored.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// Store is the object-store capability: write a public object, read it
// back, delete it, and translate between keys and public URLs.
type Store interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error

	// PublicURL returns the durable public URL for a stored key.
	PublicURL(key string) string
	// KeyFromURL inverts PublicURL. Returns ("", false) for URLs that do
	// not belong to this store.
	KeyFromURL(url string) (string, bool)
}

// cacheControl is attached to every stored object. Keys are randomized, so
// an object is never overwritten — a year-long cache is safe.
const cacheControl = "public, max-age=31536000"

// Uploader writes image payloads to the store and hands back their public
// URLs.
type Uploader struct {
	store  Store
	logger *slog.Logger
}

func NewUploader(store Store, logger *slog.Logger) *Uploader {
	return &Uploader{store: store, logger: logger}
}

// Upload stores data under `{folder/}{millisecond-timestamp}-{uuid}{ext}`
// and returns the public URL. The timestamp+UUID key is practically
// collision-free without any coordination.
//
// Non-image payloads and empty payloads are rejected with a validation
// error; backend failures surface as ErrUnavailable, and the caller must
// not persist metadata in that case.
func (u *Uploader) Upload(ctx context.Context, data []byte, mimeType, folder string) (string, error) {
	if len(data) == 0 {
		return "", apperror.ValidationFailed("file", "no file provided")
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", apperror.ValidationFailed("file", "invalid file type")
	}

	prefix := ""
	if folder != "" {
		prefix = strings.Trim(folder, "/") + "/"
	}
	key := fmt.Sprintf("%s%d-%s%s", prefix, time.Now().UnixMilli(), uuid.NewString(), extForMIME(mimeType))

	err := u.store.Put(ctx, key, Object{
		Data:         data,
		ContentType:  mimeType,
		CacheControl: cacheControl,
	})
	if err != nil {
		u.logger.Error("object store write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", apperror.Unavailable("object storage unavailable", err)
	}

	return u.store.PublicURL(key), nil
}

// extForMIME maps an image MIME type to a file extension for the storage
// key. Unknown image subtypes keep their subtype as the extension.
func extForMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	}
	if _, sub, found := strings.Cut(mimeType, "/"); found && sub != "" {
		return "." + sub
	}
	return ".bin"
}
