package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/storage"
)

// PhotoService handles photo metadata plus the cleanup side of the object
// store. Deletes are a two-step saga: the stored object goes first
// (best-effort), then the metadata row; an unreachable store never blocks
// the metadata delete.
type PhotoService struct {
	repo   repository.PhotoRepository
	store  storage.Store
	logger *slog.Logger
}

func NewPhotoService(repo repository.PhotoRepository, store storage.Store, logger *slog.Logger) *PhotoService {
	return &PhotoService{repo: repo, store: store, logger: logger}
}

func (s *PhotoService) GetByID(ctx context.Context, id string) (*model.Photo, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "photo ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *PhotoService) List(ctx context.Context, filter repository.PhotoFilter) ([]model.Photo, int, error) {
	photos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list photos", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("listing photos: %w", err)
	}
	return photos, total, nil
}

// SetFavorite flips the favorite flag and returns the updated photo.
func (s *PhotoService) SetFavorite(ctx context.Context, id string, favorite bool) (*model.Photo, error) {
	photo, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	photo.IsFavorite = favorite
	if err := s.repo.Update(ctx, photo); err != nil {
		s.logger.Error("failed to update photo",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating photo: %w", err)
	}
	return photo, nil
}

// Delete removes the stored object and then the metadata record. A store
// failure is logged and swallowed: the object becomes orphaned garbage, but
// the photo disappears from the library either way.
func (s *PhotoService) Delete(ctx context.Context, id string) error {
	photo, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.deleteObject(ctx, photo)

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("photo deleted", slog.String("id", id))
	return nil
}

// BatchDeleteResult reports the per-item outcome of a batch delete.
type BatchDeleteResult struct {
	DeletedIDs []string
	NotFound   []string
}

// BatchDelete deletes every photo it can and reports the rest, mirroring
// the partial-success contract of batch upload.
func (s *PhotoService) BatchDelete(ctx context.Context, ids []string) (*BatchDeleteResult, error) {
	if len(ids) == 0 {
		return nil, apperror.ValidationFailed("photoIds", "no photo IDs provided")
	}

	photos, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving photos: %w", err)
	}

	found := make(map[string]*model.Photo, len(photos))
	for i := range photos {
		found[photos[i].ID] = &photos[i]
	}

	result := &BatchDeleteResult{}
	for _, id := range ids {
		photo, ok := found[id]
		if !ok {
			result.NotFound = append(result.NotFound, id)
			continue
		}
		s.deleteObject(ctx, photo)
		if err := s.repo.Delete(ctx, id); err != nil {
			s.logger.Error("batch delete: metadata delete failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			result.NotFound = append(result.NotFound, id)
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, id)
	}

	s.logger.Info("photos batch deleted",
		slog.Int("deleted", len(result.DeletedIDs)),
		slog.Int("missing", len(result.NotFound)),
	)
	return result, nil
}

// Download fetches the stored object and re-encodes it as PNG, so clients
// always receive a universally readable file regardless of the storage
// format. Returns the suggested filename alongside the bytes.
func (s *PhotoService) Download(ctx context.Context, id string) (string, []byte, error) {
	photo, err := s.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}

	key, ok := s.store.KeyFromURL(photo.URL)
	if !ok {
		return "", nil, apperror.NotFound("photo object", id)
	}

	reader, err := s.store.Get(ctx, key)
	if err != nil {
		return "", nil, apperror.Unavailable("object storage unavailable", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, apperror.Unavailable("object storage unavailable", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("decoding stored photo %s: %w", id, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", nil, fmt.Errorf("encoding download for %s: %w", id, err)
	}

	name := photo.OriginalName
	if name == "" {
		name = photo.ID
	}
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"

	return name, buf.Bytes(), nil
}

// deleteObject is the best-effort half of the delete saga.
func (s *PhotoService) deleteObject(ctx context.Context, photo *model.Photo) {
	key, ok := s.store.KeyFromURL(photo.URL)
	if !ok {
		s.logger.Warn("photo URL does not belong to this store, skipping object delete",
			slog.String("id", photo.ID),
			slog.String("url", photo.URL),
		)
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("object delete failed, metadata delete proceeds",
			slog.String("id", photo.ID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
