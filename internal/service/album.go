package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
)

const (
	MaxAlbumNameLength        = 50
	MaxAlbumDescriptionLength = 200
)

// AlbumInput carries the writable album fields for create and update.
type AlbumInput struct {
	Name          string
	Description   string
	CoverPhotoURL string
	PhotoIDs      []string
}

// AlbumService handles albums and their photo memberships.
type AlbumService struct {
	repo   repository.AlbumRepository
	photos repository.PhotoRepository
	logger *slog.Logger
}

func NewAlbumService(repo repository.AlbumRepository, photos repository.PhotoRepository, logger *slog.Logger) *AlbumService {
	return &AlbumService{repo: repo, photos: photos, logger: logger}
}

func (s *AlbumService) Create(ctx context.Context, input AlbumInput) (*model.Album, error) {
	if err := validateAlbumInput(&input, true); err != nil {
		return nil, err
	}

	album := &model.Album{
		Name:          input.Name,
		Description:   input.Description,
		CoverPhotoURL: input.CoverPhotoURL,
		PhotoIDs:      dedupeIDs(input.PhotoIDs),
	}
	if err := s.repo.CreateAlbum(ctx, album); err != nil {
		s.logger.Error("failed to create album",
			slog.String("name", input.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating album: %w", err)
	}

	s.logger.Info("album created", slog.String("id", album.ID), slog.String("name", album.Name))
	return album, nil
}

func (s *AlbumService) GetByID(ctx context.Context, id string) (*model.Album, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "album ID is required")
	}
	return s.repo.GetAlbumByID(ctx, id)
}

func (s *AlbumService) List(ctx context.Context, filter repository.AlbumFilter) ([]model.Album, int, error) {
	albums, total, err := s.repo.ListAlbums(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list albums", slog.String("error", err.Error()))
		return nil, 0, fmt.Errorf("listing albums: %w", err)
	}
	return albums, total, nil
}

// Update applies a partial update to the album's descriptive fields.
// Membership goes through AddPhotoToAlbums/RemovePhotoFromAlbum.
func (s *AlbumService) Update(ctx context.Context, id string, input AlbumInput) (*model.Album, error) {
	album, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateAlbumInput(&input, false); err != nil {
		return nil, err
	}
	if input.Name != "" {
		album.Name = input.Name
	}
	if input.Description != "" {
		album.Description = input.Description
	}
	if input.CoverPhotoURL != "" {
		album.CoverPhotoURL = input.CoverPhotoURL
	}

	if err := s.repo.UpdateAlbum(ctx, album); err != nil {
		return nil, err
	}

	s.logger.Info("album updated", slog.String("id", album.ID))
	return album, nil
}

func (s *AlbumService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "album ID is required")
	}

	if err := s.repo.DeleteAlbum(ctx, id); err != nil {
		return err
	}

	s.logger.Info("album deleted", slog.String("id", id))
	return nil
}

// AddPhotoToAlbums adds one photo to every named album. The photo must
// exist; albums that do not are skipped, but if none of them exist the
// whole call is a NotFound. Adding to an album that already contains the
// photo is a no-op, so retries are safe.
func (s *AlbumService) AddPhotoToAlbums(ctx context.Context, photoID string, albumIDs []string) ([]model.Album, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, apperror.ValidationFailed("photoId", "photo ID is required")
	}
	if len(albumIDs) == 0 {
		return nil, apperror.ValidationFailed("albumIds", "at least one album ID is required")
	}

	if _, err := s.photos.GetByID(ctx, photoID); err != nil {
		return nil, err
	}

	updated := []model.Album{}
	for _, albumID := range dedupeIDs(albumIDs) {
		added, count, err := s.repo.AddPhoto(ctx, albumID, photoID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warn("skipping missing album", slog.String("album", albumID))
				continue
			}
			return nil, err
		}

		album, err := s.repo.GetAlbumByID(ctx, albumID)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *album)

		s.logger.Info("photo membership updated",
			slog.String("album", albumID),
			slog.String("photo", photoID),
			slog.Bool("added", added),
			slog.Int("photoCount", count),
		)
	}

	if len(updated) == 0 {
		return nil, apperror.NotFound("album", strings.Join(albumIDs, ","))
	}
	return updated, nil
}

// RemovePhotoFromAlbum removes the photo from the album. Removing a photo
// that was never a member succeeds with removed=false and the count
// unchanged.
func (s *AlbumService) RemovePhotoFromAlbum(ctx context.Context, photoID, albumID string) (bool, int, error) {
	photoID = strings.TrimSpace(photoID)
	albumID = strings.TrimSpace(albumID)
	if photoID == "" {
		return false, 0, apperror.ValidationFailed("photoId", "photo ID is required")
	}
	if albumID == "" {
		return false, 0, apperror.ValidationFailed("albumId", "album ID is required")
	}

	removed, count, err := s.repo.RemovePhoto(ctx, albumID, photoID)
	if err != nil {
		return false, 0, err
	}

	s.logger.Info("photo membership updated",
		slog.String("album", albumID),
		slog.String("photo", photoID),
		slog.Bool("removed", removed),
		slog.Int("photoCount", count),
	)
	return removed, count, nil
}

func validateAlbumInput(input *AlbumInput, requireName bool) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	if requireName && input.Name == "" {
		return apperror.ValidationFailed("name", "album name is required")
	}
	if len(input.Name) > MaxAlbumNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("album name must be %d characters or less", MaxAlbumNameLength))
	}
	if len(input.Description) > MaxAlbumDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("album description must be %d characters or less", MaxAlbumDescriptionLength))
	}
	return nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
