// Package service contains the business logic layer: validation, permission
// checks, and orchestration between the repositories, the object store, and
// the image pipeline. Services accept plain values and return domain errors;
// the handler layer owns everything HTTP.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/images"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/storage"
)

// DefaultUploadFolder is where images land when the client names no folder.
const DefaultUploadFolder = "photos"

// File is one uploaded payload as received from the multipart form.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// UploadResult is the per-file outcome of a batch upload. Exactly one of
// Photo and Err is set.
type UploadResult struct {
	Name  string
	Photo *model.Photo
	Err   error
}

// UploadService runs the upload pipeline: normalize, store, record.
type UploadService struct {
	normalizer *images.Normalizer
	uploader   *storage.Uploader
	photos     repository.PhotoRepository
	logger     *slog.Logger
}

func NewUploadService(normalizer *images.Normalizer, uploader *storage.Uploader, photos repository.PhotoRepository, logger *slog.Logger) *UploadService {
	return &UploadService{
		normalizer: normalizer,
		uploader:   uploader,
		photos:     photos,
		logger:     logger,
	}
}

// UploadBatch pushes each file through the pipeline concurrently. Failures
// are isolated per file: one bad image never sinks the batch, and results
// come back in request order so the caller can pair them with the inputs.
func (s *UploadService) UploadBatch(ctx context.Context, files []File, folder, uploadedBy string) ([]UploadResult, error) {
	if len(files) == 0 {
		return nil, apperror.ValidationFailed("images", "no files provided")
	}
	if folder == "" {
		folder = DefaultUploadFolder
	}

	results := make([]UploadResult, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file File) {
			defer wg.Done()
			photo, err := s.uploadOne(ctx, file, folder, uploadedBy)
			results[i] = UploadResult{Name: file.Name, Photo: photo, Err: err}
		}(i, file)
	}
	wg.Wait()

	return results, nil
}

// uploadOne is the pipeline for a single file: normalize (never fails),
// upload, then record metadata. Metadata is written only after the object
// is durably stored — a failed upload leaves no photo record behind.
func (s *UploadService) uploadOne(ctx context.Context, file File, folder, uploadedBy string) (*model.Photo, error) {
	normalized := s.normalizer.Normalize(file.Data, file.Name, file.MimeType)

	url, err := s.uploader.Upload(ctx, normalized.Data, normalized.MimeType, folder)
	if err != nil {
		return nil, err
	}

	photo := &model.Photo{
		URL:          url,
		Format:       normalized.Format,
		Folder:       folder,
		OriginalName: file.Name,
		Size:         int64(len(normalized.Data)),
		UploadedBy:   uploadedBy,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.logger.Error("photo metadata write failed after upload",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("photo uploaded",
		slog.String("id", photo.ID),
		slog.String("format", photo.Format),
		slog.Int64("size", photo.Size),
	)
	return photo, nil
}
