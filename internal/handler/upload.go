package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/images"
	"github.com/mcastellanos/recuerdos/internal/model"
	"github.com/mcastellanos/recuerdos/internal/service"
)

const (
	maxUploadFiles    = 10
	maxUploadFileSize = 5 << 20 // 5 MB per file
	// maxUploadMemory bounds the in-memory part of multipart parsing;
	// larger bodies spill to temp files.
	maxUploadMemory = 32 << 20
)

// UploadHandler exposes the batch image upload endpoint.
type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

// uploadError is the per-file failure entry in the upload response.
type uploadError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// HandleUpload accepts a multipart form with up to 10 images in the
// "images" field (5 MB each) and runs them through the pipeline. The whole
// batch is rejected up front when any file is not an image; storage
// failures after that point are reported per file.
//
// POST /api/upload/images
// → {"message": "...", "photos": [...], "errors": [...]}
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		writeError(w, apperror.ValidationFailed("images", "no files provided"))
		return
	}
	if len(headers) > maxUploadFiles {
		writeError(w, apperror.ValidationFailed("images", "too many files, maximum is 10"))
		return
	}

	files := make([]service.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxUploadFileSize {
			writeError(w, apperror.ValidationFailed("images", fh.Filename+" exceeds the 5MB limit"))
			return
		}

		f, err := fh.Open()
		if err != nil {
			writeError(w, apperror.ValidationFailed("images", "unable to read "+fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, apperror.ValidationFailed("images", "unable to read "+fh.Filename))
			return
		}

		mimeType, isImage := images.DetectImageMIME(fh.Header.Get("Content-Type"), data)
		if !isImage {
			writeError(w, apperror.ValidationFailed("images", fh.Filename+" is not an image"))
			return
		}

		files = append(files, service.File{
			Name:     fh.Filename,
			MimeType: mimeType,
			Data:     data,
		})
	}

	results, err := h.uploads.UploadBatch(r.Context(), files, r.FormValue("folder"), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	photos := []model.Photo{}
	uploadErrors := []uploadError{}
	for _, res := range results {
		if res.Err != nil {
			uploadErrors = append(uploadErrors, uploadError{File: res.Name, Message: res.Err.Error()})
			continue
		}
		photos = append(photos, *res.Photo)
	}

	if len(photos) == 0 {
		// Every file failed downstream of validation — storage is the
		// likely culprit, surface the first failure's status.
		writeError(w, results[0].Err)
		return
	}

	status := http.StatusCreated
	if len(uploadErrors) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{
		"message": "Images uploaded, converted and saved successfully",
		"photos":  photos,
		"errors":  uploadErrors,
	})
}
