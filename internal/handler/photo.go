package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/service"
)

// PhotoHandler manages the photo library endpoints.
type PhotoHandler struct {
	photos *service.PhotoService
	logger *slog.Logger
}

func NewPhotoHandler(photos *service.PhotoService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, logger: logger}
}

// HandleList returns a page of photos, newest first.
//
// GET /api/photos?page=&limit=&folder=&isFavorite=
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := parsePage(r)

	filter := repository.PhotoFilter{
		ListOptions: repository.ListOptions{Limit: limit, Offset: offset},
		Folder:      r.URL.Query().Get("folder"),
	}
	if v := r.URL.Query().Get("isFavorite"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, apperror.ValidationFailed("isFavorite", "must be true or false"))
			return
		}
		filter.IsFavorite = &fav
	}

	photos, total, err := h.photos.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Photos retrieved successfully",
		"photos":     photos,
		"pagination": newPageMeta(total, page, limit),
	})
}

// HandleUpdate flips the favorite flag.
//
// PATCH /api/photos/{id} {"isFavorite": true}
func (h *PhotoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsFavorite *bool `json:"isFavorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.IsFavorite == nil {
		writeError(w, apperror.ValidationFailed("isFavorite", "isFavorite is required"))
		return
	}

	photo, err := h.photos.SetFavorite(r.Context(), r.PathValue("id"), *req.IsFavorite)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Photo updated successfully",
		"photo":   photo,
	})
}

// HandleDelete removes one photo (object first, metadata after).
//
// DELETE /api/photos/{id}
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.photos.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Photo deleted successfully",
	})
}

// HandleBatchDelete deletes every photo it can and reports the rest.
//
// POST /api/photos/batch-delete {"photoIds": ["...", "..."]}
func (h *PhotoHandler) HandleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoIDs []string `json:"photoIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.photos.BatchDelete(r.Context(), req.PhotoIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Batch delete processed",
		"deletedCount": len(result.DeletedIDs),
		"deletedIds":   result.DeletedIDs,
		"notFound":     result.NotFound,
	})
}

// HandleDownload streams the photo as a PNG attachment.
//
// GET /api/photos/{id}/download
func (h *PhotoHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.photos.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to stream download", slog.String("error", err.Error()))
	}
}
