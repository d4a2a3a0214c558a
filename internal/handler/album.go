package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/service"
)

// AlbumHandler manages albums and their photo memberships.
type AlbumHandler struct {
	albums *service.AlbumService
	logger *slog.Logger
}

func NewAlbumHandler(albums *service.AlbumService, logger *slog.Logger) *AlbumHandler {
	return &AlbumHandler{albums: albums, logger: logger}
}

type albumBody struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	CoverPhotoURL string   `json:"coverPhotoUrl"`
	PhotoIDs      []string `json:"photoIds"`
}

func (b albumBody) input() service.AlbumInput {
	return service.AlbumInput{
		Name:          b.Name,
		Description:   b.Description,
		CoverPhotoURL: b.CoverPhotoURL,
		PhotoIDs:      b.PhotoIDs,
	}
}

// HandleList returns a page of albums.
//
// GET /api/albums?page=&limit=&search=
func (h *AlbumHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := parsePage(r)

	albums, total, err := h.albums.List(r.Context(), repository.AlbumFilter{
		ListOptions: repository.ListOptions{Limit: limit, Offset: offset},
		Search:      r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Albums retrieved successfully",
		"albums":     albums,
		"pagination": newPageMeta(total, page, limit),
	})
}

// HandleGet returns one album with its ordered photo IDs.
//
// GET /api/albums/{id}
func (h *AlbumHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	album, err := h.albums.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Album retrieved successfully",
		"album":   album,
	})
}

// HandleCreate saves a new album, optionally with initial members.
//
// POST /api/albums
func (h *AlbumHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body albumBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	album, err := h.albums.Create(r.Context(), body.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Album created successfully",
		"album":   album,
	})
}

// HandleUpdate applies a partial update to the descriptive fields.
//
// PATCH /api/albums/{id}
func (h *AlbumHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var body albumBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	album, err := h.albums.Update(r.Context(), r.PathValue("id"), body.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Album updated successfully",
		"album":   album,
	})
}

// HandleDelete removes an album; its memberships cascade away with it.
//
// DELETE /api/albums/{id}
func (h *AlbumHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.albums.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Album deleted successfully",
	})
}

// HandleAddPhoto adds one photo to several albums at once.
//
// POST /api/albums/add-photo {"photoId": "...", "albumIds": ["..."]}
func (h *AlbumHandler) HandleAddPhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoID  string   `json:"photoId"`
		AlbumIDs []string `json:"albumIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	albums, err := h.albums.AddPhotoToAlbums(r.Context(), req.PhotoID, req.AlbumIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Photo added to album(s) successfully",
		"albums":  albums,
	})
}

// HandleRemovePhoto removes one photo from one album. Removing a
// non-member is a success with its own message, never an error.
//
// POST /api/albums/remove-photo {"photoId": "...", "albumId": "..."}
func (h *AlbumHandler) HandleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhotoID string `json:"photoId"`
		AlbumID string `json:"albumId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	removed, count, err := h.albums.RemovePhotoFromAlbum(r.Context(), req.PhotoID, req.AlbumID)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Photo removed from album successfully"
	if !removed {
		message = "Photo was not part of the album"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    message,
		"photoCount": count,
	})
}
