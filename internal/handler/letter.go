package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/auth"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/service"
)

// LetterHandler manages letters and their reactions.
type LetterHandler struct {
	letters *service.LetterService
	logger  *slog.Logger
}

func NewLetterHandler(letters *service.LetterService, logger *slog.Logger) *LetterHandler {
	return &LetterHandler{letters: letters, logger: logger}
}

// letterBody is the shared create/update request shape. Pointer fields let
// updates distinguish "absent" from "set to zero".
type letterBody struct {
	Title       string     `json:"title"`
	Icon        string     `json:"icon"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"publishedAt"`
	LegacyID    *int64     `json:"legacyId"`
}

func (b letterBody) input() service.LetterInput {
	return service.LetterInput{
		Title:       b.Title,
		Icon:        b.Icon,
		Content:     b.Content,
		PublishedAt: b.PublishedAt,
		LegacyID:    b.LegacyID,
	}
}

func (b letterBody) empty() bool {
	return b.Title == "" && b.Icon == "" && b.Content == "" &&
		b.PublishedAt == nil && b.LegacyID == nil
}

// HandleList returns a page of letters, newest first.
//
// GET /api/letters?page=&limit=&search=
func (h *LetterHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := parsePage(r)

	letters, total, err := h.letters.List(r.Context(), repository.LetterFilter{
		ListOptions: repository.ListOptions{Limit: limit, Offset: offset},
		Search:      r.URL.Query().Get("search"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Letters retrieved successfully",
		"letters":    letters,
		"pagination": newPageMeta(total, page, limit),
	})
}

// HandleCreate saves a new letter authored by the caller.
//
// POST /api/letters
func (h *LetterHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var body letterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	letter, err := h.letters.Create(r.Context(), identity, body.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Letter created successfully",
		"letter":  letter,
	})
}

// HandleUpdate applies a partial update; creator or superadmin only.
//
// PATCH /api/letters/{id}
func (h *LetterHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var body letterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if body.empty() {
		writeError(w, apperror.ValidationFailed("body",
			"At least one field must be provided to update the letter"))
		return
	}

	letter, err := h.letters.Update(r.Context(), identity, r.PathValue("id"), body.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Letter updated successfully",
		"letter":  letter,
	})
}

// HandleDelete removes a letter; creator or superadmin only.
//
// DELETE /api/letters/{id}
func (h *LetterHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	if err := h.letters.Delete(r.Context(), identity, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Letter deleted successfully",
	})
}

// HandleReact toggles the caller's reaction on a letter.
//
// POST /api/letters/{id}/react {"emoji": "❤️"}
// → {"message": "Reacción agregada|actualizada|eliminada", "letter": {...}}
func (h *LetterHandler) HandleReact(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	message, letter, err := h.letters.React(r.Context(), identity, r.PathValue("id"), req.Emoji)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"letter":  letter,
	})
}
