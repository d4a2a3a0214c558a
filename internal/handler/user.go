package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mcastellanos/recuerdos/internal/apperror"
	"github.com/mcastellanos/recuerdos/internal/repository"
	"github.com/mcastellanos/recuerdos/internal/service"
)

// UserHandler manages account endpoints. All routes require auth; creation
// additionally requires superadmin (enforced by route middleware).
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns a page of users. PasswordHash is json:"-" on the
// model, so it never serializes.
//
// GET /api/users?page=&limit=
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, page := parsePage(r)

	users, total, err := h.users.List(r.Context(), repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": newPageMeta(total, page, limit),
	})
}

// HandleGet returns one user by ID.
//
// GET /api/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleCreate registers a new account.
//
// POST /api/users {"email", "username", "displayName", "password", "role"}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.users.Create(r.Context(), req.Email, req.Username, req.DisplayName, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}
