package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aureus/internal/audit"
	"aureus/internal/platform/middleware"
	"aureus/internal/users"
	dErrors "aureus/pkg/domain-errors"
	"aureus/pkg/platform/httputil"
)

// UsersService is the account surface the handlers drive.
type UsersService interface {
	Create(ctx context.Context, req *users.CreateUserRequest, meta audit.RequestMeta) (*users.User, error)
	UpdatePartial(ctx context.Context, username string, fields users.Fields, meta audit.RequestMeta) (*users.User, error)
	Replace(ctx context.Context, username string, req *users.ReplaceUserRequest, meta audit.RequestMeta) (*users.User, error)
	Delete(ctx context.Context, username string, meta audit.RequestMeta) error
}

// UsersHandler serves registration and the /users/me account endpoints.
type UsersHandler struct {
	users UsersService
}

func NewUsersHandler(users UsersService) *UsersHandler {
	return &UsersHandler{users: users}
}

// RegisterPublic mounts the unauthenticated registration route.
func (h *UsersHandler) RegisterPublic(r chi.Router) {
	r.Post("/users/", h.handleCreate)
}

// RegisterProtected mounts the self-service account routes. The session
// gate must already be in the chain; handlers read the resolved user from
// the request context.
func (h *UsersHandler) RegisterProtected(r chi.Router) {
	r.Get("/users/me", h.handleMe)
	r.Patch("/users/me", h.handlePatch)
	r.Put("/users/me", h.handleReplace)
	r.Delete("/users/me", h.handleDelete)
}

func (h *UsersHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.users.Create(r.Context(), &req, requestMeta(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, created)
}

// handleMe returns the caller's account as resolved by the session gate;
// the gate's lookup is already fresh, so no second read is needed.
func (h *UsersHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "no user in context"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *UsersHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "no user in context"))
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	fields, err := users.FieldsFromMap(raw)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.users.UpdatePartial(r.Context(), user.Username, fields, requestMeta(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *UsersHandler) handleReplace(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "no user in context"))
		return
	}

	var req users.ReplaceUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.users.Replace(r.Context(), user.Username, &req, requestMeta(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *UsersHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "no user in context"))
		return
	}

	if err := h.users.Delete(r.Context(), user.Username, requestMeta(r)); err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
