package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/towerly/building-service/internal/domain"
	"github.com/towerly/building-service/internal/transport/rest/response"
)

type userView struct {
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserView(u domain.User) userView {
	return userView{
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

// UpsertUser records a user on first sight and is a no-op for returning
// users, so the client can call it on every sign-in.
func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	created, err := h.accounts.UpsertUser(r.Context(), domain.User{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"success": true,
		"created": created,
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	response.Data(w, http.StatusOK, map[string]any{"users": views})
}

// GetUserRole answers with the stored role, defaulting to "user" for
// unknown emails so the client never has to special-case a 404.
func (h *Handler) GetUserRole(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	role, found, err := h.accounts.GetRole(r.Context(), email)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"role":  string(role),
		"found": found,
	})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.accounts.ListMembers(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	views := make([]userView, 0, len(members))
	for _, u := range members {
		views = append(views, toUserView(u))
	}
	response.Data(w, http.StatusOK, map[string]any{"members": views})
}

// ChangeMemberRole demotes or promotes a user directly. The usual path to
// member goes through an accepted agreement; this is the admin override.
func (h *Handler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	var req struct {
		Role string `json:"role" validate:"required,oneof=user member admin"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}
	if msg, ok := validateRequest(req); !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", msg, nil)
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		fail(w, r, http.StatusBadRequest, "request.invalid", "role must be one of: user member admin", nil)
		return
	}

	modified, err := h.accounts.ChangeRole(r.Context(), email, role)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	// success mirrors whether a record was actually modified
	response.Data(w, http.StatusOK, map[string]any{"success": modified})
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.AdminStats(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}
	response.Data(w, http.StatusOK, stats)
}
