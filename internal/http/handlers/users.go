package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/maxjung/messagely-be/internal/authz"
	"github.com/maxjung/messagely-be/internal/http/respond"
	"github.com/maxjung/messagely-be/internal/middleware"
	"github.com/maxjung/messagely-be/internal/models"
	"github.com/maxjung/messagely-be/internal/storage"
)

// UserHandler owns the authenticated user-listing and profile endpoints,
// including a user's inbox and outbox views.
type UserHandler struct {
	users    storage.UserStore
	messages storage.MessageStore
}

// NewUserHandler constructs the handler.
func NewUserHandler(users storage.UserStore, messages storage.MessageStore) *UserHandler {
	return &UserHandler{users: users, messages: messages}
}

// Register attaches user routes to the mux behind the claim guard.
func (h *UserHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("GET /users", guard(http.HandlerFunc(h.handleList)))
	mux.Handle("GET /users/{username}", guard(http.HandlerFunc(h.handleProfile)))
	mux.Handle("GET /users/{username}/to", guard(http.HandlerFunc(h.handleReceived)))
	mux.Handle("GET /users/{username}/from", guard(http.HandlerFunc(h.handleSent)))
}

// handleList returns every user's public profile. Any logged-in identity may
// list; only the detail route is owner-restricted.
func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.Printf("list users: %v", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	respond.JSON(w, http.StatusOK, map[string]any{"users": public})
}

func (h *UserHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	username, ok := h.correctUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.FindByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("fetch profile %s: %v", username, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user": user})
}

// handleReceived lists messages sent to the user, each with the sender's
// profile, oldest first.
func (h *UserHandler) handleReceived(w http.ResponseWriter, r *http.Request) {
	username, ok := h.correctUser(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.ListReceived(r.Context(), username)
	if err != nil {
		log.Printf("list received for %s: %v", username, err)
		respond.Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// handleSent lists messages the user sent, each with the recipient's profile,
// oldest first.
func (h *UserHandler) handleSent(w http.ResponseWriter, r *http.Request) {
	username, ok := h.correctUser(w, r)
	if !ok {
		return
	}

	msgs, err := h.messages.ListSent(r.Context(), username)
	if err != nil {
		log.Printf("list sent for %s: %v", username, err)
		respond.Error(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// correctUser resolves the request identity and enforces that it matches the
// path username. On failure it writes the uniform 401 and reports !ok.
func (h *UserHandler) correctUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, found := middleware.Identity(r.Context())
	if !found {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	username := r.PathValue("username")
	if err := authz.CorrectUser(identity, username); err != nil {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return username, true
}
