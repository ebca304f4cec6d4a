package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maxjung/messagely-be/internal/authz"
	"github.com/maxjung/messagely-be/internal/http/respond"
	"github.com/maxjung/messagely-be/internal/middleware"
	"github.com/maxjung/messagely-be/internal/models"
	"github.com/maxjung/messagely-be/internal/models/dto"
	"github.com/maxjung/messagely-be/internal/storage"
)

// MessageHandler owns the authenticated message endpoints. Reads and
// mark-read both load the record first and evaluate ownership against the
// fetched participants.
type MessageHandler struct {
	users    storage.UserStore
	messages storage.MessageStore
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(users storage.UserStore, messages storage.MessageStore) *MessageHandler {
	return &MessageHandler{users: users, messages: messages}
}

// Register attaches message routes to the mux behind the claim guard.
func (h *MessageHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.Handle("POST /messages", guard(http.HandlerFunc(h.handleSend)))
	mux.Handle("GET /messages/{id}", guard(http.HandlerFunc(h.handleGet)))
	mux.Handle("POST /messages/{id}/read", guard(http.HandlerFunc(h.handleMarkRead)))
}

// handleSend creates a message. The sender is always the resolved claim's
// username; a from_username in the payload would be ignored.
func (h *MessageHandler) handleSend(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	to := strings.TrimSpace(req.ToUsername)
	if to == "" || strings.TrimSpace(req.Body) == "" {
		respond.Error(w, http.StatusBadRequest, "to_username and body are required")
		return
	}

	if _, err := h.users.FindByUsername(r.Context(), to); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "recipient does not exist")
			return
		}
		log.Printf("check recipient %s: %v", to, err)
		respond.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	msg := models.Message{
		ID:           uuid.NewString(),
		FromUsername: identity,
		ToUsername:   to,
		Body:         req.Body,
		SentAt:       time.Now().UTC(),
	}
	created, err := h.messages.CreateMessage(r.Context(), msg)
	if err != nil {
		log.Printf("create message %s -> %s: %v", identity, to, err)
		respond.Error(w, http.StatusInternalServerError, "failed to send message")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": created})
}

func (h *MessageHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	detail, ok := h.fetch(w, r)
	if !ok {
		return
	}
	if err := authz.MessageParticipant(identity, detail); err != nil {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": detail})
}

// handleMarkRead stamps read_at. Marking an already-read message keeps the
// original timestamp.
func (h *MessageHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.Identity(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	detail, ok := h.fetch(w, r)
	if !ok {
		return
	}
	if err := authz.RecipientOnly(identity, detail); err != nil {
		respond.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	msg, err := h.messages.MarkRead(r.Context(), detail.ID, time.Now().UTC())
	if err != nil {
		log.Printf("mark read %s: %v", detail.ID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to mark message read")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"message": dto.ReadReceipt{ID: msg.ID, ReadAt: msg.ReadAt}})
}

// fetch loads the target message before any ownership rule runs. A missing
// id is a 404; ownership failures afterwards are 401s.
func (h *MessageHandler) fetch(w http.ResponseWriter, r *http.Request) (models.MessageDetail, bool) {
	id := r.PathValue("id")
	detail, err := h.messages.GetMessage(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "message not found")
			return models.MessageDetail{}, false
		}
		log.Printf("fetch message %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch message")
		return models.MessageDetail{}, false
	}
	return detail, true
}
