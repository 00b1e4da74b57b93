package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pasacoin/pasanaku-server/internal/api/middleware"
	"github.com/pasacoin/pasanaku-server/internal/storage"
)

// NotificationHandler serves the caller's persisted notifications.
type NotificationHandler struct {
	store storage.Storage
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store storage.Storage) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())

	notifications, err := h.store.ListNotifications(r.Context(), address)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.store.MarkNotificationRead(r.Context(), id, address); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead marks all of the caller's notifications as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	address := middleware.GetAddress(r.Context())

	if err := h.store.MarkAllNotificationsRead(r.Context(), address); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
