package api

import (
	"errors"
	"net/http"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/model"
)

type NotificationHandler struct {
	DB *db.DB
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, userID string) {
	page, limit := pageParams(r)
	items, pagination, unread, err := h.DB.ListNotifications(userID, db.ListFilter{Page: page, Limit: limit})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListPage[model.Notification]{Items: items, Pagination: pagination, UnreadCount: &unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, userID string) {
	err := h.DB.MarkNotificationRead(userID, r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		JSONError(w, "Notification not found", CodeNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.DB.MarkAllNotificationsRead(userID); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "All notifications marked as read"})
}
