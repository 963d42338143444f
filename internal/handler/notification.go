package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/notification"
)

// notificationPageSize caps how many notifications one listing returns.
const notificationPageSize = 50

type notificationDTO struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"isRead"`
	RelatedID string    `json:"relatedId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationDTO(n *notification.Notification) notificationDTO {
	return notificationDTO{
		ID:        n.ID,
		User:      n.UserID,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		RelatedID: n.RelatedID,
		CreatedAt: n.CreatedAt,
	}
}

type notificationListResponse struct {
	Success     bool              `json:"success"`
	Count       int               `json:"count"`
	UnreadCount int               `json:"unreadCount"`
	Data        []notificationDTO `json:"data"`
}

// ListNotifications returns the actor's most recent notifications plus the
// unread count.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	notifications, unread, err := h.notifications.ListByUser(r.Context(), actor.ID, notificationPageSize)
	if err != nil {
		respondInternal(w, err)
		return
	}

	out := make([]notificationDTO, len(notifications))
	for i := range notifications {
		out[i] = toNotificationDTO(&notifications[i])
	}

	writeJSON(w, http.StatusOK, notificationListResponse{
		Success:     true,
		Count:       len(out),
		UnreadCount: unread,
		Data:        out,
	})
}

// MarkNotificationRead flips one notification's read flag. Only the
// recipient may do so.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	id := r.PathValue("id")

	n, err := h.notifications.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondInternal(w, err)
		return
	}
	if n.UserID != actor.ID {
		respondError(w, http.StatusForbidden, notification.ErrNotOwner.Error())
		return
	}

	updated, err := h.notifications.MarkRead(r.Context(), id)
	if err != nil {
		respondInternal(w, err)
		return
	}

	respondData(w, http.StatusOK, toNotificationDTO(updated))
}

// MarkAllNotificationsRead flips every unread notification for the actor.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	if err := h.notifications.MarkAllRead(r.Context(), actor.ID); err != nil {
		respondInternal(w, err)
		return
	}

	respondMessage(w, "All notifications marked as read")
}
