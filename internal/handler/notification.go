package handler

import (
	"log"
	"net/http"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/realtime"
	"redesocial/internal/service"
)

type NotificationHandler struct {
	notifService *service.NotificationService
	hub          realtime.Hub
}

// NewNotificationHandler builds the handler. hub may be nil, in which case
// the websocket route answers 503.
func NewNotificationHandler(notifService *service.NotificationService, hub realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
		hub:          hub,
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	notifications, err := h.notifService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "ListNotifications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// GetUnreadCount handles GET /api/notifications/unread
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.UnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "UnreadCount", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.UnreadCountResponse{Count: count})
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifService.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, "MarkRead", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Notificação marcada como lida.")
}

// MarkAllRead handles PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if _, err := h.notifService.MarkAllRead(r.Context(), userID); err != nil {
		writeServiceError(w, "MarkAllRead", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Todas as notificações foram marcadas como lidas.")
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.notifService.Delete(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, "DeleteNotification", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Notificação excluída com sucesso.")
}

// Stream handles GET /api/notifications/ws
// Upgrades to a websocket that receives every new notification of the caller.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Notificações em tempo real indisponíveis.")
		return
	}

	sub, err := h.hub.Subscribe(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Subscribe notifications: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, msgInternalError)
		return
	}
	realtime.Serve(r.Context(), w, r, sub)
}
