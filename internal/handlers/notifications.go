package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"backoffice/internal/auth"
	"backoffice/internal/middleware"
	"backoffice/internal/websocket"
)

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	notifications, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"notifications": mapAll(notifications, notificationJSON)})
}

func (h *Handler) LatestNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	notifications, err := h.notifications.Latest(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": mapAll(notifications, notificationJSON),
		"unread":        unread,
	})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// WebSocket upgrades an authenticated connection and registers it with the
// hub. Browsers cannot set headers on the handshake, so the token may also
// come from the query string.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if _, err := h.users.Active(r.Context(), claims.UserID); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "realtime updates unavailable")
		return
	}
	websocket.ServeWS(w, r, h.upgrader, h.hub, claims.UserID)
}
