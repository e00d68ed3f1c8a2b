package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
)

// NotificationHandler serves the per-user notification feed written by the
// daily compliance cron.
type NotificationHandler struct {
	db database.Service
}

func NewNotificationHandler(db database.Service) *NotificationHandler {
	return &NotificationHandler{db: db}
}

type notification struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Type       string  `json:"type"`
	EntityType *string `json:"entityType"`
	EntityID   *string `json:"entityId"`
	Read       bool    `json:"read"`
	CreatedAt  string  `json:"createdAt"`
}

// List returns the current user's notifications, newest first.
// GET /api/notifications?unread=true&limit=50
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	if userID == "" {
		JSONError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}

	query := `
		SELECT id::text, title, message, type, entity_type, entity_id::text,
			read, created_at::text
		FROM notifications
		WHERE user_id = $1`
	if r.URL.Query().Get("unread") == "true" {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := h.db.GetPool().Query(ctx, query, userID, limit)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	defer rows.Close()

	notifications := []notification{}
	for rows.Next() {
		var n notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Type,
			&n.EntityType, &n.EntityID, &n.Read, &n.CreatedAt); err != nil {
			JSONError(w, http.StatusInternalServerError, "Failed to scan notification")
			return
		}
		notifications = append(notifications, n)
	}

	JSON(w, http.StatusOK, notifications)
}

// UnreadCount returns how many notifications the user has not read yet.
// GET /api/notifications/count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var count int
	err := h.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID).Scan(&count)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	JSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead marks a single notification as read.
// PATCH /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	id := chi.URLParam(r, "id")

	tag, err := h.db.GetPool().Exec(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Notification not found")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllRead marks every unread notification for the user as read.
// PATCH /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	tag, err := h.db.GetPool().Exec(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to update notifications")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "All notifications marked as read",
		"updated": tag.RowsAffected(),
	})
}
