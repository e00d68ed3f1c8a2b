package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityEntry is one row of the audit trail.
type ActivityEntry struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"userId"`
	UserName   *string         `json:"userName"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// logActivity records an audit entry. Failures are logged, never surfaced:
// an audit miss must not fail the request that caused it.
func logActivity(pool *pgxpool.Pool, userID, action, entityType, entityID string, details map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			log.Printf("activity: marshal details: %v", err)
			detailsJSON = nil
		}
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO activity_log (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)`,
		nilIfEmpty(userID), action, entityType, entityID, detailsJSON,
	)
	if err != nil {
		log.Printf("activity: insert: %v", err)
	}
}

// ActivityHandler serves the audit trail.
type ActivityHandler struct {
	db *pgxpool.Pool
}

func NewActivityHandler(db *pgxpool.Pool) *ActivityHandler {
	return &ActivityHandler{db: db}
}

// List returns recent activity, newest first. Supports ?limit= (default 50, max 200)
// and ?entityType= filtering.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	query := `
		SELECT a.id, a.user_id, u.name, a.action, a.entity_type, a.entity_id, a.details, a.created_at
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id`
	args := []interface{}{}
	if et := r.URL.Query().Get("entityType"); et != "" {
		query += " WHERE a.entity_type = $1"
		args = append(args, et)
	}
	query += " ORDER BY a.created_at DESC LIMIT " + strconv.Itoa(limit)

	rows, err := h.db.Query(ctx, query, args...)
	if err != nil {
		log.Printf("activity list: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch activity")
		return
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			log.Printf("activity scan: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to fetch activity")
			return
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, entries)
}
