package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
)

// VesselHandler handles vessel-related HTTP requests.
type VesselHandler struct {
	db database.Service
}

// NewVesselHandler creates a new VesselHandler with the provided database service.
func NewVesselHandler(db database.Service) *VesselHandler {
	return &VesselHandler{db: db}
}

// ── List ───────────────────────────────────────────────────────

// List returns vessels within the user's scope, ordered alphabetically,
// each with its current onboard crew count.
func (h *VesselHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, _ = appendVesselScope(ctx, where, args, argIdx, "v.id")

	rows, err := pool.Query(ctx, `
		SELECT v.id, v.name, v.imo_number, v.flag, v.vessel_type,
			v.created_at::text, v.updated_at::text,
			COUNT(c.id) FILTER (WHERE c.status = 'onBoard') AS onboard_count
		FROM vessels v
		LEFT JOIN crew_members c ON c.vessel_id = v.id
		`+where+`
		GROUP BY v.id, v.name, v.imo_number, v.flag, v.vessel_type,
			v.created_at, v.updated_at
		ORDER BY v.name ASC
	`, args...)
	if err != nil {
		log.Printf("Error fetching vessels: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch vessels")
		return
	}
	defer rows.Close()

	type VesselWithCount struct {
		models.Vessel
		OnboardCount int `json:"onboardCount"`
	}

	vessels := []VesselWithCount{}
	for rows.Next() {
		var v VesselWithCount
		if err := rows.Scan(
			&v.ID, &v.Name, &v.IMONumber, &v.Flag, &v.VesselType,
			&v.CreatedAt, &v.UpdatedAt,
			&v.OnboardCount,
		); err != nil {
			log.Printf("Error scanning vessel: %v", err)
			continue
		}
		vessels = append(vessels, v)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": vessels,
	})
}

// ── Create ─────────────────────────────────────────────────────

// Create adds a new vessel.
func (h *VesselHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVesselRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var vessel models.Vessel
	err := pool.QueryRow(ctx, `
		INSERT INTO vessels (name, imo_number, flag, vessel_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, imo_number, flag, vessel_type,
			created_at::text, updated_at::text
	`, req.Name, req.IMONumber, req.Flag, req.VesselType,
	).Scan(
		&vessel.ID, &vessel.Name, &vessel.IMONumber, &vessel.Flag, &vessel.VesselType,
		&vessel.CreatedAt, &vessel.UpdatedAt,
	)

	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A vessel with this name already exists")
			return
		}
		log.Printf("Error creating vessel: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create vessel")
		return
	}

	go logActivity(pool, userID, "created", "vessel", vessel.ID, map[string]interface{}{
		"name": vessel.Name,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    vessel,
		"message": "Vessel created successfully",
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update modifies a vessel's details.
func (h *VesselHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !checkVesselAccess(r.Context(), id) {
		JSONError(w, http.StatusForbidden, "Access denied for this vessel")
		return
	}

	var req models.CreateVesselRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var vessel models.Vessel
	err := pool.QueryRow(ctx, `
		UPDATE vessels SET
			name = $1, imo_number = $2, flag = $3, vessel_type = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING id, name, imo_number, flag, vessel_type,
			created_at::text, updated_at::text
	`, req.Name, req.IMONumber, req.Flag, req.VesselType, id,
	).Scan(
		&vessel.ID, &vessel.Name, &vessel.IMONumber, &vessel.Flag, &vessel.VesselType,
		&vessel.CreatedAt, &vessel.UpdatedAt,
	)

	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A vessel with this name already exists")
			return
		}
		JSONError(w, http.StatusNotFound, "Vessel not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    vessel,
		"message": "Vessel updated successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete removes a vessel. Crew currently assigned to it are detached,
// not deleted; their contracts cascade via FK constraints.
func (h *VesselHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	result, err := pool.Exec(ctx, "DELETE FROM vessels WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting vessel: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete vessel")
		return
	}

	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Vessel not found")
		return
	}

	go logActivity(pool, userID, "deleted", "vessel", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Vessel deleted successfully",
	})
}
