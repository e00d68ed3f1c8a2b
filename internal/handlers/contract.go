package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
)

// ContractHandler handles contract-related HTTP requests.
type ContractHandler struct {
	db database.Service
}

// NewContractHandler creates a new ContractHandler.
func NewContractHandler(db database.Service) *ContractHandler {
	return &ContractHandler{db: db}
}

// ── Columns & scan helper ──────────────────────────────────────

const contractCols = `c.id, c.crew_member_id, c.vessel_id,
	c.start_date::text, c.end_date::text, c.duration_days, c.status,
	c.file_path, c.sign_on_reason, c.sign_off_reason,
	c.created_at, c.updated_at`

const contractRetCols = `id, crew_member_id, vessel_id,
	start_date::text, end_date::text, duration_days, status,
	file_path, sign_on_reason, sign_off_reason,
	created_at, updated_at`

func scanContract(scanner interface {
	Scan(dest ...interface{}) error
}, c *models.Contract) error {
	return scanner.Scan(
		&c.ID, &c.CrewID, &c.VesselID,
		&c.StartDate, &c.EndDate, &c.DurationDays, &c.Status,
		&c.FilePath, &c.SignOnReason, &c.SignOffReason,
		&c.CreatedAt, &c.UpdatedAt,
	)
}

// contractProgress computes the progress block for one contract row against
// the crew member's current status.
func contractProgress(c *models.Contract, crewStatus string, now time.Time) compliance.Progress {
	start := compliance.ParseDate(c.StartDate)
	end := compliance.ParseDate(c.EndDate)
	return compliance.ContractProgress(start, end, c.Status, crewStatus, now)
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/crew/{crewId}/contracts
// Assigns a new contract. When a duration is supplied it wins over any
// end date; the stored end date is always start + duration in that case.
// Any previously active contract for the crew member is terminated in the
// same transaction so at most one contract is ever active.
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "crewId")
	if crewID == "" {
		crewID = chi.URLParam(r, "id")
	}
	if crewID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	var req models.CreateContractRequest
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

	if !checkVesselAccess(r.Context(), req.VesselID) {
		JSONError(w, http.StatusForbidden, "Access denied to this vessel")
		return
	}

	start := compliance.ParseDate(req.StartDate)
	var reqEnd *time.Time
	if req.EndDate != "" {
		reqEnd = compliance.ParseDate(req.EndDate)
	}
	end := compliance.ResolveEndDate(start, reqEnd, req.DurationDays)
	if end == nil || !end.After(*start) {
		JSONError(w, http.StatusUnprocessableEntity, "Contract end date must be after the start date")
		return
	}

	durationDays := int(math.Ceil(end.Sub(*start).Hours() / 24))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create contract")
		return
	}
	defer tx.Rollback(ctx)

	// Verify the crew member exists before touching contracts
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM crew_members WHERE id = $1)", crewID).Scan(&exists); err != nil || !exists {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	// Supersede any active contract
	_, err = tx.Exec(ctx, `
		UPDATE contracts SET status = 'terminated',
			sign_off_reason = COALESCE(sign_off_reason, 'Superseded by a new contract'),
			updated_at = NOW()
		WHERE crew_member_id = $1 AND status = 'active'
	`, crewID)
	if err != nil {
		log.Printf("Error superseding active contract: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create contract")
		return
	}

	var contract models.Contract
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO contracts (
			crew_member_id, vessel_id, start_date, end_date,
			duration_days, status, file_path
		)
		VALUES ($1,$2,$3,$4,$5,'active',$6)
		RETURNING %s
	`, contractRetCols),
		crewID, req.VesselID,
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		durationDays, req.FilePath,
	)
	if err := scanContract(row, &contract); err != nil {
		log.Printf("Error creating contract: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create contract")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing contract creation: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create contract")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "contract", contract.ID, map[string]interface{}{
		"crewId": crewID, "vesselId": req.VesselID, "endDate": contract.EndDate,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    contract,
		"message": "Contract created successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

// List handles GET /api/contracts?vessel_id=&status=&search=
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	vesselID := q.Get("vessel_id")
	status := q.Get("status")
	search := q.Get("search")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendVesselScope(ctx, where, args, argIdx, "c.vessel_id")

	if vesselID != "" {
		where += fmt.Sprintf(" AND c.vessel_id = $%d", argIdx)
		args = append(args, vesselID)
		argIdx++
	}
	if status != "" && status != "all" {
		where += fmt.Sprintf(" AND c.status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}
	if search != "" {
		where += fmt.Sprintf(" AND cm.name ILIKE $%d", argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}

	var total int
	countQuery := `
		SELECT COUNT(*) FROM contracts c
		JOIN crew_members cm ON cm.id = c.crew_member_id ` + where
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("Error counting contracts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch contracts")
		return
	}

	query := fmt.Sprintf(`
		SELECT %s, v.name, cm.name, cm.rank, cm.status
		FROM contracts c
		JOIN vessels v ON v.id = c.vessel_id
		JOIN crew_members cm ON cm.id = c.crew_member_id
		%s
		ORDER BY c.end_date ASC, c.created_at DESC
		LIMIT $%d OFFSET $%d
	`, contractCols, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying contracts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch contracts")
		return
	}
	defer rows.Close()

	now := time.Now()
	contracts := []models.ContractWithProgress{}
	for rows.Next() {
		var c models.ContractWithProgress
		var crewStatus string
		if err := rows.Scan(
			&c.ID, &c.CrewID, &c.VesselID,
			&c.StartDate, &c.EndDate, &c.DurationDays, &c.Status,
			&c.FilePath, &c.SignOnReason, &c.SignOffReason,
			&c.CreatedAt, &c.UpdatedAt,
			&c.VesselName, &c.CrewName, &c.CrewRank, &crewStatus,
		); err != nil {
			log.Printf("Error scanning contract: %v", err)
			continue
		}
		c.Progress = contractProgress(&c.Contract, crewStatus, now)
		contracts = append(contracts, c)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data:       contracts,
		Pagination: newPaginationMeta(page, limit, total),
	})
}

// ── List by Crew ───────────────────────────────────────────────

// ListByCrew handles GET /api/crew/{id}/contracts — full service history,
// newest first, each with computed progress.
func (h *ContractHandler) ListByCrew(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "id")
	if crewID == "" {
		crewID = chi.URLParam(r, "crewId")
	}
	if crewID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, v.name, cm.name, cm.rank, cm.status
		FROM contracts c
		JOIN vessels v ON v.id = c.vessel_id
		JOIN crew_members cm ON cm.id = c.crew_member_id
		WHERE c.crew_member_id = $1
		ORDER BY c.start_date DESC
	`, contractCols), crewID)
	if err != nil {
		log.Printf("Error fetching contracts for crew %s: %v", crewID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch contracts")
		return
	}
	defer rows.Close()

	now := time.Now()
	contracts := []models.ContractWithProgress{}
	for rows.Next() {
		var c models.ContractWithProgress
		var crewStatus string
		if err := rows.Scan(
			&c.ID, &c.CrewID, &c.VesselID,
			&c.StartDate, &c.EndDate, &c.DurationDays, &c.Status,
			&c.FilePath, &c.SignOnReason, &c.SignOffReason,
			&c.CreatedAt, &c.UpdatedAt,
			&c.VesselName, &c.CrewName, &c.CrewRank, &crewStatus,
		); err != nil {
			log.Printf("Error scanning contract: %v", err)
			continue
		}
		c.Progress = contractProgress(&c.Contract, crewStatus, now)
		contracts = append(contracts, c)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": contracts,
	})
}

// ── Update Status ──────────────────────────────────────────────

// UpdateStatus handles PATCH /api/contracts/{id}/status
// Administrative move to a terminal state. This does not change the crew
// member's onBoard/onShore status — sign-off does that.
func (h *ContractHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Contract ID is required")
		return
	}

	if !checkContractAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this contract")
		return
	}

	var req models.UpdateContractStatusRequest
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

	var contract models.Contract
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE contracts SET
			status = $1,
			sign_off_reason = COALESCE($2, sign_off_reason),
			updated_at = NOW()
		WHERE id = $3 AND status = 'active'
		RETURNING %s
	`, contractRetCols), req.Status, req.Reason, id)
	if err := scanContract(row, &contract); err != nil {
		JSONError(w, http.StatusNotFound, "Active contract not found")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated_status", "contract", id, map[string]interface{}{
		"status": req.Status,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    contract,
		"message": "Contract status updated successfully",
	})
}

// ── Export ─────────────────────────────────────────────────────

// Export handles GET /api/contracts/export — returns CSV
func (h *ContractHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, argIdx = appendVesselScope(ctx, where, args, argIdx, "c.vessel_id")
	_ = argIdx

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT cm.name, cm.rank, v.name,
			c.start_date::text, c.end_date::text, c.duration_days, c.status
		FROM contracts c
		JOIN crew_members cm ON cm.id = c.crew_member_id
		JOIN vessels v ON v.id = c.vessel_id
		%s
		ORDER BY c.end_date ASC
	`, where), args...)
	if err != nil {
		log.Printf("Error exporting contracts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=contracts.csv")

	// Write CSV header
	fmt.Fprintln(w, "Crew,Rank,Vessel,Start Date,End Date,Duration Days,Status")

	for rows.Next() {
		var crew, rank, vessel, startDate, endDate, status string
		var durationDays int
		if err := rows.Scan(&crew, &rank, &vessel, &startDate, &endDate, &durationDays, &status); err != nil {
			continue
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%d,%s\n",
			csvEscape(crew), csvEscape(rank), csvEscape(vessel),
			startDate, endDate, durationDays, status)
	}
}
