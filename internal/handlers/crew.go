package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
)

// CrewHandler handles crew-related HTTP requests.
type CrewHandler struct {
	db database.Service
}

// NewCrewHandler creates a new CrewHandler.
func NewCrewHandler(db database.Service) *CrewHandler {
	return &CrewHandler{db: db}
}

// ── Columns ────────────────────────────────────────────────────
// Central column lists keep Create/GetByID/List all in sync.
// Aliased version (for SELECT with FROM clause):
const crewCols = `cm.id, cm.name, cm.rank, cm.nationality, cm.mobile,
	cm.date_of_birth::text, cm.photo_url, cm.status, cm.vessel_id,
	cm.nok_name, cm.nok_relation, cm.nok_phone,
	cm.created_at, cm.updated_at`

// Unaliased version (for INSERT/UPDATE RETURNING):
const crewRetCols = `id, name, rank, nationality, mobile,
	date_of_birth::text, photo_url, status, vessel_id,
	nok_name, nok_relation, nok_phone,
	created_at, updated_at`

// ── Scan Helpers ───────────────────────────────────────────────

func scanCrew(scanner interface {
	Scan(dest ...interface{}) error
}, cm *models.CrewMember) error {
	return scanner.Scan(
		&cm.ID, &cm.Name, &cm.Rank, &cm.Nationality, &cm.Mobile,
		&cm.DateOfBirth, &cm.PhotoURL, &cm.Status, &cm.VesselID,
		&cm.NokName, &cm.NokRelation, &cm.NokPhone,
		&cm.CreatedAt, &cm.UpdatedAt,
	)
}

// ── Compliance loading ─────────────────────────────────────────
// Document status is never stored: rows are loaded raw and handed
// to the compliance engine on every read.

// loadDocumentRecords fetches the document rows for a set of crew members,
// keyed by crew ID, in the shape the engine evaluates.
func loadDocumentRecords(ctx context.Context, pool *pgxpool.Pool, crewIDs []string) (map[string][]compliance.Record, error) {
	records := make(map[string][]compliance.Record, len(crewIDs))
	if len(crewIDs) == 0 {
		return records, nil
	}

	rows, err := pool.Query(ctx, `
		SELECT crew_member_id::text, id::text, document_type, expiry_date::text,
			COALESCE(file_path, ''), updated_at
		FROM documents
		WHERE crew_member_id = ANY($1::uuid[])
	`, crewIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var crewID string
		var rec compliance.Record
		var expiry *string
		if err := rows.Scan(&crewID, &rec.ID, &rec.Type, &expiry, &rec.FilePath, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if expiry != nil {
			rec.ExpiryDate = compliance.ParseDate(*expiry)
		}
		records[crewID] = append(records[crewID], rec)
	}
	return records, rows.Err()
}

// activeContractRow is the contract context needed to evaluate an
// onBoard crew member's documents.
type activeContractRow struct {
	ID         string
	VesselID   string
	VesselName string
	StartDate  string
	EndDate    string
	FilePath   *string
}

// loadActiveContracts fetches the active contract per crew member, keyed by crew ID.
func loadActiveContracts(ctx context.Context, pool *pgxpool.Pool, crewIDs []string) (map[string]activeContractRow, error) {
	contracts := make(map[string]activeContractRow, len(crewIDs))
	if len(crewIDs) == 0 {
		return contracts, nil
	}

	rows, err := pool.Query(ctx, `
		SELECT c.crew_member_id::text, c.id::text, c.vessel_id::text, v.name,
			c.start_date::text, c.end_date::text, c.file_path
		FROM contracts c
		JOIN vessels v ON v.id = c.vessel_id
		WHERE c.crew_member_id = ANY($1::uuid[]) AND c.status = 'active'
	`, crewIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var crewID string
		var c activeContractRow
		if err := rows.Scan(&crewID, &c.ID, &c.VesselID, &c.VesselName, &c.StartDate, &c.EndDate, &c.FilePath); err != nil {
			return nil, err
		}
		contracts[crewID] = c
	}
	return contracts, rows.Err()
}

// summarizeCrew runs the compliance engine for one crew member given their
// loaded documents and active contract (if any).
func summarizeCrew(cm *models.CrewMember, records []compliance.Record, active *activeContractRow, now time.Time) compliance.Summary {
	var contractEnd *time.Time
	contractFile := ""
	if active != nil {
		contractEnd = compliance.ParseDate(active.EndDate)
		if active.FilePath != nil {
			contractFile = *active.FilePath
		}
	}
	return compliance.Summarize(records, contractFile, contractEnd, cm.Status, now)
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/crew
// New crew members start on shore with no vessel assignment.
func (h *CrewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCrewRequest
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

	var crew models.CrewMember
	err := pool.QueryRow(ctx, `
		INSERT INTO crew_members (
			name, rank, nationality, mobile, date_of_birth, photo_url,
			status, nok_name, nok_relation, nok_phone
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+crewRetCols,
		req.Name, req.Rank, req.Nationality, req.Mobile, req.DateOfBirth,
		nilIfEmpty(req.PhotoURL),
		compliance.CrewOnShore, req.NokName, req.NokRelation, req.NokPhone,
	).Scan(
		&crew.ID, &crew.Name, &crew.Rank, &crew.Nationality, &crew.Mobile,
		&crew.DateOfBirth, &crew.PhotoURL, &crew.Status, &crew.VesselID,
		&crew.NokName, &crew.NokRelation, &crew.NokPhone,
		&crew.CreatedAt, &crew.UpdatedAt,
	)
	if err != nil {
		log.Printf("Error creating crew member: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create crew member")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "crew", crew.ID, map[string]interface{}{
		"name": crew.Name, "rank": crew.Rank,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    crew,
		"message": "Crew member created successfully",
	})
}

// ── List ───────────────────────────────────────────────────────

// List handles GET /api/crew
// Each row carries a compliance summary computed by the engine. Filtering
// by compliance status happens after evaluation, so that filter fetches
// all base-matching rows and paginates in memory.
func (h *CrewHandler) List(w http.ResponseWriter, r *http.Request) {
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
	rank := q.Get("rank")
	search := q.Get("search")
	crewStatus := q.Get("status")          // onBoard / onShore
	compStatus := q.Get("compliance")      // engine status filter
	nationality := q.Get("nationality")
	sortBy := q.Get("sort_by")
	sortOrder := q.Get("sort_order")

	// Whitelist allowed sort columns
	allowedSorts := map[string]string{
		"name":       "cm.name",
		"rank":       "cm.rank",
		"created_at": "cm.created_at",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "cm.name"
	}
	if sortOrder != "desc" {
		sortOrder = "asc"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Build dynamic WHERE clause
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	// Vessel scope (role-based); unassigned crew stay visible
	scope := ctxkeys.GetVesselScope(ctx)
	if scope != nil {
		where += fmt.Sprintf(" AND (cm.vessel_id IS NULL OR cm.vessel_id = ANY($%d))", argIdx)
		args = append(args, scope)
		argIdx++
	}

	if vesselID != "" {
		where += fmt.Sprintf(" AND cm.vessel_id = $%d", argIdx)
		args = append(args, vesselID)
		argIdx++
	}
	if rank != "" {
		where += fmt.Sprintf(" AND cm.rank ILIKE $%d", argIdx)
		args = append(args, "%"+rank+"%")
		argIdx++
	}
	if search != "" {
		where += fmt.Sprintf(" AND cm.name ILIKE $%d", argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if crewStatus != "" {
		where += fmt.Sprintf(" AND cm.status = $%d", argIdx)
		args = append(args, crewStatus)
		argIdx++
	}
	if nationality != "" {
		where += fmt.Sprintf(" AND cm.nationality ILIKE $%d", argIdx)
		args = append(args, "%"+nationality+"%")
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM crew_members cm " + where
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("Error counting crew: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew")
		return
	}

	query := fmt.Sprintf(`
		SELECT %s, v.name AS vessel_name
		FROM crew_members cm
		LEFT JOIN vessels v ON v.id = cm.vessel_id
		%s
		ORDER BY %s %s
	`, crewCols, where, sortCol, sortOrder)

	// Without a compliance filter, pagination happens in SQL.
	if compStatus == "" {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, limit, offset)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying crew: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew")
		return
	}
	defer rows.Close()

	crew := []models.CrewWithCompliance{}
	crewIDs := []string{}
	for rows.Next() {
		var c models.CrewWithCompliance
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Rank, &c.Nationality, &c.Mobile,
			&c.DateOfBirth, &c.PhotoURL, &c.Status, &c.VesselID,
			&c.NokName, &c.NokRelation, &c.NokPhone,
			&c.CreatedAt, &c.UpdatedAt,
			&c.VesselName,
		); err != nil {
			log.Printf("Error scanning crew member: %v", err)
			continue
		}
		crew = append(crew, c)
		crewIDs = append(crewIDs, c.ID)
	}
	rows.Close()

	records, err := loadDocumentRecords(ctx, pool, crewIDs)
	if err != nil {
		log.Printf("Error loading documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew")
		return
	}
	contracts, err := loadActiveContracts(ctx, pool, crewIDs)
	if err != nil {
		log.Printf("Error loading contracts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew")
		return
	}

	now := time.Now()
	for i := range crew {
		var active *activeContractRow
		if ac, ok := contracts[crew[i].ID]; ok {
			active = &ac
			crew[i].ContractID = &ac.ID
			end := ac.EndDate
			crew[i].ContractEndDate = &end
		}
		crew[i].Compliance = summarizeCrew(&crew[i].CrewMember, records[crew[i].ID], active, now)
	}

	// Compliance filter: evaluate first, then page.
	if compStatus != "" {
		filtered := crew[:0]
		for _, c := range crew {
			if c.Compliance.OverallStatus == compStatus {
				filtered = append(filtered, c)
			}
		}
		total = len(filtered)
		if offset > len(filtered) {
			filtered = filtered[:0]
		} else {
			filtered = filtered[offset:]
		}
		if len(filtered) > limit {
			filtered = filtered[:limit]
		}
		crew = filtered
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data:       crew,
		Pagination: newPaginationMeta(page, limit, total),
	})
}

// ── GetByID ────────────────────────────────────────────────────

// GetByID handles GET /api/crew/{id}
// Returns the profile, the active contract with computed progress, and all
// documents with their evaluated status.
func (h *CrewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var detail models.CrewDetail
	row := pool.QueryRow(ctx, `
		SELECT `+crewCols+`
		FROM crew_members cm
		WHERE cm.id = $1
	`, id)
	if err := scanCrew(row, &detail.CrewMember); err != nil {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	now := time.Now()

	// Active contract + progress
	contracts, err := loadActiveContracts(ctx, pool, []string{id})
	if err != nil {
		log.Printf("Error loading contract for crew %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew member")
		return
	}
	var active *activeContractRow
	if ac, ok := contracts[id]; ok {
		active = &ac
		detail.ActiveContract = &models.ContractWithVessel{
			Contract: models.Contract{
				ID:        ac.ID,
				CrewID:    id,
				VesselID:  ac.VesselID,
				StartDate: ac.StartDate,
				EndDate:   ac.EndDate,
				Status:    compliance.ContractActive,
				FilePath:  ac.FilePath,
			},
			VesselName: ac.VesselName,
			CrewName:   detail.Name,
			CrewRank:   detail.Rank,
		}
	}

	var start, end *time.Time
	contractStatus := ""
	if active != nil {
		start = compliance.ParseDate(active.StartDate)
		end = compliance.ParseDate(active.EndDate)
		contractStatus = compliance.ContractActive
	}
	detail.Progress = compliance.ContractProgress(start, end, contractStatus, detail.Status, now)

	// Documents with evaluated status
	detail.Documents = []models.DocumentWithCompliance{}
	docRows, err := pool.Query(ctx, `
		SELECT id, crew_member_id, document_type, document_number, issuing_authority,
			issue_date::text, expiry_date::text,
			COALESCE(file_path, ''), COALESCE(file_name, ''),
			COALESCE(file_size, 0), COALESCE(file_type, ''),
			created_at, updated_at
		FROM documents
		WHERE crew_member_id = $1
		ORDER BY document_type, updated_at DESC
	`, id)
	if err != nil {
		log.Printf("Error loading documents for crew %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch crew member")
		return
	}
	defer docRows.Close()

	var refEnd *time.Time
	contractFile := ""
	if active != nil {
		refEnd = end
		if active.FilePath != nil {
			contractFile = *active.FilePath
		}
	}
	onShore := detail.Status == compliance.CrewOnShore

	for docRows.Next() {
		var d models.DocumentWithCompliance
		if err := docRows.Scan(
			&d.ID, &d.CrewID, &d.Type, &d.DocumentNumber, &d.IssuingAuthority,
			&d.IssueDate, &d.ExpiryDate,
			&d.FilePath, &d.FileName, &d.FileSize, &d.FileType,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			log.Printf("Error scanning document: %v", err)
			continue
		}

		rec := compliance.Record{
			ID:        d.ID,
			Type:      d.Type,
			FilePath:  d.FilePath,
			UpdatedAt: d.UpdatedAt,
		}
		if d.ExpiryDate != nil {
			rec.ExpiryDate = compliance.ParseDate(*d.ExpiryDate)
		}

		var eval compliance.Evaluation
		if compliance.NormalizeType(d.Type) == compliance.TypeAOA {
			eval = compliance.EvaluateAOA(&rec, contractFile, refEnd, onShore, now)
		} else {
			eval = compliance.EvaluateRecord(&rec, refEnd, onShore, now)
		}
		d.Status = eval.Status
		d.DaysUntilExpiry = eval.DaysUntilExpiry
		d.DisplayName = compliance.DisplayName(d.Type)

		detail.Documents = append(detail.Documents, d)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": detail,
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update handles PUT /api/crew/{id}
func (h *CrewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	var req models.UpdateCrewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Build dynamic SET clause — only update provided fields
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	addField := func(col string, val interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if req.Name != nil {
		addField("name", *req.Name)
	}
	if req.Rank != nil {
		addField("rank", *req.Rank)
	}
	if req.Nationality != nil {
		addField("nationality", *req.Nationality)
	}
	if req.Mobile != nil {
		addField("mobile", *req.Mobile)
	}
	if req.DateOfBirth != nil {
		addField("date_of_birth", *req.DateOfBirth)
	}
	if req.PhotoURL != nil {
		addField("photo_url", *req.PhotoURL)
	}
	if req.NokName != nil {
		addField("nok_name", *req.NokName)
	}
	if req.NokRelation != nil {
		addField("nok_relation", *req.NokRelation)
	}
	if req.NokPhone != nil {
		addField("nok_phone", *req.NokPhone)
	}

	if len(setClauses) == 0 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	// Always update updated_at
	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE crew_members SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx, crewRetCols)
	args = append(args, id)

	var crew models.CrewMember
	if err := scanCrew(pool.QueryRow(ctx, query, args...), &crew); err != nil {
		log.Printf("Error updating crew member %s: %v", id, err)
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "crew", crew.ID, map[string]interface{}{
		"name": crew.Name,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    crew,
		"message": "Crew member updated successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete handles DELETE /api/crew/{id}
func (h *CrewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM crew_members WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting crew member %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete crew member")
		return
	}

	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "crew", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Crew member deleted successfully",
	})
}

// ── BatchDelete ────────────────────────────────────────────────

// BatchDelete handles POST /api/crew/batch-delete
// Accepts { "ids": ["uuid1", "uuid2", ...] } and deletes all matching crew.
func (h *CrewHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		JSONError(w, http.StatusBadRequest, "No crew IDs provided")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	scope := ctxkeys.GetVesselScope(r.Context())
	var tag interface{ RowsAffected() int64 }
	var err error
	if scope == nil {
		tag, err = pool.Exec(ctx, "DELETE FROM crew_members WHERE id = ANY($1::uuid[])", req.IDs)
	} else {
		tag, err = pool.Exec(ctx,
			"DELETE FROM crew_members WHERE id = ANY($1::uuid[]) AND (vessel_id IS NULL OR vessel_id = ANY($2))",
			req.IDs, scope)
	}
	if err != nil {
		log.Printf("Error batch deleting crew: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete crew members")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	for _, id := range req.IDs {
		logActivity(pool, userID, "deleted", "crew", id, nil)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%d crew member(s) deleted successfully", tag.RowsAffected()),
		"deleted": tag.RowsAffected(),
	})
}

// ── History ────────────────────────────────────────────────────

// History handles GET /api/crew/{id}/history — the status transition log.
func (h *CrewHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT id, crew_member_id, from_status, to_status, reason,
			vessel_id::text, contract_id::text, changed_by::text, created_at
		FROM crew_status_history
		WHERE crew_member_id = $1
		ORDER BY created_at DESC
	`, id)
	if err != nil {
		log.Printf("Error fetching status history for crew %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	defer rows.Close()

	entries := []models.StatusHistoryEntry{}
	for rows.Next() {
		var e models.StatusHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.CrewID, &e.FromStatus, &e.ToStatus, &e.Reason,
			&e.VesselID, &e.ContractID, &e.ChangedBy, &e.CreatedAt,
		); err != nil {
			log.Printf("Error scanning history entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
	})
}

// ── Export ──────────────────────────────────────────────────────

// Export handles GET /api/crew/export — returns CSV with the evaluated
// compliance status per crew member.
func (h *CrewHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	scope := ctxkeys.GetVesselScope(ctx)
	if scope != nil {
		where += " AND (cm.vessel_id IS NULL OR cm.vessel_id = ANY($1))"
		args = append(args, scope)
	}

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, COALESCE(v.name, '')
		FROM crew_members cm
		LEFT JOIN vessels v ON v.id = cm.vessel_id
		%s
		ORDER BY cm.name ASC
	`, crewCols, where), args...)
	if err != nil {
		log.Printf("Error exporting crew: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}
	defer rows.Close()

	type exportRow struct {
		cm     models.CrewMember
		vessel string
	}
	exports := []exportRow{}
	crewIDs := []string{}
	for rows.Next() {
		var er exportRow
		if err := scanCrewExport(rows, &er.cm, &er.vessel); err != nil {
			continue
		}
		exports = append(exports, er)
		crewIDs = append(crewIDs, er.cm.ID)
	}
	rows.Close()

	records, err := loadDocumentRecords(ctx, pool, crewIDs)
	if err != nil {
		log.Printf("Error loading documents for export: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}
	contracts, err := loadActiveContracts(ctx, pool, crewIDs)
	if err != nil {
		log.Printf("Error loading contracts for export: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=crew.csv")

	// Write CSV header
	fmt.Fprintln(w, "Name,Rank,Nationality,Mobile,Status,Vessel,Contract End,Compliance,Expired,Expiring,Missing")

	now := time.Now()
	for _, er := range exports {
		var active *activeContractRow
		contractEnd := ""
		if ac, ok := contracts[er.cm.ID]; ok {
			active = &ac
			contractEnd = ac.EndDate
		}
		summary := summarizeCrew(&er.cm, records[er.cm.ID], active, now)

		nationality := ""
		if er.cm.Nationality != nil {
			nationality = *er.cm.Nationality
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%s,%s,%d,%d,%d\n",
			csvEscape(er.cm.Name), csvEscape(er.cm.Rank), csvEscape(nationality),
			csvEscape(er.cm.Mobile), er.cm.Status, csvEscape(er.vessel), contractEnd,
			summary.OverallStatus, summary.ExpiredCount, summary.ExpiringCount, summary.MissingCount)
	}
}

func scanCrewExport(scanner interface {
	Scan(dest ...interface{}) error
}, cm *models.CrewMember, vessel *string) error {
	return scanner.Scan(
		&cm.ID, &cm.Name, &cm.Rank, &cm.Nationality, &cm.Mobile,
		&cm.DateOfBirth, &cm.PhotoURL, &cm.Status, &cm.VesselID,
		&cm.NokName, &cm.NokRelation, &cm.NokPhone,
		&cm.CreatedAt, &cm.UpdatedAt,
		vessel,
	)
}

// ── Helpers ────────────────────────────────────────────────────

// nilIfEmpty returns nil if the string is empty, otherwise returns a pointer to it.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// csvEscape wraps a value in quotes if it contains commas.
func csvEscape(s string) string {
	if strings.Contains(s, ",") || strings.Contains(s, "\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
