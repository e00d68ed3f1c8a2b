package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
)

// SignOnHandler runs the sign-on eligibility gate and the crew status
// transitions. Every transition is recorded in crew_status_history.
type SignOnHandler struct {
	db database.Service
}

// NewSignOnHandler creates a new SignOnHandler.
func NewSignOnHandler(db database.Service) *SignOnHandler {
	return &SignOnHandler{db: db}
}

// eligibilityResponse is the gate verdict plus the per-document detail the
// UI needs to explain a refusal.
type eligibilityResponse struct {
	Eligible                bool                  `json:"eligible"`
	RequiresAcknowledgement bool                  `json:"requiresAcknowledgement"`
	Blockers                []string              `json:"blockers"`
	Documents               []eligibilityDocument `json:"documents"`
}

type eligibilityDocument struct {
	Type            string `json:"type"`
	DisplayName     string `json:"displayName"`
	Status          string `json:"status"`
	DaysUntilExpiry *int   `json:"daysUntilExpiry,omitempty"`
}

// runGate loads the crew member's documents and evaluates them against the
// contract's end date.
func runGate(ctx context.Context, pool *pgxpool.Pool, crewID, rank string, prospectiveEnd time.Time, now time.Time) (compliance.Eligibility, []eligibilityDocument, error) {
	records, err := loadDocumentRecords(ctx, pool, []string{crewID})
	if err != nil {
		return compliance.Eligibility{}, nil, err
	}
	recs := records[crewID]

	elig := compliance.CheckSignOnEligibility(recs, prospectiveEnd, rank, now)

	critical := compliance.CriticalDocTypes
	if compliance.IsOfficerRank(rank) {
		critical = append(append([]string{}, critical...), compliance.TypeCOC)
	}

	docs := make([]eligibilityDocument, 0, len(critical))
	for _, t := range critical {
		rec := compliance.MatchRecord(recs, t)
		eval := compliance.EvaluateRecord(rec, &prospectiveEnd, false, now)
		docs = append(docs, eligibilityDocument{
			Type:            t,
			DisplayName:     compliance.DisplayName(t),
			Status:          eval.Status,
			DaysUntilExpiry: eval.DaysUntilExpiry,
		})
	}
	return elig, docs, nil
}

// ── Check ──────────────────────────────────────────────────────

// Check handles GET /api/crew/{id}/sign-on/check?contractId=...
// A dry run of the gate: nothing changes, the verdict is returned as-is.
func (h *SignOnHandler) Check(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "id")
	contractID := r.URL.Query().Get("contractId")
	if crewID == "" || contractID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID and contractId are required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var rank string
	if err := pool.QueryRow(ctx, "SELECT rank FROM crew_members WHERE id = $1", crewID).Scan(&rank); err != nil {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	var endDate string
	err := pool.QueryRow(ctx, `
		SELECT end_date::text FROM contracts
		WHERE id = $1 AND crew_member_id = $2
	`, contractID, crewID).Scan(&endDate)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Contract not found for this crew member")
		return
	}
	prospectiveEnd := compliance.ParseDate(endDate)
	if prospectiveEnd == nil {
		JSONError(w, http.StatusUnprocessableEntity, "Contract has no valid end date")
		return
	}

	now := time.Now()
	elig, docs, err := runGate(ctx, pool, crewID, rank, *prospectiveEnd, now)
	if err != nil {
		log.Printf("Error running eligibility gate for crew %s: %v", crewID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to check eligibility")
		return
	}

	JSON(w, http.StatusOK, eligibilityResponse{
		Eligible:                !elig.Blocked(),
		RequiresAcknowledgement: elig.HasRunwayAlert,
		Blockers:                elig.Blockers,
		Documents:               docs,
	})
}

// ── Sign On ────────────────────────────────────────────────────

// SignOn handles POST /api/crew/{id}/sign-on
// Transitions onShore → onBoard when the gate passes. Runway alerts on the
// always-critical documents require an explicit acknowledgement in the
// request; hard blockers refuse the transition outright.
func (h *SignOnHandler) SignOn(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "id")
	if crewID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	var req models.SignOnRequest
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

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var rank, crewStatus string
	if err := pool.QueryRow(ctx,
		"SELECT rank, status FROM crew_members WHERE id = $1", crewID,
	).Scan(&rank, &crewStatus); err != nil {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}
	if crewStatus != compliance.CrewOnShore {
		JSONError(w, http.StatusConflict, "Crew member is already on board")
		return
	}

	var vesselID, endDate, contractStatus string
	err := pool.QueryRow(ctx, `
		SELECT vessel_id::text, end_date::text, status FROM contracts
		WHERE id = $1 AND crew_member_id = $2
	`, req.ContractID, crewID).Scan(&vesselID, &endDate, &contractStatus)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Contract not found for this crew member")
		return
	}
	if contractStatus != compliance.ContractActive {
		JSONError(w, http.StatusConflict, "Contract is no longer active")
		return
	}
	if !checkVesselAccess(r.Context(), vesselID) {
		JSONError(w, http.StatusForbidden, "Access denied to this vessel")
		return
	}

	prospectiveEnd := compliance.ParseDate(endDate)
	if prospectiveEnd == nil {
		JSONError(w, http.StatusUnprocessableEntity, "Contract has no valid end date")
		return
	}

	now := time.Now()
	elig, docs, err := runGate(ctx, pool, crewID, rank, *prospectiveEnd, now)
	if err != nil {
		log.Printf("Error running eligibility gate for crew %s: %v", crewID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to check eligibility")
		return
	}

	if elig.Blocked() {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":     "Sign-on blocked by document compliance",
			"blockers":  elig.Blockers,
			"documents": docs,
		})
		return
	}
	if elig.HasRunwayAlert && !req.AcknowledgeRunway {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":                   "A document lapses shortly after this contract ends",
			"requiresAcknowledgement": true,
			"documents":               docs,
		})
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting sign-on transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign on")
		return
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE crew_members SET status = $1, vessel_id = $2, updated_at = NOW()
		WHERE id = $3
	`, compliance.CrewOnBoard, vesselID, crewID)
	if err != nil {
		log.Printf("Error updating crew status: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign on")
		return
	}

	_, err = tx.Exec(ctx, `
		UPDATE contracts SET sign_on_reason = $1, updated_at = NOW()
		WHERE id = $2
	`, req.Reason, req.ContractID)
	if err != nil {
		log.Printf("Error recording sign-on reason: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign on")
		return
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO crew_status_history (
			crew_member_id, from_status, to_status, reason,
			vessel_id, contract_id, changed_by
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, crewID, compliance.CrewOnShore, compliance.CrewOnBoard, req.Reason,
		vesselID, req.ContractID, nilIfEmpty(userID))
	if err != nil {
		log.Printf("Error recording status history: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign on")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing sign-on: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign on")
		return
	}

	logActivity(pool, userID, "signed_on", "crew", crewID, map[string]interface{}{
		"contractId": req.ContractID, "vesselId": vesselID,
		"runwayAcknowledged": elig.HasRunwayAlert,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Crew member signed on successfully",
		"data": map[string]interface{}{
			"status":     compliance.CrewOnBoard,
			"vesselId":   vesselID,
			"contractId": req.ContractID,
		},
	})
}

// ── Sign Off ───────────────────────────────────────────────────

// SignOff handles POST /api/crew/{id}/sign-off
// Transitions onBoard → onShore. The active contract is completed (normal
// end of service) or terminated, per the request.
func (h *SignOnHandler) SignOff(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "id")
	if crewID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	var req models.SignOffRequest
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

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var crewStatus string
	var vesselID *string
	if err := pool.QueryRow(ctx,
		"SELECT status, vessel_id::text FROM crew_members WHERE id = $1", crewID,
	).Scan(&crewStatus, &vesselID); err != nil {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}
	if crewStatus != compliance.CrewOnBoard {
		JSONError(w, http.StatusConflict, "Crew member is not on board")
		return
	}

	finalStatus := compliance.ContractTerminated
	if req.CompleteContract {
		finalStatus = compliance.ContractCompleted
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting sign-off transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign off")
		return
	}
	defer tx.Rollback(ctx)

	// Close the active contract, if any. Sign-off without one is legal:
	// the contract may already have been closed administratively.
	var contractID *string
	err = tx.QueryRow(ctx, `
		UPDATE contracts SET status = $1, sign_off_reason = $2, updated_at = NOW()
		WHERE crew_member_id = $3 AND status = 'active'
		RETURNING id::text
	`, finalStatus, req.Reason, crewID).Scan(&contractID)
	if err != nil {
		if !noActiveContract(err) {
			log.Printf("Error closing active contract: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to sign off")
			return
		}
		contractID = nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE crew_members SET status = $1, vessel_id = NULL, updated_at = NOW()
		WHERE id = $2
	`, compliance.CrewOnShore, crewID)
	if err != nil {
		log.Printf("Error updating crew status: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign off")
		return
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO crew_status_history (
			crew_member_id, from_status, to_status, reason,
			vessel_id, contract_id, changed_by
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, crewID, compliance.CrewOnBoard, compliance.CrewOnShore, req.Reason,
		vesselID, contractID, nilIfEmpty(userID))
	if err != nil {
		log.Printf("Error recording status history: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign off")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing sign-off: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to sign off")
		return
	}

	logActivity(pool, userID, "signed_off", "crew", crewID, map[string]interface{}{
		"contractStatus": finalStatus,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Crew member signed off successfully",
		"data": map[string]interface{}{
			"status":         compliance.CrewOnShore,
			"contractStatus": finalStatus,
		},
	})
}

// noActiveContract reports whether closing the active contract matched no
// row. That case is legal during sign-off: the contract may already have
// been closed through the contract endpoints. Any other error is a real
// failure and must abort the transaction.
func noActiveContract(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
