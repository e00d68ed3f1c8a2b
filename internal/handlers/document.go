package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/compliance"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/models"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ocr"
)

// DocumentHandler handles document-related HTTP requests.
type DocumentHandler struct {
	db  database.Service
	ocr *ocr.Client // nil when no OCR service is configured
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(db database.Service, ocrClient *ocr.Client) *DocumentHandler {
	return &DocumentHandler{db: db, ocr: ocrClient}
}

// ── Column lists & scan helpers ──────────────────────────────────
// Two variants: aliased (for SELECT with FROM) and unaliased (for RETURNING).

const docCols = `d.id, d.crew_member_id, d.document_type,
	d.document_number, d.issuing_authority,
	d.issue_date::text, d.expiry_date::text,
	COALESCE(d.file_path, ''), COALESCE(d.file_name, ''),
	COALESCE(d.file_size, 0), COALESCE(d.file_type, ''),
	d.created_at, d.updated_at`

const docRetCols = `id, crew_member_id, document_type,
	document_number, issuing_authority,
	issue_date::text, expiry_date::text,
	COALESCE(file_path, ''), COALESCE(file_name, ''),
	COALESCE(file_size, 0), COALESCE(file_type, ''),
	created_at, updated_at`

// scanDocument reads all Document columns from a row/rows scanner.
func scanDocument(scanner interface {
	Scan(dest ...interface{}) error
}, doc *models.Document) error {
	return scanner.Scan(
		&doc.ID, &doc.CrewID, &doc.Type,
		&doc.DocumentNumber, &doc.IssuingAuthority,
		&doc.IssueDate, &doc.ExpiryDate,
		&doc.FilePath, &doc.FileName,
		&doc.FileSize, &doc.FileType,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
}

// evalContext loads the evaluation inputs for one crew member: the active
// contract's end date and file, and whether they are on shore.
func evalContext(ctx context.Context, pool *pgxpool.Pool, crewID string) (refEnd *time.Time, contractFile string, onShore bool, err error) {
	var status string
	if err = pool.QueryRow(ctx,
		"SELECT status FROM crew_members WHERE id = $1", crewID,
	).Scan(&status); err != nil {
		return nil, "", false, err
	}
	onShore = status == compliance.CrewOnShore

	var endDate string
	var filePath *string
	err = pool.QueryRow(ctx, `
		SELECT end_date::text, file_path
		FROM contracts
		WHERE crew_member_id = $1 AND status = 'active'
		LIMIT 1
	`, crewID).Scan(&endDate, &filePath)
	if err != nil {
		// No active contract is a normal state, not an error.
		return nil, "", onShore, nil
	}
	refEnd = compliance.ParseDate(endDate)
	if filePath != nil {
		contractFile = *filePath
	}
	return refEnd, contractFile, onShore, nil
}

// enrichDocument evaluates one document against the crew member's context.
func enrichDocument(doc *models.Document, refEnd *time.Time, contractFile string, onShore bool, now time.Time) models.DocumentWithCompliance {
	dwc := models.DocumentWithCompliance{
		Document:    *doc,
		DisplayName: compliance.DisplayName(doc.Type),
	}

	rec := compliance.Record{
		ID:        doc.ID,
		Type:      doc.Type,
		FilePath:  doc.FilePath,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.ExpiryDate != nil {
		rec.ExpiryDate = compliance.ParseDate(*doc.ExpiryDate)
	}

	var eval compliance.Evaluation
	if compliance.NormalizeType(doc.Type) == compliance.TypeAOA {
		eval = compliance.EvaluateAOA(&rec, contractFile, refEnd, onShore, now)
	} else {
		eval = compliance.EvaluateRecord(&rec, refEnd, onShore, now)
	}
	dwc.Status = eval.Status
	dwc.DaysUntilExpiry = eval.DaysUntilExpiry

	return dwc
}

// ── Upsert ───────────────────────────────────────────────────────

// Upsert handles POST /api/crew/{crewId}/documents
// One document per type per crew member: re-uploading a type replaces the
// existing record in place.
func (h *DocumentHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	crewID := chi.URLParam(r, "crewId")
	if crewID == "" {
		crewID = chi.URLParam(r, "id")
	}
	if crewID == "" {
		JSONError(w, http.StatusBadRequest, "Crew ID is required")
		return
	}

	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	var req models.UpsertDocumentRequest
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

	// Legacy type names are folded on write so one slot holds each type.
	docType := compliance.NormalizeType(req.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Verify crew member exists
	var exists bool
	if err := pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM crew_members WHERE id = $1)", crewID).Scan(&exists); err != nil || !exists {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	var doc models.Document
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO documents (
			crew_member_id, document_type, document_number, issuing_authority,
			issue_date, expiry_date,
			file_path, file_name, file_size, file_type
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (crew_member_id, document_type) DO UPDATE SET
			document_number = EXCLUDED.document_number,
			issuing_authority = EXCLUDED.issuing_authority,
			issue_date = EXCLUDED.issue_date,
			expiry_date = EXCLUDED.expiry_date,
			file_path = EXCLUDED.file_path,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			file_type = EXCLUDED.file_type,
			updated_at = NOW()
		RETURNING %s
	`, docRetCols),
		crewID, docType, req.DocumentNumber, req.IssuingAuthority,
		req.IssueDate, req.ExpiryDate,
		req.FilePath, req.FileName, req.FileSize, req.FileType,
	)
	if err := scanDocument(row, &doc); err != nil {
		log.Printf("Error upserting document: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "upserted", "document", doc.ID, map[string]interface{}{
		"type": doc.Type, "crewId": crewID,
	})

	refEnd, contractFile, onShore, err := evalContext(ctx, pool, crewID)
	if err != nil {
		log.Printf("Error loading evaluation context: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	result := enrichDocument(&doc, refEnd, contractFile, onShore, time.Now())
	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    result,
		"message": "Document saved successfully",
	})
}

// ── List by Crew ─────────────────────────────────────────────────

// ListByCrew handles GET /api/crew/{id}/documents
// Returns every stored document plus a synthetic "missing" entry for each
// tracked type with no record, so the full posture is always visible.
func (h *DocumentHandler) ListByCrew(w http.ResponseWriter, r *http.Request) {
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
		SELECT %s
		FROM documents d
		WHERE d.crew_member_id = $1
		ORDER BY d.document_type ASC, d.updated_at DESC
	`, docCols), crewID)
	if err != nil {
		log.Printf("Error fetching documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	defer rows.Close()

	refEnd, contractFile, onShore, err := evalContext(ctx, pool, crewID)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Crew member not found")
		return
	}

	now := time.Now()
	documents := []models.DocumentWithCompliance{}
	seen := map[string]bool{}
	for rows.Next() {
		var doc models.Document
		if err := scanDocument(rows, &doc); err != nil {
			log.Printf("Error scanning document: %v", err)
			continue
		}
		documents = append(documents, enrichDocument(&doc, refEnd, contractFile, onShore, now))
		seen[compliance.NormalizeType(doc.Type)] = true
	}

	// Tracked types with no record at all still appear, as missing.
	for _, t := range compliance.TrackedTypes {
		if seen[t] {
			continue
		}
		if t == compliance.TypeAOA && contractFile != "" {
			// Contract file stands in for a missing AOA scan.
			eval := compliance.EvaluateAOA(nil, contractFile, refEnd, onShore, now)
			documents = append(documents, models.DocumentWithCompliance{
				Document:        models.Document{CrewID: crewID, Type: t},
				Status:          eval.Status,
				DisplayName:     compliance.DisplayName(t),
				DaysUntilExpiry: eval.DaysUntilExpiry,
			})
			continue
		}
		documents = append(documents, models.DocumentWithCompliance{
			Document:    models.Document{CrewID: crewID, Type: t},
			Status:      compliance.StatusMissing,
			DisplayName: compliance.DisplayName(t),
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": documents,
	})
}

// ── Get by ID ────────────────────────────────────────────────────

// GetByID handles GET /api/documents/{id}
func (h *DocumentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if !checkDocumentAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this document")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	row := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, cm.name AS crew_name, cm.rank AS crew_rank
		FROM documents d
		JOIN crew_members cm ON cm.id = d.crew_member_id
		WHERE d.id = $1
	`, docCols), id)

	var doc models.Document
	var crewName, crewRank string
	err := row.Scan(
		&doc.ID, &doc.CrewID, &doc.Type,
		&doc.DocumentNumber, &doc.IssuingAuthority,
		&doc.IssueDate, &doc.ExpiryDate,
		&doc.FilePath, &doc.FileName,
		&doc.FileSize, &doc.FileType,
		&doc.CreatedAt, &doc.UpdatedAt,
		&crewName, &crewRank,
	)
	if err != nil {
		log.Printf("Error fetching document %s: %v", id, err)
		JSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	refEnd, contractFile, onShore, err := evalContext(ctx, pool, doc.CrewID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to fetch document")
		return
	}

	result := enrichDocument(&doc, refEnd, contractFile, onShore, time.Now())
	JSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"document": result,
			"crewName": crewName,
			"crewRank": crewRank,
		},
	})
}

// ── Update ───────────────────────────────────────────────────────

// Update handles PUT /api/documents/{id}
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if !checkDocumentAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this document")
		return
	}

	var req models.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Build dynamic SET clause
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	addField := func(col string, val interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if req.DocumentNumber != nil {
		addField("document_number", *req.DocumentNumber)
	}
	if req.IssuingAuthority != nil {
		addField("issuing_authority", *req.IssuingAuthority)
	}
	if req.IssueDate != nil {
		addField("issue_date", *req.IssueDate)
	}
	if req.ExpiryDate != nil {
		addField("expiry_date", *req.ExpiryDate)
	}
	if req.FilePath != nil {
		addField("file_path", *req.FilePath)
	}
	if req.FileName != nil {
		addField("file_name", *req.FileName)
	}
	if req.FileSize != nil {
		addField("file_size", *req.FileSize)
	}
	if req.FileType != nil {
		addField("file_type", *req.FileType)
	}

	if len(setClauses) == 0 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	setClauses = append(setClauses, "updated_at = NOW()")

	query := fmt.Sprintf(`
		UPDATE documents SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx, docRetCols)
	args = append(args, id)

	var doc models.Document
	if err := scanDocument(pool.QueryRow(ctx, query, args...), &doc); err != nil {
		log.Printf("Error updating document %s: %v", id, err)
		JSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "document", doc.ID, map[string]interface{}{
		"type": doc.Type,
	})

	refEnd, contractFile, onShore, err := evalContext(ctx, pool, doc.CrewID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to update document")
		return
	}

	result := enrichDocument(&doc, refEnd, contractFile, onShore, time.Now())
	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    result,
		"message": "Document updated successfully",
	})
}

// ── Delete ───────────────────────────────────────────────────────

// Delete handles DELETE /api/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if !checkDocumentAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this document")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting document %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "document", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Document deleted successfully",
	})
}

// ── BatchDelete ────────────────────────────────────────────────

// BatchDelete handles POST /api/documents/batch-delete
// Accepts { "ids": ["uuid1", "uuid2", ...] } and deletes all matching documents.
func (h *DocumentHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		JSONError(w, http.StatusBadRequest, "No document IDs provided")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM documents WHERE id = ANY($1::uuid[])", req.IDs)
	if err != nil {
		log.Printf("Error batch deleting documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete documents")
		return
	}

	// Audit trail
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	for _, id := range req.IDs {
		logActivity(pool, userID, "deleted", "document", id, nil)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%d document(s) deleted successfully", tag.RowsAffected()),
		"deleted": tag.RowsAffected(),
	})
}

// ── OCR Intake ───────────────────────────────────────────────────

// OCRIntake handles POST /api/crew/{crewId}/documents/ocr
// Forwards the uploaded scan to the external OCR service and returns the
// extracted fields mapped onto a document form. Nothing is persisted;
// the caller reviews the suggestion and submits Upsert.
func (h *DocumentHandler) OCRIntake(w http.ResponseWriter, r *http.Request) {
	if h.ocr == nil {
		JSONError(w, http.StatusServiceUnavailable, "OCR service is not configured")
		return
	}

	crewID := chi.URLParam(r, "crewId")
	if crewID == "" {
		crewID = chi.URLParam(r, "id")
	}
	if !checkCrewAccess(r.Context(), h.db.GetPool(), crewID) {
		JSONError(w, http.StatusForbidden, "Access denied to this crew member")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		JSONError(w, http.StatusBadRequest, "File too large or invalid form (max 10MB)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		JSONError(w, http.StatusBadRequest, "Missing 'file' field")
		return
	}
	defer file.Close()

	docType := compliance.NormalizeType(r.FormValue("type"))

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	fields, err := h.ocr.Extract(ctx, file, header.Filename, docType)
	if err != nil {
		log.Printf("OCR extraction failed for crew %s: %v", crewID, err)
		JSONError(w, http.StatusBadGateway, "OCR extraction failed")
		return
	}

	resp := models.OCRIntakeResponse{
		Fields: fields,
		Suggested: models.UpsertDocumentRequest{
			Type: docType,
		},
	}
	if v := fields["document_number"]; v != "" {
		resp.Suggested.DocumentNumber = &v
	}
	if v := fields["issuing_authority"]; v != "" {
		resp.Suggested.IssuingAuthority = &v
	}
	if v := fields["issue_date"]; compliance.ParseDate(v) != nil {
		resp.Suggested.IssueDate = &v
	}
	if v := fields["expiry_date"]; compliance.ParseDate(v) != nil {
		resp.Suggested.ExpiryDate = &v
	}

	JSON(w, http.StatusOK, resp)
}
