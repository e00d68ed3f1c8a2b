package models

import "time"

// ── Core Document ────────────────────────────────────────────────

// Document represents a compliance certificate held by a crew member.
// Re-uploading the same type replaces the existing record.
type Document struct {
	ID               string    `json:"id"`
	CrewID           string    `json:"crewId"`
	Type             string    `json:"type"` // passport, cdc, coc, medical, aoa, photo, nok (legacy: stcw)
	DocumentNumber   *string   `json:"documentNumber"`
	IssuingAuthority *string   `json:"issuingAuthority"`
	IssueDate        *string   `json:"issueDate"`  // nullable — ISO date
	ExpiryDate       *string   `json:"expiryDate"` // nil for photo/nok types
	FilePath         string    `json:"filePath"`   // empty → no artifact → status is always missing
	FileName         string    `json:"fileName"`
	FileSize         int64     `json:"fileSize"`
	FileType         string    `json:"fileType"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ── Document with Computed Compliance Fields ─────────────────────

// DocumentWithCompliance extends Document with the evaluation result,
// COMPUTED on every read — never stored in the database.
type DocumentWithCompliance struct {
	Document

	Status          string `json:"status"` // missing | valid | expiring | expired | contract_block | runway_alert
	DisplayName     string `json:"displayName"`
	DaysUntilExpiry *int   `json:"daysUntilExpiry,omitempty"` // negative = overdue
}

// ── Create / Update Requests ─────────────────────────────────────

// UpsertDocumentRequest creates or replaces the document of one type for a
// crew member.
type UpsertDocumentRequest struct {
	Type             string  `json:"type"`
	DocumentNumber   *string `json:"documentNumber,omitempty"`
	IssuingAuthority *string `json:"issuingAuthority,omitempty"`
	IssueDate        *string `json:"issueDate,omitempty"`
	ExpiryDate       *string `json:"expiryDate,omitempty"`
	FilePath         string  `json:"filePath"`
	FileName         string  `json:"fileName"`
	FileSize         int64   `json:"fileSize"`
	FileType         string  `json:"fileType"`
}

// UpdateDocumentRequest holds the fields that can be partially updated.
type UpdateDocumentRequest struct {
	DocumentNumber   *string `json:"documentNumber,omitempty"`
	IssuingAuthority *string `json:"issuingAuthority,omitempty"`
	IssueDate        *string `json:"issueDate,omitempty"`
	ExpiryDate       *string `json:"expiryDate,omitempty"`
	FilePath         *string `json:"filePath,omitempty"`
	FileName         *string `json:"fileName,omitempty"`
	FileSize         *int64  `json:"fileSize,omitempty"`
	FileType         *string `json:"fileType,omitempty"`
}

// Validate checks if the upsert request contains valid data.
func (r *UpsertDocumentRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Type) < 2 {
		errors["type"] = "Document type is required (min 2 characters)"
	}

	return errors
}

// ── OCR Intake ───────────────────────────────────────────────────

// OCRIntakeResponse returns the flat key/value record extracted by the
// external OCR service, pre-mapped onto document fields for form prefill.
type OCRIntakeResponse struct {
	Fields    map[string]string     `json:"fields"` // raw extraction, as returned
	Suggested UpsertDocumentRequest `json:"suggested"`
}
