// Package compliance provides pure functions for crew document and contract
// compliance calculations. These functions have ZERO dependencies on HTTP,
// database, or any other infrastructure — making them trivially testable and
// reusable. Every function takes an explicit `now` so that one render pass
// (or one cron cycle) sees a single consistent clock.
package compliance

import (
	"strings"
	"time"
)

// ── Document Type Constants ──────────────────────────────────────

const (
	TypePassport = "passport"
	TypeCDC      = "cdc" // Continuous Discharge Certificate
	TypeCOC      = "coc" // Certificate of Competency
	TypeSTCW     = "stcw" // legacy records — matched as coc
	TypeMedical  = "medical"
	TypeAOA      = "aoa" // Articles of Agreement
	TypePhoto    = "photo"
	TypeNOK      = "nok" // next-of-kin record, no expiry
)

// ── Document Status Constants ────────────────────────────────────
// Status is always computed from (filePath, expiryDate, reference contract,
// now). It is never stored in the database.

const (
	StatusMissing       = "missing"        // No uploaded file — dates alone never count
	StatusValid         = "valid"          // Expiry comfortably ahead
	StatusExpiring      = "expiring"       // Expiry within 30 days
	StatusExpired       = "expired"        // Past expiry
	StatusContractBlock = "contract_block" // Expires before the reference contract ends
	StatusRunwayAlert   = "runway_alert"   // Lapses soon after the contract ends, or within 6 months while on shore
)

// ── Thresholds ───────────────────────────────────────────────────
// Renewal lead time for seafarer certificates is long, hence the 180-day
// look-ahead while a crew member is between contracts.

const (
	ExpiringSoonDays = 30  // "expiring" window
	RunwayBufferDays = 30  // buffer beyond the contract end before "valid"
	ShoreRunwayDays  = 180 // look-ahead applied on shore with no contract
)

// ── Evaluation ───────────────────────────────────────────────────

// Evaluation is the result of classifying one document.
type Evaluation struct {
	Status          string `json:"status"`
	DaysUntilExpiry *int   `json:"daysUntilExpiry"` // nil when no expiry applies
}

// EvaluateDocument derives the compliance status of a document.
// Parameters:
//   - filePath:       uploaded artifact path; empty means no upload at all
//   - expiry:         the document's expiry date (nil → no expiry on record)
//   - refContractEnd: end date of the contract the document must outlast (optional)
//   - onShore:        whether the crew member is currently between contracts
//   - now:            current time (injected for testability)
//
// Classification is severity-first: expired and expiring always win, the
// contract comparison applies only after those, and the 180-day shore runway
// applies only when there is no reference contract at all.
func EvaluateDocument(filePath string, expiry, refContractEnd *time.Time, onShore bool, now time.Time) Evaluation {
	if filePath == "" {
		return Evaluation{Status: StatusMissing}
	}
	// Photo / next-of-kin documents carry no expiry and are valid as long
	// as a file is attached.
	if expiry == nil {
		return Evaluation{Status: StatusValid}
	}

	today := truncateToDay(now)
	exp := truncateToDay(*expiry)
	days := int(exp.Sub(today).Hours() / 24)

	switch {
	case days < 0:
		return Evaluation{Status: StatusExpired, DaysUntilExpiry: &days}
	case days <= ExpiringSoonDays:
		return Evaluation{Status: StatusExpiring, DaysUntilExpiry: &days}
	}

	if refContractEnd != nil {
		refEnd := truncateToDay(*refContractEnd)
		switch {
		case exp.Before(refEnd):
			// Document lapses mid-contract — hard blocker for sign-on.
			return Evaluation{Status: StatusContractBlock, DaysUntilExpiry: &days}
		case exp.Before(refEnd.AddDate(0, 0, RunwayBufferDays)):
			return Evaluation{Status: StatusRunwayAlert, DaysUntilExpiry: &days}
		}
		return Evaluation{Status: StatusValid, DaysUntilExpiry: &days}
	}

	if onShore && days <= ShoreRunwayDays {
		return Evaluation{Status: StatusRunwayAlert, DaysUntilExpiry: &days}
	}
	return Evaluation{Status: StatusValid, DaysUntilExpiry: &days}
}

// ── Record Matching ──────────────────────────────────────────────

// Record is the minimal document shape the engine needs. Handlers map
// database rows onto it; tests construct it directly.
type Record struct {
	ID         string
	Type       string
	FilePath   string
	ExpiryDate *time.Time
	UpdatedAt  time.Time
}

// MatchRecord picks the record for a document type. Legacy "stcw" records
// match coc lookups (and vice versa). When several records match, the most
// recently updated one WITH an uploaded file wins; if none has a file, the
// most recent record is returned so callers still see its metadata (its
// status will be missing regardless). Returns nil when nothing matches.
func MatchRecord(records []Record, docType string) *Record {
	want := NormalizeType(docType)

	var withFile, latest *Record
	for i := range records {
		r := &records[i]
		if NormalizeType(r.Type) != want {
			continue
		}
		if latest == nil || r.UpdatedAt.After(latest.UpdatedAt) {
			latest = r
		}
		if r.FilePath != "" && (withFile == nil || r.UpdatedAt.After(withFile.UpdatedAt)) {
			withFile = r
		}
	}
	if withFile != nil {
		return withFile
	}
	return latest
}

// NormalizeType lower-cases a document type and folds the legacy stcw alias
// into coc. Unknown types pass through unchanged (they simply never match a
// tracked lookup).
func NormalizeType(docType string) string {
	t := strings.ToLower(strings.TrimSpace(docType))
	if t == TypeSTCW {
		return TypeCOC
	}
	return t
}

// EvaluateRecord classifies a matched record, treating a nil record as a
// missing document.
func EvaluateRecord(rec *Record, refContractEnd *time.Time, onShore bool, now time.Time) Evaluation {
	if rec == nil {
		return Evaluation{Status: StatusMissing}
	}
	return EvaluateDocument(rec.FilePath, rec.ExpiryDate, refContractEnd, onShore, now)
}

// EvaluateAOA classifies the Articles of Agreement. When no dedicated AOA
// document has been uploaded, the active contract's own scan and end date
// stand in for it: the contract end is the expiry and the contract file is
// the artifact. The fallback is evaluated without a reference contract —
// it IS the contract.
func EvaluateAOA(rec *Record, contractFilePath string, contractEnd *time.Time, onShore bool, now time.Time) Evaluation {
	if rec != nil && rec.FilePath != "" {
		return EvaluateDocument(rec.FilePath, rec.ExpiryDate, contractEnd, onShore, now)
	}
	return EvaluateDocument(contractFilePath, contractEnd, nil, onShore, now)
}

// ── Display Names ────────────────────────────────────────────────

var displayNames = map[string]string{
	TypePassport: "Passport",
	TypeCDC:      "Continuous Discharge Certificate",
	TypeCOC:      "Certificate of Competency",
	TypeMedical:  "Medical Certificate",
	TypeAOA:      "Articles of Agreement",
	TypePhoto:    "Photograph",
	TypeNOK:      "Next of Kin",
}

// DisplayName returns the human-readable name for a document type.
func DisplayName(docType string) string {
	if name, ok := displayNames[NormalizeType(docType)]; ok {
		return name
	}
	if docType == "" {
		return "Document"
	}
	words := strings.Split(strings.ReplaceAll(docType, "_", " "), " ")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// TrackedTypes lists the document types with expiry tracking, in display
// order. photo and nok are excluded — they have no expiry to track.
var TrackedTypes = []string{TypePassport, TypeCDC, TypeCOC, TypeMedical, TypeAOA}

// ── Date Parsing ─────────────────────────────────────────────────

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses an ISO-8601 date string, tolerating both plain dates and
// timestamps. Returns nil for empty or unparseable input — malformed dates
// degrade to the missing/no-contract state, they never abort a request.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ── Internal Helpers ─────────────────────────────────────────────

// truncateToDay strips the time component, keeping only the date.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
