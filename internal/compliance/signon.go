package compliance

import (
	"strings"
	"time"
)

// ── Sign-On Eligibility Gate ─────────────────────────────────────

// CriticalDocTypes are required of every rank before sign-on. Officers
// additionally need a valid Certificate of Competency.
var CriticalDocTypes = []string{TypePassport, TypeCDC, TypeMedical}

// officerRankKeywords is the fixed list matched case-insensitively as a
// substring of the crew member's rank.
var officerRankKeywords = []string{
	"captain",
	"master",
	"chief officer",
	"second officer",
	"third officer",
	"chief engineer",
	"second engineer",
	"third engineer",
	"fourth engineer",
	"officer",
	"mate",
}

// IsOfficerRank reports whether a rank requires a Certificate of Competency.
func IsOfficerRank(rank string) bool {
	r := strings.ToLower(rank)
	for _, kw := range officerRankKeywords {
		if strings.Contains(r, kw) {
			return true
		}
	}
	return false
}

// Eligibility is the gate's verdict for a prospective sign-on.
type Eligibility struct {
	Blockers       []string `json:"blockers"` // document types refusing sign-on
	HasRunwayAlert bool     `json:"hasRunwayAlert"`
}

// Blocked reports whether sign-on must be refused outright.
func (e Eligibility) Blocked() bool {
	return len(e.Blockers) > 0
}

// CheckSignOnEligibility evaluates the critical document set against a
// prospective contract period. A type blocks sign-on when it is missing,
// expired, expiring, or lapses before the contract ends. A runway alert on
// any of the three always-critical types (coc excluded from this signal) is
// advisory only — the caller must collect an explicit acknowledgement, but
// may proceed.
func CheckSignOnEligibility(records []Record, prospectiveEnd time.Time, rank string, now time.Time) Eligibility {
	critical := CriticalDocTypes
	if IsOfficerRank(rank) {
		critical = append(append([]string{}, critical...), TypeCOC)
	}

	result := Eligibility{Blockers: []string{}}
	for _, docType := range critical {
		rec := MatchRecord(records, docType)
		eval := EvaluateRecord(rec, &prospectiveEnd, false, now)

		switch eval.Status {
		case StatusMissing, StatusExpired, StatusExpiring, StatusContractBlock:
			result.Blockers = append(result.Blockers, docType)
		case StatusRunwayAlert:
			if docType != TypeCOC {
				result.HasRunwayAlert = true
			}
		}
	}
	return result
}
