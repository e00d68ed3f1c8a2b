package compliance

import (
	"math"
	"time"
)

// ── Contract & Crew Status Constants ─────────────────────────────

const (
	ContractActive     = "active"
	ContractCompleted  = "completed"
	ContractTerminated = "terminated"
)

const (
	CrewOnBoard = "onBoard"
	CrewOnShore = "onShore"
)

// ── Progress States ──────────────────────────────────────────────

const (
	StateNoContract = "no-contract"
	StateUpcoming   = "upcoming"
	StateActive     = "active"
	StateExpired    = "expired"
)

// Urgency tiers for active contracts, keyed off remaining days. The UI
// asserts on these thresholds for its color coding, so they are part of
// the contract.
const (
	UrgencyCritical = "critical" // fewer than 15 days remaining
	UrgencyWarning  = "warning"  // fewer than 30 days remaining
	UrgencyNormal   = "normal"
)

const (
	urgencyCriticalDays = 15
	urgencyWarningDays  = 30
)

// Progress describes how far through a contract a crew member is.
type Progress struct {
	Percent       int    `json:"percent"` // 0..100
	ElapsedDays   int    `json:"elapsedDays"`
	RemainingDays int    `json:"remainingDays"`
	TotalDays     int    `json:"totalDays"`
	State         string `json:"state"`
	Urgency       string `json:"urgency,omitempty"` // only set while active
}

// ContractProgress computes elapsed/remaining days and percent-complete for
// a contract period. The terminal no-contract state (all zeros) is returned
// when the dates are absent or inverted, the contract is not active, or the
// crew member is on shore — a completed contract never shows progress.
func ContractProgress(start, end *time.Time, contractStatus, crewStatus string, now time.Time) Progress {
	if start == nil || end == nil || !end.After(*start) ||
		contractStatus != ContractActive || crewStatus == CrewOnShore {
		return Progress{State: StateNoContract}
	}

	span := end.Sub(*start)

	totalDays := int(math.Ceil(span.Hours() / 24))
	if totalDays < 1 {
		totalDays = 1
	}

	elapsed := now.Sub(*start)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > span {
		elapsed = span
	}
	elapsedDays := int(elapsed.Hours() / 24)

	percent := int(math.Round(float64(elapsedDays) / float64(totalDays) * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	// Rounding reaches 100 a day early on long contracts; 100% means the
	// period is over, so hold at 99 until the end date passes.
	if percent == 100 && now.Before(*end) {
		percent = 99
	}

	remainingDays := int(math.Ceil(end.Sub(now).Hours() / 24))
	if remainingDays < 0 {
		remainingDays = 0
	}

	p := Progress{
		Percent:       percent,
		ElapsedDays:   elapsedDays,
		RemainingDays: remainingDays,
		TotalDays:     totalDays,
	}

	switch {
	case now.Before(*start):
		p.State = StateUpcoming
	case now.After(*end):
		p.State = StateExpired
	default:
		p.State = StateActive
		p.Urgency = UrgencyTier(remainingDays)
	}
	return p
}

// UrgencyTier maps remaining days to a rendering tier.
func UrgencyTier(remainingDays int) string {
	switch {
	case remainingDays < urgencyCriticalDays:
		return UrgencyCritical
	case remainingDays < urgencyWarningDays:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// ResolveEndDate recomputes a contract end date when a duration is supplied
// alongside the start: durationDays wins over an explicit end. Returns nil
// when neither is usable.
func ResolveEndDate(start *time.Time, end *time.Time, durationDays int) *time.Time {
	if start != nil && durationDays > 0 {
		e := start.AddDate(0, 0, durationDays)
		return &e
	}
	return end
}
