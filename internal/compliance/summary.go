package compliance

import "time"

// ── Crew-Level Aggregation ───────────────────────────────────────
// One summary per crew member, computed from their tracked documents and
// active contract. Feeds the crew list rows and the dashboard — the same
// evaluator drives every call site.

// Summary aggregates document statuses for one crew member.
type Summary struct {
	OverallStatus     string  `json:"overallStatus"`
	ExpiredCount      int     `json:"expiredCount"`
	ExpiringCount     int     `json:"expiringCount"`
	MissingCount      int     `json:"missingCount"`
	RunwayCount       int     `json:"runwayCount"`
	NearestExpiryDays *int    `json:"nearestExpiryDays,omitempty"`
	UrgentDocType     *string `json:"urgentDocType,omitempty"`
}

// severityRank orders statuses worst-first for the overall verdict.
var severityRank = map[string]int{
	StatusExpired:       0,
	StatusContractBlock: 1,
	StatusExpiring:      2,
	StatusMissing:       3,
	StatusRunwayAlert:   4,
	StatusValid:         5,
}

// Summarize evaluates every tracked document type for a crew member and
// rolls the results up. contractFilePath/contractEnd describe the active
// contract (empty/nil when there is none) — they both serve as the AOA
// fallback and as the reference end for the other documents.
func Summarize(records []Record, contractFilePath string, contractEnd *time.Time, crewStatus string, now time.Time) Summary {
	onShore := crewStatus == CrewOnShore

	s := Summary{OverallStatus: StatusValid}
	worst := severityRank[StatusValid]

	for _, docType := range TrackedTypes {
		var eval Evaluation
		if docType == TypeAOA {
			eval = EvaluateAOA(MatchRecord(records, docType), contractFilePath, contractEnd, onShore, now)
		} else {
			eval = EvaluateRecord(MatchRecord(records, docType), contractEnd, onShore, now)
		}

		switch eval.Status {
		case StatusExpired:
			s.ExpiredCount++
		case StatusExpiring, StatusContractBlock:
			s.ExpiringCount++
		case StatusMissing:
			s.MissingCount++
		case StatusRunwayAlert:
			s.RunwayCount++
		}

		if rank, ok := severityRank[eval.Status]; ok && rank < worst {
			worst = rank
			s.OverallStatus = eval.Status
		}

		if eval.DaysUntilExpiry != nil {
			if s.NearestExpiryDays == nil || *eval.DaysUntilExpiry < *s.NearestExpiryDays {
				days := *eval.DaysUntilExpiry
				dt := docType
				s.NearestExpiryDays = &days
				s.UrgentDocType = &dt
			}
		}
	}
	return s
}
