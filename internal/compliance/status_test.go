package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestEvaluateDocument_NoFileIsAlwaysMissing(t *testing.T) {
	now := date(2025, 1, 1)

	// An expiry date without an uploaded file never counts as valid.
	eval := EvaluateDocument("", datePtr(2030, 1, 1), nil, false, now)
	assert.Equal(t, StatusMissing, eval.Status)
	assert.Nil(t, eval.DaysUntilExpiry)

	eval = EvaluateDocument("", nil, datePtr(2025, 6, 1), true, now)
	assert.Equal(t, StatusMissing, eval.Status)
}

func TestEvaluateDocument_NoExpiryWithFileIsValid(t *testing.T) {
	// photo / nok documents: valid as long as a file is attached.
	eval := EvaluateDocument("uploads/photo.jpg", nil, nil, true, date(2025, 1, 1))
	assert.Equal(t, StatusValid, eval.Status)
	assert.Nil(t, eval.DaysUntilExpiry)
}

func TestEvaluateDocument_Classification(t *testing.T) {
	now := date(2025, 1, 1)

	tests := []struct {
		name    string
		expiry  time.Time
		refEnd  *time.Time
		onShore bool
		want    string
		days    int
	}{
		{"expired yesterday", date(2024, 12, 31), nil, false, StatusExpired, -1},
		{"expires today counts as expiring", date(2025, 1, 1), nil, false, StatusExpiring, 0},
		{"expires in 30 days", date(2025, 1, 31), nil, false, StatusExpiring, 30},
		{"expires in 31 days", date(2025, 2, 1), nil, false, StatusValid, 31},
		{"on shore within 180 days", date(2025, 6, 1), nil, true, StatusRunwayAlert, 151},
		{"on shore beyond 180 days", date(2025, 8, 1), nil, true, StatusValid, 212},
		{"on board within 180 days no contract", date(2025, 6, 1), nil, false, StatusValid, 151},
		{"expires before contract end", date(2025, 3, 20), datePtr(2025, 4, 1), false, StatusContractBlock, 78},
		{"expires within 30 days after contract end", date(2025, 4, 20), datePtr(2025, 4, 1), false, StatusRunwayAlert, 109},
		{"expires well after contract end", date(2025, 6, 1), datePtr(2025, 4, 1), false, StatusValid, 151},
		// Expired/expiring always win over the contract comparison.
		{"expired dominates contract block", date(2024, 12, 1), datePtr(2025, 4, 1), false, StatusExpired, -31},
		{"expiring dominates contract block", date(2025, 1, 20), datePtr(2025, 4, 1), false, StatusExpiring, 19},
		// The 180-day shore runway does not apply once a contract is in play.
		{"shore runway skipped with reference contract", date(2025, 6, 10), datePtr(2025, 4, 1), true, StatusValid, 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := EvaluateDocument("uploads/doc.pdf", &tt.expiry, tt.refEnd, tt.onShore, now)
			assert.Equal(t, tt.want, eval.Status)
			require.NotNil(t, eval.DaysUntilExpiry)
			assert.Equal(t, tt.days, *eval.DaysUntilExpiry)
		})
	}
}

// Classification must walk valid → runway_alert → expiring → expired as the
// expiry approaches, never skipping backward.
func TestEvaluateDocument_Monotonicity(t *testing.T) {
	now := date(2025, 1, 1)
	order := map[string]int{StatusValid: 0, StatusRunwayAlert: 1, StatusExpiring: 2, StatusExpired: 3}

	prev := -1
	for days := 200; days >= -5; days-- {
		expiry := now.AddDate(0, 0, days)
		eval := EvaluateDocument("uploads/doc.pdf", &expiry, nil, true, now)

		rank, ok := order[eval.Status]
		require.True(t, ok, "unexpected status %q at %d days", eval.Status, days)
		assert.GreaterOrEqual(t, rank, prev, "classification went backward at %d days", days)
		prev = rank
	}
}

func TestEvaluateDocument_ContractBlockRegardlessOfDistance(t *testing.T) {
	// A passport expiring 2025-03-20 against a contract ending 2025-04-01,
	// today 2025-01-01 — blocked even though ~78 days remain.
	now := date(2025, 1, 1)
	eval := EvaluateDocument("uploads/passport.pdf", datePtr(2025, 3, 20), datePtr(2025, 4, 1), false, now)

	assert.Equal(t, StatusContractBlock, eval.Status)
	require.NotNil(t, eval.DaysUntilExpiry)
	assert.Equal(t, 78, *eval.DaysUntilExpiry)
}

func TestEvaluateDocument_TimeOfDayIgnored(t *testing.T) {
	// Both sides truncate to midnight, so the hour never shifts the day count.
	now := time.Date(2025, 1, 1, 23, 45, 0, 0, time.UTC)
	expiry := time.Date(2025, 1, 11, 1, 0, 0, 0, time.UTC)

	eval := EvaluateDocument("uploads/doc.pdf", &expiry, nil, false, now)
	require.NotNil(t, eval.DaysUntilExpiry)
	assert.Equal(t, 10, *eval.DaysUntilExpiry)
}

func TestMatchRecord(t *testing.T) {
	records := []Record{
		{ID: "old", Type: "coc", FilePath: "uploads/old.pdf", UpdatedAt: date(2024, 1, 1)},
		{ID: "legacy", Type: "stcw", FilePath: "uploads/stcw.pdf", UpdatedAt: date(2024, 6, 1)},
		{ID: "nofile", Type: "coc", FilePath: "", UpdatedAt: date(2024, 12, 1)},
		{ID: "passport", Type: "passport", FilePath: "uploads/pp.pdf", UpdatedAt: date(2024, 3, 1)},
	}

	t.Run("coc lookup matches legacy stcw and prefers files", func(t *testing.T) {
		rec := MatchRecord(records, "coc")
		require.NotNil(t, rec)
		// The record without a file is newer, but the newest WITH a file wins.
		assert.Equal(t, "legacy", rec.ID)
	})

	t.Run("stcw lookup finds coc records", func(t *testing.T) {
		rec := MatchRecord(records, "stcw")
		require.NotNil(t, rec)
		assert.Equal(t, "legacy", rec.ID)
	})

	t.Run("falls back to fileless record", func(t *testing.T) {
		rec := MatchRecord([]Record{{ID: "slot", Type: "medical"}}, "medical")
		require.NotNil(t, rec)
		assert.Equal(t, "slot", rec.ID)
	})

	t.Run("unknown type matches nothing", func(t *testing.T) {
		assert.Nil(t, MatchRecord(records, "visa"))
	})
}

func TestEvaluateAOA_FallsBackToContract(t *testing.T) {
	now := date(2025, 1, 1)

	t.Run("dedicated aoa document wins", func(t *testing.T) {
		rec := &Record{Type: "aoa", FilePath: "uploads/aoa.pdf", ExpiryDate: datePtr(2025, 8, 1)}
		eval := EvaluateAOA(rec, "uploads/contract.pdf", datePtr(2025, 4, 1), false, now)
		assert.Equal(t, StatusValid, eval.Status)
	})

	t.Run("contract stands in when no aoa uploaded", func(t *testing.T) {
		eval := EvaluateAOA(nil, "uploads/contract.pdf", datePtr(2025, 3, 1), false, now)
		// Contract end is the expiry; 59 days out → valid, no contract_block
		// nuance against itself.
		assert.Equal(t, StatusValid, eval.Status)
		require.NotNil(t, eval.DaysUntilExpiry)
		assert.Equal(t, 59, *eval.DaysUntilExpiry)
	})

	t.Run("no aoa and no contract file is missing", func(t *testing.T) {
		eval := EvaluateAOA(nil, "", nil, true, now)
		assert.Equal(t, StatusMissing, eval.Status)
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"2025-04-01", datePtr(2025, 4, 1)},
		{"2025-04-01T00:00:00Z", datePtr(2025, 4, 1)},
		{"", nil},
		{"not-a-date", nil},
		{"2025-13-45", nil},
	}
	for _, tt := range tests {
		got := ParseDate(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
		} else {
			require.NotNil(t, got, "input %q", tt.in)
			assert.True(t, got.Equal(*tt.want), "input %q", tt.in)
		}
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Certificate of Competency", DisplayName("coc"))
	assert.Equal(t, "Certificate of Competency", DisplayName("stcw"))
	assert.Equal(t, "Articles of Agreement", DisplayName("aoa"))
	assert.Equal(t, "Yellow Fever", DisplayName("yellow_fever"))
	assert.Equal(t, "Document", DisplayName(""))
}
