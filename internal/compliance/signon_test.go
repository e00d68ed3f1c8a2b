package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDocSet(expiry time.Time) []Record {
	return []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: &expiry},
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: &expiry},
		{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: &expiry},
		{Type: TypeCOC, FilePath: "uploads/coc.pdf", ExpiryDate: &expiry},
	}
}

func TestIsOfficerRank(t *testing.T) {
	officers := []string{
		"Captain", "Master", "Chief Officer", "Second Officer", "Third Officer",
		"Chief Engineer", "Second Engineer", "Third Engineer", "Fourth Engineer",
		"2nd mate", "Radio Officer", "CHIEF ENGINEER",
	}
	for _, r := range officers {
		assert.True(t, IsOfficerRank(r), "rank %q", r)
	}

	ratings := []string{"Bosun", "Able Seaman", "Cook", "Oiler", "Deck Cadet", ""}
	for _, r := range ratings {
		assert.False(t, IsOfficerRank(r), "rank %q", r)
	}
}

func TestCheckSignOnEligibility_AllClear(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	res := CheckSignOnEligibility(fullDocSet(date(2027, 1, 1)), end, "Bosun", now)

	assert.Empty(t, res.Blockers)
	assert.False(t, res.HasRunwayAlert)
	assert.False(t, res.Blocked())
}

// Officers need a COC; ratings do not.
func TestCheckSignOnEligibility_OfficerCOCGating(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	// Everything valid except the COC, which is missing entirely.
	docs := []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: datePtr(2027, 1, 1)},
	}

	officer := CheckSignOnEligibility(docs, end, "Second Officer", now)
	assert.Equal(t, []string{TypeCOC}, officer.Blockers)

	rating := CheckSignOnEligibility(docs, end, "Bosun", now)
	assert.Empty(t, rating.Blockers)
}

// A medical certificate that was never uploaded blocks every rank.
func TestCheckSignOnEligibility_MissingMedicalBlocks(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	docs := []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2027, 1, 1)},
	}

	for _, rank := range []string{"Bosun", "Captain", "Cook"} {
		res := CheckSignOnEligibility(docs, end, rank, now)
		assert.Contains(t, res.Blockers, TypeMedical, "rank %q", rank)
		assert.True(t, res.Blocked())
	}
}

func TestCheckSignOnEligibility_BlockerStatuses(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	tests := []struct {
		name           string
		passportExpiry time.Time
		wantBlocked    bool
		wantRunway     bool
	}{
		{"expired passport", date(2024, 11, 1), true, false},
		{"expiring passport", date(2025, 1, 20), true, false},
		{"passport lapses mid-contract", date(2025, 3, 20), true, false},
		{"passport lapses just after contract", date(2025, 4, 15), false, true},
		{"comfortable passport", date(2027, 1, 1), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := []Record{
				{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: &tt.passportExpiry},
				{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2027, 1, 1)},
				{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: datePtr(2027, 1, 1)},
			}
			res := CheckSignOnEligibility(docs, end, "Bosun", now)

			if tt.wantBlocked {
				assert.Equal(t, []string{TypePassport}, res.Blockers)
			} else {
				assert.Empty(t, res.Blockers)
			}
			assert.Equal(t, tt.wantRunway, res.HasRunwayAlert)
		})
	}
}

// A runway alert on the COC is advisory for the blocker list but excluded
// from the runway signal itself.
func TestCheckSignOnEligibility_COCExcludedFromRunwaySignal(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	docs := []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		// COC lapses 10 days after the contract ends → runway_alert.
		{Type: TypeCOC, FilePath: "uploads/coc.pdf", ExpiryDate: datePtr(2025, 4, 11)},
	}

	res := CheckSignOnEligibility(docs, end, "Chief Engineer", now)
	assert.Empty(t, res.Blockers)
	assert.False(t, res.HasRunwayAlert)
}

func TestCheckSignOnEligibility_LegacySTCWSatisfiesCOC(t *testing.T) {
	now := date(2025, 1, 1)
	end := date(2025, 4, 1)

	docs := []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: datePtr(2027, 1, 1)},
		{Type: "stcw", FilePath: "uploads/stcw.pdf", ExpiryDate: datePtr(2027, 1, 1)},
	}

	res := CheckSignOnEligibility(docs, end, "Master", now)
	assert.Empty(t, res.Blockers)
}

func TestSummarize(t *testing.T) {
	now := date(2025, 1, 1)
	contractEnd := date(2025, 4, 1)

	docs := []Record{
		{Type: TypePassport, FilePath: "uploads/pp.pdf", ExpiryDate: datePtr(2024, 12, 1)}, // expired
		{Type: TypeCDC, FilePath: "uploads/cdc.pdf", ExpiryDate: datePtr(2025, 1, 15)},     // expiring
		{Type: TypeMedical, FilePath: "uploads/med.pdf", ExpiryDate: datePtr(2027, 1, 1)},  // valid
		// coc absent → missing; aoa falls back to the contract file.
	}

	s := Summarize(docs, "uploads/contract.pdf", &contractEnd, CrewOnBoard, now)

	assert.Equal(t, StatusExpired, s.OverallStatus)
	assert.Equal(t, 1, s.ExpiredCount)
	assert.Equal(t, 1, s.ExpiringCount)
	assert.Equal(t, 1, s.MissingCount)
	require.NotNil(t, s.NearestExpiryDays)
	assert.Equal(t, -31, *s.NearestExpiryDays)
	assert.Equal(t, TypePassport, *s.UrgentDocType)
}

func TestSummarize_EmptyOnShore(t *testing.T) {
	s := Summarize(nil, "", nil, CrewOnShore, date(2025, 1, 1))

	assert.Equal(t, StatusMissing, s.OverallStatus)
	assert.Equal(t, len(TrackedTypes), s.MissingCount)
	assert.Nil(t, s.NearestExpiryDays)
}
