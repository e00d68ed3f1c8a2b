package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A 90-day contract, 45 days in.
func TestContractProgress_Midway(t *testing.T) {
	start := date(2025, 1, 1)
	end := date(2025, 4, 1)
	now := date(2025, 2, 15)

	p := ContractProgress(&start, &end, ContractActive, CrewOnBoard, now)

	assert.Equal(t, StateActive, p.State)
	assert.Equal(t, 90, p.TotalDays)
	assert.Equal(t, 45, p.ElapsedDays)
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, 45, p.RemainingDays)
	assert.Equal(t, UrgencyNormal, p.Urgency)
}

func TestContractProgress_NoContractStates(t *testing.T) {
	start := date(2025, 1, 1)
	end := date(2025, 4, 1)
	now := date(2025, 2, 15)

	tests := []struct {
		name           string
		start, end     *time.Time
		contractStatus string
		crewStatus     string
	}{
		{"nil start", nil, &end, ContractActive, CrewOnBoard},
		{"nil end", &start, nil, ContractActive, CrewOnBoard},
		{"end equals start", &start, &start, ContractActive, CrewOnBoard},
		{"end before start", &end, &start, ContractActive, CrewOnBoard},
		{"completed contract", &start, &end, ContractCompleted, CrewOnBoard},
		{"terminated contract", &start, &end, ContractTerminated, CrewOnBoard},
		{"crew on shore", &start, &end, ContractActive, CrewOnShore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ContractProgress(tt.start, tt.end, tt.contractStatus, tt.crewStatus, now)
			assert.Equal(t, StateNoContract, p.State)
			assert.Equal(t, 0, p.Percent)
			assert.Equal(t, 0, p.ElapsedDays)
			assert.Equal(t, 0, p.RemainingDays)
			assert.Equal(t, 0, p.TotalDays)
		})
	}
}

func TestContractProgress_Boundaries(t *testing.T) {
	start := date(2025, 1, 1)
	end := date(2025, 4, 1)

	t.Run("before start is upcoming with zero elapsed", func(t *testing.T) {
		p := ContractProgress(&start, &end, ContractActive, CrewOnBoard, date(2024, 12, 20))
		assert.Equal(t, StateUpcoming, p.State)
		assert.Equal(t, 0, p.Percent)
		assert.Equal(t, 0, p.ElapsedDays)
		assert.Equal(t, 90, p.TotalDays)
		assert.Equal(t, 102, p.RemainingDays)
	})

	t.Run("after end is expired and fully elapsed", func(t *testing.T) {
		p := ContractProgress(&start, &end, ContractActive, CrewOnBoard, date(2025, 5, 10))
		assert.Equal(t, StateExpired, p.State)
		assert.Equal(t, 100, p.Percent)
		assert.Equal(t, 90, p.ElapsedDays)
		assert.Equal(t, 0, p.RemainingDays)
	})

	t.Run("first day", func(t *testing.T) {
		p := ContractProgress(&start, &end, ContractActive, CrewOnBoard, start)
		assert.Equal(t, StateActive, p.State)
		assert.Equal(t, 0, p.Percent)
		assert.Equal(t, 90, p.RemainingDays)
	})
}

// Percent stays inside [0,100] wherever the clock sits, and hits 100 only
// once the contract is over. Long contracts matter here: rounding alone
// would report 100 on the last day of anything 200 days or longer.
func TestContractProgress_PercentClamped(t *testing.T) {
	periods := []struct {
		name       string
		start, end time.Time
	}{
		{"85-day contract", date(2025, 3, 10), date(2025, 6, 2)},
		{"300-day contract", date(2025, 1, 1), date(2025, 10, 28)},
	}

	for _, period := range periods {
		t.Run(period.name, func(t *testing.T) {
			total := int(period.end.Sub(period.start).Hours() / 24)
			for offset := -10; offset <= total+10; offset++ {
				now := period.start.AddDate(0, 0, offset)
				p := ContractProgress(&period.start, &period.end, ContractActive, CrewOnBoard, now)

				assert.GreaterOrEqual(t, p.Percent, 0, "offset %d", offset)
				assert.LessOrEqual(t, p.Percent, 100, "offset %d", offset)
				if p.Percent == 100 {
					assert.False(t, now.Before(period.end), "reached 100%% before the end at offset %d", offset)
				}
			}
		})
	}
}

func TestUrgencyTier(t *testing.T) {
	tests := []struct {
		remaining int
		want      string
	}{
		{0, UrgencyCritical},
		{14, UrgencyCritical},
		{15, UrgencyWarning},
		{29, UrgencyWarning},
		{30, UrgencyNormal},
		{120, UrgencyNormal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UrgencyTier(tt.remaining), "remaining %d", tt.remaining)
	}
}

func TestResolveEndDate(t *testing.T) {
	start := date(2025, 1, 1)
	end := date(2025, 3, 15)

	t.Run("duration recomputes the end", func(t *testing.T) {
		got := ResolveEndDate(&start, &end, 90)
		assert.True(t, got.Equal(date(2025, 4, 1)))
	})

	t.Run("explicit end kept without duration", func(t *testing.T) {
		got := ResolveEndDate(&start, &end, 0)
		assert.True(t, got.Equal(end))
	})

	t.Run("nil through and through", func(t *testing.T) {
		assert.Nil(t, ResolveEndDate(nil, nil, 0))
	})
}
