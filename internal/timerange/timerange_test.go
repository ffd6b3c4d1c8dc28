package timerange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"soundpulse/internal/timerange"
)

func TestResolveTokens(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		token       string
		wantFrom    time.Time
		granularity timerange.Granularity
	}{
		{"24h", now.Add(-24 * time.Hour), timerange.GranularityNone},
		{"7d", now.AddDate(0, 0, -7), timerange.GranularityWeekly},
		{"30d", now.AddDate(0, 0, -30), timerange.GranularityMonthly},
		{"90d", now.AddDate(0, 0, -90), timerange.GranularityMonthly},
		{"1y", now.AddDate(0, 0, -365), timerange.GranularityYearly},
		{"all", time.Unix(0, 0).UTC(), timerange.GranularityNone},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rng := timerange.Resolve(tt.token, now)
			assert.Equal(t, tt.wantFrom, rng.From)
			assert.Equal(t, now, rng.To)
			assert.Equal(t, tt.granularity, rng.Granularity)
		})
	}
}

func TestResolveUnknownTokenFallsBackToAllTime(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	for _, token := range []string{"", "fortnight", "7D", "yesterday"} {
		rng := timerange.Resolve(token, now)
		assert.Equal(t, timerange.TokenAllTime, rng.Token, "token %q", token)
		assert.Equal(t, time.Unix(0, 0).UTC(), rng.From)
		assert.Equal(t, timerange.GranularityNone, rng.Granularity)
	}
}

func TestPreviousWindowIsEqualLengthAndAdjacent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rng := timerange.Resolve("7d", now)

	prev := rng.Previous()
	assert.Equal(t, rng.From, prev.To)
	assert.Equal(t, rng.Duration(), prev.Duration())
	assert.Equal(t, now.AddDate(0, 0, -14), prev.From)
}

func TestDaysClampsToOne(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	rng := timerange.Resolve("24h", now)
	assert.Equal(t, 1.0, rng.Days())

	week := timerange.Resolve("7d", now)
	assert.InDelta(t, 7.0, week.Days(), 0.01)
}
