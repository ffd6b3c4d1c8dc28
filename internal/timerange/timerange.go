// Package timerange maps symbolic dashboard range tokens to concrete
// time windows and rollup granularities.
package timerange

import "time"

// Token represents the available time range options
type Token string

const (
	TokenLast24Hours Token = "24h"
	TokenLast7Days   Token = "7d"
	TokenLast30Days  Token = "30d"
	TokenLast90Days  Token = "90d"
	TokenLastYear    Token = "1y"
	TokenAllTime     Token = "all"
)

// Granularity identifies which rollup table can serve a range.
// GranularityNone means the range has no rollup coverage and stats
// must be computed from raw events.
type Granularity int

const (
	GranularityNone Granularity = iota
	GranularityWeekly
	GranularityMonthly
	GranularityYearly
)

func (g Granularity) String() string {
	switch g {
	case GranularityWeekly:
		return "weekly"
	case GranularityMonthly:
		return "monthly"
	case GranularityYearly:
		return "yearly"
	default:
		return "none"
	}
}

// Range is a resolved half-open window [From, To) plus the rollup
// granularity appropriate for it.
type Range struct {
	Token       Token
	From        time.Time
	To          time.Time
	Granularity Granularity
}

// Resolve maps a range token to a concrete [start, now) window.
// Unknown tokens fall back to all-time rather than erroring; the
// dashboards this feeds prefer availability over strict validation.
func Resolve(token string, now time.Time) Range {
	switch Token(token) {
	case TokenLast24Hours:
		return Range{Token: TokenLast24Hours, From: now.Add(-24 * time.Hour), To: now, Granularity: GranularityNone}
	case TokenLast7Days:
		return Range{Token: TokenLast7Days, From: now.AddDate(0, 0, -7), To: now, Granularity: GranularityWeekly}
	case TokenLast30Days:
		return Range{Token: TokenLast30Days, From: now.AddDate(0, 0, -30), To: now, Granularity: GranularityMonthly}
	case TokenLast90Days:
		return Range{Token: TokenLast90Days, From: now.AddDate(0, 0, -90), To: now, Granularity: GranularityMonthly}
	case TokenLastYear:
		return Range{Token: TokenLastYear, From: now.AddDate(0, 0, -365), To: now, Granularity: GranularityYearly}
	default:
		return Range{Token: TokenAllTime, From: time.Unix(0, 0).UTC(), To: now, Granularity: GranularityNone}
	}
}

// ResolveNow resolves a token against the current clock.
func ResolveNow(token string) Range {
	return Resolve(token, time.Now().UTC())
}

// Duration returns the window length.
func (r Range) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// Days returns the window length in whole days, clamped to at least 1
// so per-day rates never divide by zero.
func (r Range) Days() float64 {
	days := r.Duration().Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// Previous returns the equal-length window immediately preceding this
// one, used as the baseline for period-over-period growth.
func (r Range) Previous() Range {
	d := r.Duration()
	return Range{
		Token:       r.Token,
		From:        r.From.Add(-d),
		To:          r.From,
		Granularity: r.Granularity,
	}
}
