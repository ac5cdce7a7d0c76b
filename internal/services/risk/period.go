package risk

import (
	"fmt"
	"strings"
)

// Period is the time unit a single return covers.
type Period string

const (
	PeriodDaily   Period = "1d"
	PeriodWeekly  Period = "1wk"
	PeriodMonthly Period = "1mo"
)

// Valid reports whether p is a supported period.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	default:
		return false
	}
}

// AnnualisationFactor returns the conventional number of periods per year:
// 252 trading days, 52 weeks, 12 months.
func (p Period) AnnualisationFactor() int {
	switch p {
	case PeriodWeekly:
		return 52
	case PeriodMonthly:
		return 12
	default:
		return 252
	}
}

// ParsePeriod accepts the interval spellings used by price feeds ("1d", "1wk", "1mo")
// plus a few long forms. An empty string means daily.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "1d", "d", "day", "daily":
		return PeriodDaily, nil
	case "1wk", "1w", "w", "week", "weekly":
		return PeriodWeekly, nil
	case "1mo", "1m", "mo", "month", "monthly":
		return PeriodMonthly, nil
	default:
		return "", fmt.Errorf("%w: unsupported period %q", ErrInvalidParameter, s)
	}
}
