package model

import (
	"fmt"
	"time"
)

// PeriodID identifies one of the fixed reporting windows.
type PeriodID int

const (
	PeriodCurrentWeek  PeriodID = 1
	PeriodCurrentMonth PeriodID = 2
	PeriodCurrentYear  PeriodID = 3
	PeriodTwelveMonths PeriodID = 4
	PeriodThreeYears   PeriodID = 5
	PeriodSince2019    PeriodID = 6
	PeriodTwoYears     PeriodID = 7
	PeriodThirtyDays   PeriodID = 8
)

// AllPeriods lists every known period in id order.
var AllPeriods = []PeriodID{
	PeriodCurrentWeek,
	PeriodCurrentMonth,
	PeriodCurrentYear,
	PeriodTwelveMonths,
	PeriodThreeYears,
	PeriodSince2019,
	PeriodTwoYears,
	PeriodThirtyDays,
}

// DefaultPeriodDescriptions are the report labels used when none are configured.
var DefaultPeriodDescriptions = map[PeriodID]string{
	PeriodCurrentWeek:  "In the current week",
	PeriodCurrentMonth: "In the current month",
	PeriodCurrentYear:  "In the current year",
	PeriodTwelveMonths: "In the last 12 months",
	PeriodThreeYears:   "In the last 3 years",
	PeriodSince2019:    "Since 2019",
	PeriodTwoYears:     "In the last 2 years",
	PeriodThirtyDays:   "In the last 30 days",
}

// UnknownPeriodDescription labels periods outside the enumeration.
const UnknownPeriodDescription = "Unknown"

// Valid reports whether p is one of the enumerated periods.
func (p PeriodID) Valid() bool {
	return p >= PeriodCurrentWeek && p <= PeriodThirtyDays
}

func (p PeriodID) String() string {
	switch p {
	case PeriodCurrentWeek:
		return "CurrentWeek"
	case PeriodCurrentMonth:
		return "CurrentMonth"
	case PeriodCurrentYear:
		return "CurrentYear"
	case PeriodTwelveMonths:
		return "TwelveMonths"
	case PeriodThreeYears:
		return "ThreeYears"
	case PeriodSince2019:
		return "Since2019"
	case PeriodTwoYears:
		return "TwoYears"
	case PeriodThirtyDays:
		return "ThirtyDays"
	default:
		return fmt.Sprintf("Period(%d)", int(p))
	}
}

// Window is an inclusive [Start, End] date range at day granularity.
type Window struct {
	Start time.Time
	End   time.Time
}

// AnchorDate is the day before Start; observations up to it are anchor candidates.
func (w Window) AnchorDate() time.Time {
	return w.Start.AddDate(0, 0, -1)
}

// Window computes the date range covered by p relative to ref.
func (p PeriodID) Window(ref time.Time) (Window, error) {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodCurrentWeek:
		offset := (int(ref.Weekday()) + 6) % 7 // Monday = 0
		start := ref.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case PeriodCurrentMonth:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Window{Start: start, End: start.AddDate(0, 1, -1)}, nil
	case PeriodCurrentYear:
		return Window{
			Start: time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(ref.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	case PeriodTwelveMonths:
		return Window{Start: ref.AddDate(0, 0, -365), End: ref}, nil
	case PeriodThreeYears:
		return Window{Start: ref.AddDate(0, 0, -3*365), End: ref}, nil
	case PeriodSince2019:
		return Window{Start: time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC), End: ref}, nil
	case PeriodTwoYears:
		return Window{Start: ref.AddDate(0, 0, -2*365), End: ref}, nil
	case PeriodThirtyDays:
		return Window{Start: ref.AddDate(0, 0, -30), End: ref}, nil
	default:
		return Window{}, fmt.Errorf("unknown period %d", int(p))
	}
}
