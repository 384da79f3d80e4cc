package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// DefaultTolerance is the maximum accepted gap, in percentage points, between
// the feed and bank accumulated percentages.
var DefaultTolerance = decimal.RequireFromString("0.10")

// Settings holds the immutable parameters of a reconciliation run.
type Settings struct {
	tolerance    decimal.Decimal
	descriptions map[model.PeriodID]string
}

// NewSettings copies descriptions so later changes by the caller do not leak
// into the run. A nil map falls back to the default descriptions.
func NewSettings(tolerance decimal.Decimal, descriptions map[model.PeriodID]string) Settings {
	if descriptions == nil {
		descriptions = model.DefaultPeriodDescriptions
	}
	copied := make(map[model.PeriodID]string, len(descriptions))
	for k, v := range descriptions {
		copied[k] = v
	}
	return Settings{tolerance: tolerance, descriptions: copied}
}

// DefaultSettings uses the default tolerance and period descriptions.
func DefaultSettings() Settings {
	return NewSettings(DefaultTolerance, nil)
}

// Tolerance returns the tolerance in percentage points.
func (s Settings) Tolerance() decimal.Decimal { return s.tolerance }

// Description returns the report label of a period.
func (s Settings) Description(p model.PeriodID) string {
	if d, ok := s.descriptions[p]; ok {
		return d
	}
	return model.UnknownPeriodDescription
}
