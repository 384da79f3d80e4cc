package model

import "github.com/shopspring/decimal"

// FeedRecord is one dated return point reported by the external feed.
// Dates are kept as received; they are normalized only when matching.
type FeedRecord struct {
	InstrumentID            int64           `json:"instrument_id"`
	PeriodID                PeriodID        `json:"period_id"`
	PeriodDescription       string          `json:"period_description"`
	StartDate               string          `json:"start_date"`
	EndDate                 string          `json:"end_date"`
	OverBenchmarkPct        decimal.Decimal `json:"over_benchmark_pct"`
	BenchmarkAccumulatedPct decimal.Decimal `json:"benchmark_accumulated_pct"`
	AccumulatedPct          decimal.Decimal `json:"accumulated_pct"`
	NominalAccumulated      decimal.Decimal `json:"nominal_accumulated"`
}

// Key returns the series the record belongs to.
func (f FeedRecord) Key() GroupKey {
	return GroupKey{InstrumentID: f.InstrumentID, PeriodID: f.PeriodID}
}
