package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnRecord is the derived return of one in-period quota observation.
type ReturnRecord struct {
	InstrumentID          int64
	InstrumentName        string
	PeriodID              PeriodID
	PeriodStart           time.Time
	PeriodEnd             time.Time
	PositionDate          time.Time
	QuotaValue            decimal.Decimal
	Return                decimal.Decimal // ratio against the previous quota (or anchor)
	AccumulatedReturn     decimal.Decimal // compounded ratio since period start
	AccumulatedPercentage decimal.Decimal // AccumulatedReturn × 100
}

// Key returns the series the record belongs to.
func (r ReturnRecord) Key() GroupKey {
	return GroupKey{InstrumentID: r.InstrumentID, PeriodID: r.PeriodID}
}
