package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical day format used in snapshots and cache keys.
const DateLayout = "2006-01-02"

// QuotaObservation is one quota value of a fund on a position date, loaded for
// a given period window.
type QuotaObservation struct {
	InstrumentID   int64           `json:"instrument_id"`
	InstrumentName string          `json:"instrument_name,omitempty"`
	PeriodID       PeriodID        `json:"period_id"`
	PositionDate   time.Time       `json:"position_date"`
	QuotaValue     decimal.Decimal `json:"quota_value"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
}

// GroupKey identifies an (instrument, period) series.
type GroupKey struct {
	InstrumentID int64
	PeriodID     PeriodID
}

// Key returns the series the observation belongs to.
func (o QuotaObservation) Key() GroupKey {
	return GroupKey{InstrumentID: o.InstrumentID, PeriodID: o.PeriodID}
}

// Less orders group keys by instrument, then period.
func (k GroupKey) Less(other GroupKey) bool {
	if k.InstrumentID != other.InstrumentID {
		return k.InstrumentID < other.InstrumentID
	}
	return k.PeriodID < other.PeriodID
}
