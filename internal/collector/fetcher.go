package collector

import (
	"context"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// FeedFetcher supplies the external feed's return series for one instrument
// and period.
type FeedFetcher interface {
	FetchReturns(ctx context.Context, instrumentID int64, period model.PeriodID) ([]model.FeedRecord, error)
	Name() string
}

// QuotaSource supplies quota observations already windowed to
// [window.Start - 1 day, window.End], anchor candidate included.
type QuotaSource interface {
	FundValues(ctx context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error)
}
