// Package store loads fund quota history from the bank database.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

// QuotaStore returns quota observations windowed for one period: every
// observation from the last one strictly before the anchor date (or the
// anchor date itself when there is none) through the window end, ordered by
// position date.
type QuotaStore interface {
	FundValues(ctx context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error)
	Close() error
}

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (QuotaStore, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newObservation(instrumentID int64, name string, period model.PeriodID, window model.Window, positionDate time.Time, quota string) (model.QuotaObservation, error) {
	value, err := decimal.NewFromString(quota)
	if err != nil {
		return model.QuotaObservation{}, fmt.Errorf("parse quota %q on %s: %w", quota, positionDate.Format(model.DateLayout), err)
	}
	return model.QuotaObservation{
		InstrumentID:   instrumentID,
		InstrumentName: name,
		PeriodID:       period,
		PositionDate:   positionDate,
		QuotaValue:     value,
		PeriodStart:    window.Start,
		PeriodEnd:      window.End,
	}, nil
}
