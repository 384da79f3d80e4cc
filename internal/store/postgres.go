package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

const pgFundValuesQuery = `
SELECT h.instrument_id, i.name, h.position_date, h.quota_value::text
FROM fund_value_history h
JOIN instrument i ON i.instrument_id = h.instrument_id
WHERE h.instrument_id = $1
  AND h.position_date >= COALESCE(
        (SELECT MAX(position_date) FROM fund_value_history
          WHERE instrument_id = $1 AND position_date < $2::date),
        $2::date)
  AND h.position_date <= $3::date
ORDER BY h.position_date`

// PostgresStore reads quota history through a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects and pings the database.
func NewPostgresStore(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("postgres store connected", zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Connect creates a single connection pool.
func Connect(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) FundValues(ctx context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error) {
	s.logger.Debug("loading fund values",
		zap.Int64("instrument_id", instrumentID),
		zap.Int("period_id", int(period)),
		zap.Time("anchor_date", window.AnchorDate()),
		zap.Time("end", window.End),
	)

	rows, err := s.pool.Query(ctx, pgFundValuesQuery, instrumentID, window.AnchorDate(), window.End)
	if err != nil {
		return nil, fmt.Errorf("query fund values: %w", err)
	}
	defer rows.Close()

	var out []model.QuotaObservation
	for rows.Next() {
		var (
			id    int64
			name  string
			date  time.Time
			quota string
		)
		if err := rows.Scan(&id, &name, &date, &quota); err != nil {
			return nil, fmt.Errorf("scan fund value: %w", err)
		}
		obs, err := newObservation(id, name, period, window, date, quota)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fund values: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
