package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// SQLiteStore serves quota history from a local SQLite file. Dates and quota
// values are stored as text so values round-trip exactly.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS instrument (
			instrument_id INTEGER PRIMARY KEY,
			name          TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fund_value_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument_id INTEGER NOT NULL,
			position_date TEXT NOT NULL,
			quota_value   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fvh_instrument_date ON fund_value_history(instrument_id, position_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// UpsertInstrument sets the display name of an instrument.
func (s *SQLiteStore) UpsertInstrument(ctx context.Context, instrumentID int64, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instrument (instrument_id, name) VALUES (?, ?)
		 ON CONFLICT(instrument_id) DO UPDATE SET name = excluded.name`,
		instrumentID, name)
	return err
}

// InsertFundValue appends one quota observation.
func (s *SQLiteStore) InsertFundValue(ctx context.Context, instrumentID int64, positionDate time.Time, quota decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fund_value_history (instrument_id, position_date, quota_value) VALUES (?, ?, ?)`,
		instrumentID, positionDate.Format(model.DateLayout), quota.String())
	return err
}

func (s *SQLiteStore) FundValues(ctx context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error) {
	anchor := window.AnchorDate().Format(model.DateLayout)
	end := window.End.Format(model.DateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT h.instrument_id, i.name, h.position_date, h.quota_value
		FROM fund_value_history h
		JOIN instrument i ON i.instrument_id = h.instrument_id
		WHERE h.instrument_id = ?
		  AND h.position_date >= COALESCE(
		        (SELECT MAX(position_date) FROM fund_value_history
		          WHERE instrument_id = ? AND position_date < ?),
		        ?)
		  AND h.position_date <= ?
		ORDER BY h.position_date, h.id`,
		instrumentID, instrumentID, anchor, anchor, end)
	if err != nil {
		return nil, fmt.Errorf("query fund values: %w", err)
	}
	defer rows.Close()

	var out []model.QuotaObservation
	for rows.Next() {
		var (
			id    int64
			name  string
			date  string
			quota string
		)
		if err := rows.Scan(&id, &name, &date, &quota); err != nil {
			return nil, fmt.Errorf("scan fund value: %w", err)
		}
		positionDate, err := time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse position date %q: %w", date, err)
		}
		obs, err := newObservation(id, name, period, window, positionDate, quota)
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

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}
