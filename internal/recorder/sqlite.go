package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               TEXT PRIMARY KEY,
			started_at       INTEGER NOT NULL,
			finished_at      INTEGER NOT NULL,
			outcome          TEXT NOT NULL,
			feed_records     INTEGER,
			bank_records     INTEGER,
			skipped_records  INTEGER,
			missing_anchors  INTEGER,
			total            INTEGER,
			ok               INTEGER,
			errors           INTEGER,
			exact_matches    INTEGER,
			approx_matches   INTEGER,
			bank_only        INTEGER,
			feed_only        INTEGER,
			feed_path        TEXT,
			bank_path        TEXT,
			report_path      TEXT,
			error            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS mismatches (
			id                 INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id             TEXT NOT NULL,
			instrument_id      INTEGER NOT NULL,
			period_id          INTEGER NOT NULL,
			bank_date          TEXT,
			feed_date          TEXT,
			feed_pct           TEXT,
			bank_pct           TEXT,
			difference         TEXT,
			match_kind         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mismatches_run ON mismatches(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(id, started_at, finished_at, outcome,
		 feed_records, bank_records, skipped_records, missing_anchors,
		 total, ok, errors,
		 exact_matches, approx_matches, bank_only, feed_only,
		 feed_path, bank_path, report_path, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Outcome,
		run.FeedRecords, run.BankRecords, run.SkippedRecords, run.MissingAnchors,
		run.Total, run.OK, run.Errors,
		run.ByKind[model.MatchExactDate], run.ByKind[model.MatchApproximate],
		run.ByKind[model.MatchBankOnly], run.ByKind[model.MatchFeedOnly],
		run.FeedPath, run.BankPath, run.ReportPath, run.Error,
	)
	return err
}

// RecordMismatches stores the ERROR rows of a run.
func (r *SQLiteRecorder) RecordMismatches(runID string, records []model.ReconciliationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO mismatches
		(run_id, instrument_id, period_id, bank_date, feed_date, feed_pct, bank_pct, difference, match_kind)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.Status != model.StatusError {
			continue
		}
		if _, err := stmt.Exec(runID, rec.InstrumentID, int(rec.PeriodID), rec.BankDate, rec.FeedDate,
			rec.FeedPercentage().String(), rec.BankPercentage().String(), rec.Difference.String(), string(rec.Kind),
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LastRun returns the most recently started run, or nil when none exists.
func (r *SQLiteRecorder) LastRun() (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run                               RunRecord
		started, finished                 int64
		exact, approx, bankOnly, feedOnly int
	)
	err := r.db.QueryRow(`SELECT id, started_at, finished_at, outcome,
		feed_records, bank_records, skipped_records, missing_anchors,
		total, ok, errors, exact_matches, approx_matches, bank_only, feed_only,
		feed_path, bank_path, report_path, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(
		&run.ID, &started, &finished, &run.Outcome,
		&run.FeedRecords, &run.BankRecords, &run.SkippedRecords, &run.MissingAnchors,
		&run.Total, &run.OK, &run.Errors, &exact, &approx, &bankOnly, &feedOnly,
		&run.FeedPath, &run.BankPath, &run.ReportPath, &run.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}
	run.StartedAt = time.Unix(started, 0)
	run.FinishedAt = time.Unix(finished, 0)
	run.ByKind = map[model.MatchKind]int{
		model.MatchExactDate:   exact,
		model.MatchApproximate: approx,
		model.MatchBankOnly:    bankOnly,
		model.MatchFeedOnly:    feedOnly,
	}
	return &run, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}
