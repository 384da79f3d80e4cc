package recorder

import (
	"time"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// RunRecord holds the outcome of one validation run.
type RunRecord struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Outcome        string // "completed", "feed_only", "no_data" or "failed"
	FeedRecords    int
	BankRecords    int
	SkippedRecords int
	MissingAnchors int
	Total          int
	OK             int
	Errors         int
	ByKind         map[model.MatchKind]int
	FeedPath       string
	BankPath       string
	ReportPath     string
	Error          string
}

// Recorder persists run history for analysis.
type Recorder interface {
	RecordRun(run *RunRecord) error
	RecordMismatches(runID string, records []model.ReconciliationRecord) error
	LastRun() (*RunRecord, error)
	Close() error
}
