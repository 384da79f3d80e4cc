package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/otaviosalomao/FundValidation/internal/collector"
	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
	"github.com/otaviosalomao/FundValidation/internal/reconcile"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
	"github.com/otaviosalomao/FundValidation/internal/tabular"
)

var refDay = time.Date(2025, 8, 19, 10, 0, 0, 0, time.UTC)

type memRecorder struct {
	mu         sync.Mutex
	runs       []*recorder.RunRecord
	mismatches map[string]int
}

func (m *memRecorder) RecordRun(run *recorder.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) RecordMismatches(runID string, records []model.ReconciliationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mismatches == nil {
		m.mismatches = map[string]int{}
	}
	for _, r := range records {
		if r.Status == model.StatusError {
			m.mismatches[runID]++
		}
	}
	return nil
}

func (m *memRecorder) LastRun() (*recorder.RunRecord, error) { return nil, nil }
func (m *memRecorder) Close() error                          { return nil }

func dayOf(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func quota(id int64, date, value string) model.QuotaObservation {
	return model.QuotaObservation{
		InstrumentID:   id,
		InstrumentName: "Fund",
		PeriodID:       model.PeriodCurrentMonth,
		PositionDate:   dayOf(date),
		QuotaValue:     decimal.RequireFromString(value),
		PeriodStart:    dayOf("2025-08-01"),
		PeriodEnd:      dayOf("2025-08-31"),
	}
}

func feedPoint(id int64, end, pct string) model.FeedRecord {
	return model.FeedRecord{
		InstrumentID:      id,
		PeriodID:          model.PeriodCurrentMonth,
		PeriodDescription: "In the current month",
		StartDate:         "2025-08-01T00:00:00Z",
		EndDate:           end,
		AccumulatedPct:    decimal.RequireFromString(pct),
	}
}

type fixture struct {
	pipeline *Pipeline
	fetcher  *collector.MockFetcher
	quotas   *collector.MockQuotaSource
	recorder *memRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)

	k314 := model.GroupKey{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}
	k315 := model.GroupKey{InstrumentID: 315, PeriodID: model.PeriodCurrentMonth}
	fetcher := &collector.MockFetcher{Records: map[model.GroupKey][]model.FeedRecord{
		k314: {
			feedPoint(314, "2025-08-01T00:00:00", "10"),
			feedPoint(314, "2025-08-04T00:00:00-03:00", "20.95"),
		},
		k315: {feedPoint(315, "2025-08-01T00:00:00", "1.5")},
	}}
	quotas := &collector.MockQuotaSource{Observations: map[model.GroupKey][]model.QuotaObservation{
		k314: {
			quota(314, "2025-07-31", "100"),
			quota(314, "2025-08-01", "110"),
			quota(314, "2025-08-04", "121"),
		},
	}}
	rec := &memRecorder{}

	return &fixture{
		pipeline: &Pipeline{
			Collector:   collector.NewCollector(fetcher, quotas, 2, logger),
			Settings:    reconcile.DefaultSettings(),
			Output:      config.OutputConfig{FeedCSV: filepath.Join(dir, "feed.csv"), BankCSV: filepath.Join(dir, "bank.csv"), ReportCSV: filepath.Join(dir, "report.csv")},
			Instruments: []int64{314, 315},
			Periods:     []model.PeriodID{model.PeriodCurrentMonth},
			Recorder:    rec,
			Logger:      logger,
			Now:         func() time.Time { return refDay },
		},
		fetcher:  fetcher,
		quotas:   quotas,
		recorder: rec,
	}
}

func TestRun_Completed(t *testing.T) {
	f := newFixture(t)

	res := f.pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, res.FeedRecords)
	assert.Equal(t, 2, res.BankRecords)
	assert.Zero(t, res.MissingAnchors)

	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 2, res.Summary.OK)
	assert.Equal(t, 1, res.Summary.Errors)
	assert.Equal(t, 2, res.Summary.ByKind[model.MatchExactDate])
	assert.Equal(t, 1, res.Summary.ByKind[model.MatchFeedOnly])

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, res.ID, f.recorder.runs[0].ID)
	assert.Equal(t, OutcomeCompleted, f.recorder.runs[0].Outcome)
	assert.Equal(t, 1, f.recorder.mismatches[res.ID])

	// Every feed instrument is loaded for every feed period.
	assert.Equal(t, 2, f.quotas.Calls())

	data, err := os.ReadFile(f.pipeline.Output.ReportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "314,2,In the current month,2025-08-04,2025-08-04,121,0.1,0.21,20.95,21,0.05,OK,ExactDateMatch")
	assert.Contains(t, string(data), "315,2,In the current month,,2025-08-01,,,,1.5,0,1.5,ERROR,FeedOnly")
}

func TestRun_BankSeriesMissingFromFeedIsBankOnly(t *testing.T) {
	f := newFixture(t)
	week := feedPoint(315, "2025-08-18T00:00:00", "0.4")
	week.PeriodID = model.PeriodCurrentWeek
	f.fetcher.Records = map[model.GroupKey][]model.FeedRecord{
		{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}: {feedPoint(314, "2025-08-04T00:00:00", "20.95")},
		{InstrumentID: 315, PeriodID: model.PeriodCurrentWeek}:  {week},
	}
	f.quotas.Observations[model.GroupKey{InstrumentID: 315, PeriodID: model.PeriodCurrentMonth}] = []model.QuotaObservation{
		quota(315, "2025-07-31", "100"),
		quota(315, "2025-08-01", "102"),
	}
	f.pipeline.Periods = []model.PeriodID{model.PeriodCurrentWeek, model.PeriodCurrentMonth}

	res := f.pipeline.Run(context.Background(), RunOptions{})
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 4, f.quotas.Calls())

	assert.Equal(t, 1, res.Summary.ByKind[model.MatchBankOnly])
	assert.Equal(t, 1, res.Summary.ByKind[model.MatchFeedOnly])
	assert.Equal(t, 1, res.Summary.ByKind[model.MatchExactDate])
	assert.Equal(t, 1, res.Summary.ByKind[model.MatchApproximate])

	data, err := os.ReadFile(f.pipeline.Output.ReportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "315,2,In the current month,2025-08-01,,102,0.02,0.02,0,2,2,ERROR,BankOnly")
}

func TestRun_FeedOnly(t *testing.T) {
	f := newFixture(t)

	res := f.pipeline.Run(context.Background(), RunOptions{FeedOnly: true})
	assert.Equal(t, OutcomeFeedOnly, res.Outcome)
	assert.Equal(t, 3, res.FeedRecords)
	assert.Zero(t, f.quotas.Calls())

	_, err := os.Stat(f.pipeline.Output.FeedCSV)
	assert.NoError(t, err)
	_, err = os.Stat(f.pipeline.Output.ReportCSV)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_EmptyBankIsNoData(t *testing.T) {
	f := newFixture(t)
	f.quotas.Observations = nil

	res := f.pipeline.Run(context.Background(), RunOptions{})
	assert.NoError(t, res.Err)
	assert.Equal(t, OutcomeNoData, res.Outcome)
	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, OutcomeNoData, f.recorder.runs[0].Outcome)
}

func TestRun_EmptyFeedIsNoData(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Records = nil

	res := f.pipeline.Run(context.Background(), RunOptions{})
	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.Zero(t, f.quotas.Calls())
}

func TestRun_WriteFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	f.pipeline.Output.FeedCSV = filepath.Join(blocker, "feed.csv")

	res := f.pipeline.Run(context.Background(), RunOptions{})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
	require.Len(t, f.recorder.runs, 1)
	assert.NotEmpty(t, f.recorder.runs[0].Error)
}

func TestCompare_ExistingSnapshots(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline

	_, err := tabular.WriteFeed(p.Output.FeedCSV, []model.FeedRecord{feedPoint(314, "2025-08-05", "21.5")})
	require.NoError(t, err)
	_, err = tabular.WriteBank(p.Output.BankCSV, []model.ReturnRecord{{
		InstrumentID: 314, PeriodID: model.PeriodCurrentMonth, PositionDate: dayOf("2025-08-04"),
		QuotaValue: decimal.NewFromInt(121), Return: decimal.RequireFromString("0.1"),
		AccumulatedReturn: decimal.RequireFromString("0.21"), AccumulatedPercentage: decimal.NewFromInt(21),
	}}, p.Settings.Description)
	require.NoError(t, err)

	records, err := p.Compare()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.MatchApproximate, records[0].Kind)
	assert.Equal(t, model.StatusError, records[0].Status)
	assert.True(t, records[0].Difference.Equal(decimal.RequireFromString("0.5")))
}

func TestCompare_LogsSummaryWithTolerance(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	p := f.pipeline
	p.Logger = zap.New(core)
	p.Settings = reconcile.NewSettings(decimal.RequireFromString("0.25"), nil)

	_, err := tabular.WriteFeed(p.Output.FeedCSV, []model.FeedRecord{feedPoint(314, "2025-08-04", "21")})
	require.NoError(t, err)
	_, err = tabular.WriteBank(p.Output.BankCSV, []model.ReturnRecord{{
		InstrumentID: 314, PeriodID: model.PeriodCurrentMonth, PositionDate: dayOf("2025-08-04"),
		QuotaValue: decimal.NewFromInt(121), AccumulatedPercentage: decimal.NewFromInt(21),
	}}, p.Settings.Description)
	require.NoError(t, err)

	_, err = p.Compare()
	require.NoError(t, err)

	entries := logs.FilterMessage("reconciliation finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "0.25", fields["tolerance"])
	assert.Equal(t, int64(1), fields["total"])
}

func TestCompare_EmptySnapshot(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline

	_, err := tabular.WriteFeed(p.Output.FeedCSV, []model.FeedRecord{feedPoint(314, "2025-08-05", "21.5")})
	require.NoError(t, err)
	_, err = tabular.WriteBank(p.Output.BankCSV, nil, p.Settings.Description)
	require.NoError(t, err)

	_, err = p.Compare()
	assert.ErrorIs(t, err, reconcile.ErrNoData)
}
