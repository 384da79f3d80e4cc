// Package pipeline runs a validation end to end: feed collection, bank
// return computation, snapshot export and reconciliation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/calculator"
	"github.com/otaviosalomao/FundValidation/internal/collector"
	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
	"github.com/otaviosalomao/FundValidation/internal/reconcile"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
	"github.com/otaviosalomao/FundValidation/internal/tabular"
)

// Outcome values of a run.
const (
	OutcomeCompleted = "completed"
	OutcomeFeedOnly  = "feed_only"
	OutcomeNoData    = "no_data"
	OutcomeFailed    = "failed"
)

// Pipeline wires the collaborators of a validation run.
type Pipeline struct {
	Collector   *collector.Collector
	Settings    reconcile.Settings
	Output      config.OutputConfig
	Instruments []int64
	Periods     []model.PeriodID
	Recorder    recorder.Recorder
	Logger      *zap.Logger
	Now         func() time.Time
}

// RunOptions selects how much of the pipeline runs.
type RunOptions struct {
	// FeedOnly stops after the feed snapshot is written.
	FeedOnly bool
}

// RunResult describes a finished run.
type RunResult struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	Outcome        string
	FeedRecords    int
	BankRecords    int
	SkippedRecords int
	MissingAnchors int
	Summary        reconcile.Summary
	Output         config.OutputConfig
	Err            error
}

// Record converts the result into its persisted form.
func (r *RunResult) Record() *recorder.RunRecord {
	rec := &recorder.RunRecord{
		ID:             r.ID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Outcome:        r.Outcome,
		FeedRecords:    r.FeedRecords,
		BankRecords:    r.BankRecords,
		SkippedRecords: r.SkippedRecords,
		MissingAnchors: r.MissingAnchors,
		Total:          r.Summary.Total,
		OK:             r.Summary.OK,
		Errors:         r.Summary.Errors,
		ByKind:         r.Summary.ByKind,
		FeedPath:       r.Output.FeedCSV,
		BankPath:       r.Output.BankCSV,
		ReportPath:     r.Output.ReportCSV,
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return rec
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// CollectFeed fetches the configured instruments and periods from the feed
// and writes the feed snapshot.
func (p *Pipeline) CollectFeed(ctx context.Context) ([]model.FeedRecord, error) {
	jobs := collector.Jobs(p.Instruments, p.Periods)
	p.Logger.Info("collecting feed", zap.Int("series", len(jobs)))

	records, err := p.Collector.CollectFeed(ctx, jobs)
	if err != nil {
		return nil, err
	}
	sum, err := tabular.WriteFeed(p.Output.FeedCSV, records)
	if err != nil {
		return nil, fmt.Errorf("write feed snapshot: %w", err)
	}
	p.Logger.Info("feed snapshot written",
		zap.String("path", p.Output.FeedCSV),
		zap.Int("records", sum.Records),
		zap.Int("instruments", sum.Instruments),
		zap.Int("periods", sum.Periods),
	)
	return records, nil
}

// CollectBank loads quotas for the given series, computes their returns and
// writes the bank snapshot.
func (p *Pipeline) CollectBank(ctx context.Context, keys []model.GroupKey, ref time.Time) (calculator.SeriesResult, error) {
	p.Logger.Info("collecting bank quotas", zap.Int("series", len(keys)), zap.Time("reference", ref))

	obs, err := p.Collector.CollectQuotas(ctx, keys, ref)
	if err != nil {
		return calculator.SeriesResult{}, err
	}
	res := calculator.BuildSeries(obs)

	for _, k := range res.MissingAnchors {
		p.Logger.Warn("no quota before period start, first return set to zero",
			zap.Int64("instrument_id", k.InstrumentID),
			zap.Int("period_id", int(k.PeriodID)),
		)
	}
	for _, k := range res.EmptyGroups {
		p.Logger.Warn("no quota inside period",
			zap.Int64("instrument_id", k.InstrumentID),
			zap.Int("period_id", int(k.PeriodID)),
		)
	}
	for _, de := range res.Skipped {
		p.Logger.Error("return skipped", zap.Error(de))
	}

	sum, err := tabular.WriteBank(p.Output.BankCSV, res.Records, p.Settings.Description)
	if err != nil {
		return res, fmt.Errorf("write bank snapshot: %w", err)
	}
	p.Logger.Info("bank snapshot written",
		zap.String("path", p.Output.BankCSV),
		zap.Int("records", sum.Records),
		zap.Int("instruments", sum.Instruments),
		zap.Int("periods", sum.Periods),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// Compare reconciles the bank and feed snapshots on disk and writes the
// report. It returns reconcile.ErrNoData when either snapshot is empty.
func (p *Pipeline) Compare() ([]model.ReconciliationRecord, error) {
	bank, err := tabular.ReadBank(p.Output.BankCSV, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("read bank snapshot: %w", err)
	}
	feed, err := tabular.ReadFeed(p.Output.FeedCSV, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("read feed snapshot: %w", err)
	}

	records, err := reconcile.Reconcile(bank, feed, p.Settings)
	if err != nil {
		return nil, err
	}
	if _, err := tabular.WriteReport(p.Output.ReportCSV, records); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	p.logSummary(reconcile.Summarize(records))
	return records, nil
}

func (p *Pipeline) logSummary(s reconcile.Summary) {
	fields := []zap.Field{
		zap.String("report", p.Output.ReportCSV),
		zap.String("tolerance", p.Settings.Tolerance().String()),
		zap.Int("total", s.Total),
		zap.Int("ok", s.OK),
		zap.Int("errors", s.Errors),
		zap.String("success_rate", fmt.Sprintf("%.1f%%", s.SuccessRate())),
	}
	for _, k := range model.MatchKinds {
		fields = append(fields, zap.Int(string(k), s.ByKind[k]))
	}
	p.Logger.Info("reconciliation finished", fields...)
}

// Run executes the whole pipeline and records it. A run never returns an
// error; failures are carried in the result.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) *RunResult {
	res := &RunResult{ID: uuid.NewString(), StartedAt: p.now(), Output: p.Output}
	log := p.Logger.With(zap.String("run_id", res.ID))
	log.Info("run started", zap.Bool("feed_only", opts.FeedOnly))

	p.run(ctx, opts, res)

	res.FinishedAt = p.now()
	switch res.Outcome {
	case OutcomeFailed:
		log.Error("run failed", zap.Error(res.Err), zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	default:
		log.Info("run finished", zap.String("outcome", res.Outcome), zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	}

	if p.Recorder != nil {
		if err := p.Recorder.RecordRun(res.Record()); err != nil {
			log.Error("record run", zap.Error(err))
		}
	}
	return res
}

func (p *Pipeline) run(ctx context.Context, opts RunOptions, res *RunResult) {
	fail := func(err error) {
		res.Outcome = OutcomeFailed
		res.Err = err
	}

	feed, err := p.CollectFeed(ctx)
	if err != nil {
		fail(err)
		return
	}
	res.FeedRecords = len(feed)
	if opts.FeedOnly {
		res.Outcome = OutcomeFeedOnly
		return
	}
	if len(feed) == 0 {
		res.Outcome = OutcomeNoData
		p.Logger.Warn("feed returned no records, nothing to reconcile")
		return
	}

	series, err := p.CollectBank(ctx, collector.BankJobs(feed), p.now())
	if err != nil {
		fail(err)
		return
	}
	res.BankRecords = len(series.Records)
	res.SkippedRecords = len(series.Skipped)
	res.MissingAnchors = len(series.MissingAnchors)

	records, err := p.Compare()
	if errors.Is(err, reconcile.ErrNoData) {
		res.Outcome = OutcomeNoData
		p.Logger.Warn("nothing to reconcile", zap.Error(err))
		return
	}
	if err != nil {
		fail(err)
		return
	}
	res.Summary = reconcile.Summarize(records)
	res.Outcome = OutcomeCompleted

	if p.Recorder != nil {
		if err := p.Recorder.RecordMismatches(res.ID, records); err != nil {
			p.Logger.Error("record mismatches", zap.Error(err))
		}
	}
}
