package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// Collector fans requests for many (instrument, period) series out to the
// feed and the quota source. A failing series is logged and left out so one
// bad fund cannot sink a batch.
type Collector struct {
	Feed        FeedFetcher
	Quotas      QuotaSource
	Concurrency int
	Logger      *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(feed FeedFetcher, quotas QuotaSource, concurrency int, logger *zap.Logger) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{Feed: feed, Quotas: quotas, Concurrency: concurrency, Logger: logger}
}

// Jobs expands instruments x periods in a stable order.
func Jobs(instruments []int64, periods []model.PeriodID) []model.GroupKey {
	jobs := make([]model.GroupKey, 0, len(instruments)*len(periods))
	for _, id := range instruments {
		for _, p := range periods {
			jobs = append(jobs, model.GroupKey{InstrumentID: id, PeriodID: p})
		}
	}
	return jobs
}

// CollectFeed fetches every job's feed series. Results keep job order.
func (c *Collector) CollectFeed(ctx context.Context, jobs []model.GroupKey) ([]model.FeedRecord, error) {
	if c.Feed == nil {
		return nil, fmt.Errorf("collect feed: no feed fetcher configured")
	}
	results := make([][]model.FeedRecord, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			records, err := c.Feed.FetchReturns(gctx, job.InstrumentID, job.PeriodID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.Logger.Error("feed fetch failed",
					zap.String("source", c.Feed.Name()),
					zap.Int64("instrument_id", job.InstrumentID),
					zap.Int("period_id", int(job.PeriodID)),
					zap.Error(err),
				)
				return nil
			}
			c.Logger.Debug("feed series fetched",
				zap.Int64("instrument_id", job.InstrumentID),
				zap.Int("period_id", int(job.PeriodID)),
				zap.Int("records", len(records)),
			)
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect feed: %w", err)
	}

	var out []model.FeedRecord
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// CollectQuotas loads every job's quota observations for the period window
// that contains ref.
func (c *Collector) CollectQuotas(ctx context.Context, jobs []model.GroupKey, ref time.Time) ([]model.QuotaObservation, error) {
	if c.Quotas == nil {
		return nil, fmt.Errorf("collect quotas: no quota source configured")
	}
	results := make([][]model.QuotaObservation, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			window, err := job.PeriodID.Window(ref)
			if err != nil {
				c.Logger.Error("period window", zap.Int("period_id", int(job.PeriodID)), zap.Error(err))
				return nil
			}
			obs, err := c.Quotas.FundValues(gctx, job.InstrumentID, job.PeriodID, window)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.Logger.Error("quota load failed",
					zap.Int64("instrument_id", job.InstrumentID),
					zap.Int("period_id", int(job.PeriodID)),
					zap.Error(err),
				)
				return nil
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect quotas: %w", err)
	}

	var out []model.QuotaObservation
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// BankJobs returns the bank series to load for a feed: every distinct
// instrument of the feed crossed with every distinct period of the feed, in
// first-seen order. Series the feed lacks are still loaded so their bank
// records can surface as bank-only.
func BankJobs(records []model.FeedRecord) []model.GroupKey {
	seenIDs := make(map[int64]struct{})
	seenPeriods := make(map[model.PeriodID]struct{})
	var ids []int64
	var periods []model.PeriodID
	for _, r := range records {
		if _, ok := seenIDs[r.InstrumentID]; !ok {
			seenIDs[r.InstrumentID] = struct{}{}
			ids = append(ids, r.InstrumentID)
		}
		if _, ok := seenPeriods[r.PeriodID]; !ok {
			seenPeriods[r.PeriodID] = struct{}{}
			periods = append(periods, r.PeriodID)
		}
	}
	return Jobs(ids, periods)
}
