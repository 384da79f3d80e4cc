package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

func feedRec(id int64, p model.PeriodID, end string) model.FeedRecord {
	return model.FeedRecord{InstrumentID: id, PeriodID: p, EndDate: end, AccumulatedPct: decimal.NewFromInt(1)}
}

func TestJobs_Order(t *testing.T) {
	jobs := Jobs([]int64{315, 314}, []model.PeriodID{model.PeriodCurrentMonth, model.PeriodCurrentWeek})
	assert.Equal(t, []model.GroupKey{
		{InstrumentID: 315, PeriodID: model.PeriodCurrentMonth},
		{InstrumentID: 315, PeriodID: model.PeriodCurrentWeek},
		{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth},
		{InstrumentID: 314, PeriodID: model.PeriodCurrentWeek},
	}, jobs)
}

func TestCollectFeed_SkipsFailedSeries(t *testing.T) {
	a := model.GroupKey{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}
	b := model.GroupKey{InstrumentID: 315, PeriodID: model.PeriodCurrentMonth}
	c := model.GroupKey{InstrumentID: 316, PeriodID: model.PeriodCurrentMonth}
	fetcher := &MockFetcher{
		Records: map[model.GroupKey][]model.FeedRecord{
			a: {feedRec(314, model.PeriodCurrentMonth, "2025-08-01"), feedRec(314, model.PeriodCurrentMonth, "2025-08-04")},
			c: {feedRec(316, model.PeriodCurrentMonth, "2025-08-01")},
		},
		Errors: map[model.GroupKey]error{b: errors.New("boom")},
	}
	col := NewCollector(fetcher, nil, 2, zaptest.NewLogger(t))

	out, err := col.CollectFeed(context.Background(), []model.GroupKey{a, b, c})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "2025-08-01", out[0].EndDate)
	assert.Equal(t, "2025-08-04", out[1].EndDate)
	assert.Equal(t, int64(316), out[2].InstrumentID)
	assert.Equal(t, 3, fetcher.Calls())
}

func TestCollectFeed_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &MockFetcher{Errors: map[model.GroupKey]error{
		{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}: context.Canceled,
	}}
	col := NewCollector(fetcher, nil, 1, zaptest.NewLogger(t))

	_, err := col.CollectFeed(ctx, []model.GroupKey{{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectQuotas_PassesPeriodWindow(t *testing.T) {
	k := model.GroupKey{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth}
	obs := []model.QuotaObservation{{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth, QuotaValue: decimal.NewFromInt(100)}}
	src := &MockQuotaSource{Observations: map[model.GroupKey][]model.QuotaObservation{k: obs}}
	col := NewCollector(nil, src, 4, zaptest.NewLogger(t))

	ref := time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)
	out, err := col.CollectQuotas(context.Background(), []model.GroupKey{k}, ref)
	require.NoError(t, err)
	assert.Equal(t, obs, out)

	require.Len(t, src.windows, 1)
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), src.windows[0].Start)
	assert.Equal(t, time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC), src.windows[0].End)
}

func TestCollect_MissingSource(t *testing.T) {
	col := NewCollector(nil, nil, 1, zaptest.NewLogger(t))
	_, err := col.CollectFeed(context.Background(), nil)
	assert.Error(t, err)
	_, err = col.CollectQuotas(context.Background(), nil, time.Now())
	assert.Error(t, err)
}

func TestBankJobs_CrossesFeedInstrumentsAndPeriods(t *testing.T) {
	keys := BankJobs([]model.FeedRecord{
		feedRec(315, model.PeriodCurrentMonth, "2025-08-01"),
		feedRec(314, model.PeriodCurrentWeek, "2025-08-01"),
		feedRec(315, model.PeriodCurrentMonth, "2025-08-04"),
	})
	assert.Equal(t, []model.GroupKey{
		{InstrumentID: 315, PeriodID: model.PeriodCurrentMonth},
		{InstrumentID: 315, PeriodID: model.PeriodCurrentWeek},
		{InstrumentID: 314, PeriodID: model.PeriodCurrentMonth},
		{InstrumentID: 314, PeriodID: model.PeriodCurrentWeek},
	}, keys)
}

func TestBankJobs_Empty(t *testing.T) {
	assert.Empty(t, BankJobs(nil))
}
