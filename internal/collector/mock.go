package collector

import (
	"context"
	"sync"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Records map[model.GroupKey][]model.FeedRecord
	Errors  map[model.GroupKey]error

	mu    sync.Mutex
	calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchReturns(_ context.Context, instrumentID int64, period model.PeriodID) ([]model.FeedRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	k := model.GroupKey{InstrumentID: instrumentID, PeriodID: period}
	if err := m.Errors[k]; err != nil {
		return nil, err
	}
	return m.Records[k], nil
}

// Calls reports how many fetches were made.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockQuotaSource serves fixed quota observations per series.
type MockQuotaSource struct {
	Observations map[model.GroupKey][]model.QuotaObservation
	Errors       map[model.GroupKey]error

	mu      sync.Mutex
	windows []model.Window
}

func (m *MockQuotaSource) FundValues(_ context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error) {
	m.mu.Lock()
	m.windows = append(m.windows, window)
	m.mu.Unlock()

	k := model.GroupKey{InstrumentID: instrumentID, PeriodID: period}
	if err := m.Errors[k]; err != nil {
		return nil, err
	}
	return m.Observations[k], nil
}

// Calls reports how many loads were made.
func (m *MockQuotaSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
