package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seed(t *testing.T, values map[string]string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "funds.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.UpsertInstrument(ctx, 314, "Fundo Alpha"))
	require.NoError(t, s.UpsertInstrument(ctx, 315, "Fundo Beta"))
	for date, quota := range values {
		require.NoError(t, s.InsertFundValue(ctx, 314, day(date), decimal.RequireFromString(quota)))
	}
	// Another fund's history must never leak into 314's window.
	require.NoError(t, s.InsertFundValue(ctx, 315, day("2025-07-30"), decimal.NewFromInt(50)))
	return s
}

func dates(obs []model.QuotaObservation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.PositionDate.Format(model.DateLayout)
	}
	return out
}

func TestSQLiteStore_FundValuesWithAnchor(t *testing.T) {
	s := seed(t, map[string]string{
		"2025-07-28": "98",
		"2025-07-30": "100",
		"2025-08-01": "101.5",
		"2025-08-04": "102.25",
		"2025-09-01": "110",
	})
	window := model.Window{Start: day("2025-08-01"), End: day("2025-08-31")}

	obs, err := s.FundValues(context.Background(), 314, model.PeriodCurrentMonth, window)
	require.NoError(t, err)

	// Anchor date is 2025-07-31; the last observation before it is 07-30.
	assert.Equal(t, []string{"2025-07-30", "2025-08-01", "2025-08-04"}, dates(obs))
	assert.Equal(t, "Fundo Alpha", obs[0].InstrumentName)
	assert.Equal(t, model.PeriodCurrentMonth, obs[0].PeriodID)
	assert.True(t, obs[2].QuotaValue.Equal(decimal.RequireFromString("102.25")))
	assert.Equal(t, window.Start, obs[1].PeriodStart)
	assert.Equal(t, window.End, obs[1].PeriodEnd)
}

func TestSQLiteStore_FundValuesWithoutEarlierHistory(t *testing.T) {
	s := seed(t, map[string]string{
		"2025-08-01": "100",
		"2025-08-04": "105",
	})
	window := model.Window{Start: day("2025-08-01"), End: day("2025-08-31")}

	obs, err := s.FundValues(context.Background(), 314, model.PeriodCurrentMonth, window)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-08-01", "2025-08-04"}, dates(obs))
}

func TestSQLiteStore_UnknownInstrument(t *testing.T) {
	s := seed(t, map[string]string{"2025-08-01": "100"})
	window := model.Window{Start: day("2025-08-01"), End: day("2025-08-31")}

	obs, err := s.FundValues(context.Background(), 999, model.PeriodCurrentMonth, window)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mssql"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}
