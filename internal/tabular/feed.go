package tabular

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// FeedColumns is the feed snapshot header.
var FeedColumns = []string{
	"instrument_id", "period_id", "period_description", "start_date", "end_date",
	"over_benchmark_pct", "benchmark_accumulated_pct", "accumulated_pct", "nominal_accumulated",
}

// WriteFeed exports the feed series.
func WriteFeed(path string, records []model.FeedRecord) (Summary, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.FormatInt(r.InstrumentID, 10),
			strconv.Itoa(int(r.PeriodID)),
			r.PeriodDescription,
			r.StartDate,
			r.EndDate,
			r.OverBenchmarkPct.String(),
			r.BenchmarkAccumulatedPct.String(),
			r.AccumulatedPct.String(),
			r.NominalAccumulated.String(),
		}
	}
	if err := writeFile(path, FeedColumns, rows); err != nil {
		return Summary{}, err
	}
	return summarize(records), nil
}

// ReadFeed loads a feed snapshot. Rows that cannot be parsed are logged and
// skipped.
func ReadFeed(path string, logger *zap.Logger) ([]model.FeedRecord, error) {
	t, err := readFile(path, []string{"instrument_id", "period_id", "end_date", "accumulated_pct"})
	if err != nil {
		return nil, err
	}

	out := make([]model.FeedRecord, 0, len(t.rows))
	for i, row := range t.rows {
		p := &rowParser{t: t, row: row}
		rec := model.FeedRecord{
			InstrumentID:            p.integer("instrument_id"),
			PeriodID:                p.period("period_id"),
			PeriodDescription:       p.str("period_description"),
			StartDate:               p.str("start_date"),
			EndDate:                 p.str("end_date"),
			OverBenchmarkPct:        p.optDec("over_benchmark_pct"),
			BenchmarkAccumulatedPct: p.optDec("benchmark_accumulated_pct"),
			AccumulatedPct:          p.dec("accumulated_pct"),
			NominalAccumulated:      p.optDec("nominal_accumulated"),
		}
		if p.err != nil {
			skipRow(logger, path, i+2, p.err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
