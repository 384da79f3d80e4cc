package tabular

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/calculator"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

// BankColumns is the bank snapshot header.
var BankColumns = []string{
	"instrument_id", "instrument_name", "period_id", "period_description",
	"period_start", "period_end", "position_date", "quota_value",
	"return", "accumulated_return", "accumulated_pct",
}

// WriteBank exports the computed return series. describe labels periods.
func WriteBank(path string, records []model.ReturnRecord, describe func(model.PeriodID) string) (Summary, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			strconv.FormatInt(r.InstrumentID, 10),
			r.InstrumentName,
			strconv.Itoa(int(r.PeriodID)),
			describe(r.PeriodID),
			formatDay(r.PeriodStart),
			formatDay(r.PeriodEnd),
			formatDay(r.PositionDate),
			r.QuotaValue.String(),
			r.Return.String(),
			r.AccumulatedReturn.String(),
			r.AccumulatedPercentage.String(),
		}
	}
	if err := writeFile(path, BankColumns, rows); err != nil {
		return Summary{}, err
	}
	return summarize(records), nil
}

// ReadBank loads a bank snapshot. Rows that cannot be parsed are logged and
// skipped.
func ReadBank(path string, logger *zap.Logger) ([]model.ReturnRecord, error) {
	t, err := readFile(path, []string{
		"instrument_id", "period_id", "position_date", "quota_value",
		"return", "accumulated_return", "accumulated_pct",
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.ReturnRecord, 0, len(t.rows))
	for i, row := range t.rows {
		p := &rowParser{t: t, row: row}
		rec := model.ReturnRecord{
			InstrumentID:          p.integer("instrument_id"),
			InstrumentName:        p.str("instrument_name"),
			PeriodID:              p.period("period_id"),
			PeriodStart:           p.optDay("period_start"),
			PeriodEnd:             p.optDay("period_end"),
			PositionDate:          p.day("position_date"),
			QuotaValue:            p.dec("quota_value"),
			Return:                p.dec("return"),
			AccumulatedReturn:     p.dec("accumulated_return"),
			AccumulatedPercentage: p.dec("accumulated_pct"),
		}
		if p.err != nil {
			skipRow(logger, path, i+2, p.err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func (p *rowParser) day(name string) time.Time {
	d, err := calculator.ParseDate(p.str(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return d
}

func (p *rowParser) optDay(name string) time.Time {
	if p.str(name) == "" {
		return time.Time{}
	}
	return p.day(name)
}
