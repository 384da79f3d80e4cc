package tabular

import (
	"strconv"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// ReportColumns is the reconciliation report header, in fixed order.
var ReportColumns = []string{
	"instrument_id", "period_id", "period_description",
	"bank_position_date", "feed_final_date",
	"quota_value", "return", "accumulated_return",
	"feed_accumulated_pct", "bank_accumulated_pct",
	"difference", "status", "match_kind",
}

// ReportRow renders one reconciliation record. An absent side exports empty
// dates and bank values and a zero percentage.
func ReportRow(r model.ReconciliationRecord) []string {
	var quota, ret, acc string
	if r.Bank != nil {
		quota = r.Bank.QuotaValue.String()
		ret = r.Bank.Return.String()
		acc = r.Bank.AccumulatedReturn.String()
	}
	return []string{
		strconv.FormatInt(r.InstrumentID, 10),
		strconv.Itoa(int(r.PeriodID)),
		r.PeriodDescription,
		r.BankDate,
		r.FeedDate,
		quota,
		ret,
		acc,
		r.FeedPercentage().String(),
		r.BankPercentage().String(),
		r.Difference.String(),
		string(r.Status),
		string(r.Kind),
	}
}

// WriteReport exports the reconciliation report.
func WriteReport(path string, records []model.ReconciliationRecord) (Summary, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = ReportRow(r)
	}
	if err := writeFile(path, ReportColumns, rows); err != nil {
		return Summary{}, err
	}
	instruments := make(map[int64]struct{})
	periods := make(map[model.PeriodID]struct{})
	for _, r := range records {
		instruments[r.InstrumentID] = struct{}{}
		periods[r.PeriodID] = struct{}{}
	}
	return Summary{Records: len(records), Instruments: len(instruments), Periods: len(periods)}, nil
}
