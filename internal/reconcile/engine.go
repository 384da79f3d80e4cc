package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/otaviosalomao/FundValidation/internal/calculator"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

// ErrNoData is returned when either side of a reconciliation has no records.
var ErrNoData = errors.New("no data to reconcile")

// dateKey identifies a record by (instrument, period, normalized date).
type dateKey struct {
	group model.GroupKey
	date  string
}

// Reconcile pairs every bank record with the feed and reports feed series that
// have no bank counterpart at all.
//
// A bank record is an ExactDateMatch when the feed has a record for the same
// instrument, period and normalized date (the last such feed record when the
// feed repeats a date), an ApproximateMatch against the last feed record of
// the same instrument and period otherwise, and BankOnly when the feed has no
// record for that instrument and period. Feed records of an (instrument,
// period) that the bank never reports are emitted as FeedOnly; feed records
// of a series the bank does report are only visible through its pairings.
//
// The output is stably sorted by instrument, period and bank date.
func Reconcile(bank []model.ReturnRecord, feed []model.FeedRecord, s Settings) ([]model.ReconciliationRecord, error) {
	if len(bank) == 0 {
		return nil, fmt.Errorf("bank series is empty: %w", ErrNoData)
	}
	if len(feed) == 0 {
		return nil, fmt.Errorf("feed series is empty: %w", ErrNoData)
	}

	// Index the feed once: exact date lookups and the last record per series.
	exact := make(map[dateKey]int, len(feed))
	lastInSeries := make(map[model.GroupKey]int)
	for i := range feed {
		k := dateKey{group: feed[i].Key(), date: calculator.NormalizeDate(feed[i].EndDate)}
		exact[k] = i
		lastInSeries[k.group] = i
	}

	out := make([]model.ReconciliationRecord, 0, len(bank))
	bankSeries := make(map[model.GroupKey]struct{})

	// Exact pass with approximate/bank-only fallback.
	for i := range bank {
		b := bank[i]
		bankSeries[b.Key()] = struct{}{}
		k := dateKey{group: b.Key(), date: calculator.NormalizeDate(b.PositionDate)}

		if fi, ok := exact[k]; ok {
			f := feed[fi]
			out = append(out, s.pair(&b, &f, model.MatchExactDate))
			continue
		}
		if fi, ok := lastInSeries[k.group]; ok {
			f := feed[fi]
			out = append(out, s.pair(&b, &f, model.MatchApproximate))
			continue
		}
		out = append(out, s.pair(&b, nil, model.MatchBankOnly))
	}

	// Feed-only pass: only series without any bank record.
	for i := range feed {
		f := feed[i]
		if _, ok := bankSeries[f.Key()]; ok {
			continue
		}
		out = append(out, s.pair(nil, &f, model.MatchFeedOnly))
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.InstrumentID != b.InstrumentID {
			return a.InstrumentID < b.InstrumentID
		}
		if a.PeriodID != b.PeriodID {
			return a.PeriodID < b.PeriodID
		}
		return a.BankDate < b.BankDate
	})
	return out, nil
}

func (s Settings) pair(b *model.ReturnRecord, f *model.FeedRecord, kind model.MatchKind) model.ReconciliationRecord {
	rec := model.ReconciliationRecord{Bank: b, Feed: f, Kind: kind}
	if b != nil {
		rec.InstrumentID = b.InstrumentID
		rec.PeriodID = b.PeriodID
		rec.BankDate = calculator.NormalizeDate(b.PositionDate)
	}
	if f != nil {
		rec.InstrumentID = f.InstrumentID
		rec.PeriodID = f.PeriodID
		rec.FeedDate = calculator.NormalizeDate(f.EndDate)
	}
	rec.PeriodDescription = s.Description(rec.PeriodID)
	rec.Difference = rec.FeedPercentage().Sub(rec.BankPercentage()).Abs()
	if rec.Difference.LessThan(s.tolerance) {
		rec.Status = model.StatusOK
	} else {
		rec.Status = model.StatusError
	}
	return rec
}
