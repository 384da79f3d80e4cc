package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// returnScale is the number of decimal places kept for returns and
// accumulated returns after every step of the chain.
const returnScale = 16

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// DataError reports a single observation whose return cannot be computed.
type DataError struct {
	InstrumentID int64
	PeriodID     model.PeriodID
	PositionDate time.Time
	Reason       string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("instrument %d period %d on %s: %s",
		e.InstrumentID, int(e.PeriodID), e.PositionDate.Format(model.DateLayout), e.Reason)
}

// Compute derives the return chain of the in-period observations.
//
// The first observation is compared to anchorQuota when it is valid and gets a
// zero return otherwise. Every later observation is compared to its
// predecessor and compounded onto the accumulated return of the last valid
// record. Both are rounded to returnScale places at each step. An
// observation whose denominator is zero or negative is skipped and reported
// as a DataError; the chain continues without it.
func Compute(anchorQuota decimal.NullDecimal, period []model.QuotaObservation) ([]model.ReturnRecord, []*DataError) {
	records := make([]model.ReturnRecord, 0, len(period))
	var skipped []*DataError
	accumulated := decimal.Zero

	for i, obs := range period {
		var ret decimal.Decimal
		var base decimal.Decimal
		hasBase := true
		switch {
		case i > 0:
			base = period[i-1].QuotaValue
		case anchorQuota.Valid:
			base = anchorQuota.Decimal
		default:
			hasBase = false
		}

		if hasBase {
			if !base.IsPositive() {
				skipped = append(skipped, &DataError{
					InstrumentID: obs.InstrumentID,
					PeriodID:     obs.PeriodID,
					PositionDate: obs.PositionDate,
					Reason:       fmt.Sprintf("invalid base quota %s", base.String()),
				})
				continue
			}
			ret = obs.QuotaValue.Div(base).Sub(one).Round(returnScale)
		}

		if i == 0 {
			accumulated = ret
		} else {
			accumulated = accumulated.Add(one).Mul(ret.Add(one)).Sub(one).Round(returnScale)
		}

		records = append(records, model.ReturnRecord{
			InstrumentID:          obs.InstrumentID,
			InstrumentName:        obs.InstrumentName,
			PeriodID:              obs.PeriodID,
			PeriodStart:           obs.PeriodStart,
			PeriodEnd:             obs.PeriodEnd,
			PositionDate:          obs.PositionDate,
			QuotaValue:            obs.QuotaValue,
			Return:                ret,
			AccumulatedReturn:     accumulated,
			AccumulatedPercentage: accumulated.Mul(hundred),
		})
	}
	return records, skipped
}

// SeriesResult is the outcome of computing every (instrument, period) group.
type SeriesResult struct {
	Records        []model.ReturnRecord
	Skipped        []*DataError
	MissingAnchors []model.GroupKey
	EmptyGroups    []model.GroupKey
}

// BuildSeries groups raw observations by (instrument, period), orders each
// group by position date and computes its return chain. Groups are computed
// independently and emitted in (instrument, period) order. Observations that
// share a position date keep their input order.
func BuildSeries(observations []model.QuotaObservation) SeriesResult {
	groups := make(map[model.GroupKey][]model.QuotaObservation)
	var keys []model.GroupKey
	for _, obs := range observations {
		k := obs.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], obs)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var res SeriesResult
	for _, k := range keys {
		group := groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PositionDate.Before(group[j].PositionDate)
		})

		anchor, period := Partition(group, group[0].PeriodStart)
		if len(period) == 0 {
			res.EmptyGroups = append(res.EmptyGroups, k)
			continue
		}

		var anchorQuota decimal.NullDecimal
		if anchor != nil {
			anchorQuota = decimal.NewNullDecimal(anchor.QuotaValue)
		} else {
			res.MissingAnchors = append(res.MissingAnchors, k)
		}

		records, skipped := Compute(anchorQuota, period)
		res.Records = append(res.Records, records...)
		res.Skipped = append(res.Skipped, skipped...)
	}
	return res
}
