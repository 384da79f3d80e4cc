package calculator

import (
	"time"

	"github.com/otaviosalomao/FundValidation/internal/model"
)

// Partition splits a chronologically sorted group into the anchor and the
// in-period observations. The anchor is the earliest observation dated
// strictly before periodStart; later pre-period observations are dropped.
// anchor is nil when nothing precedes the period.
func Partition(sorted []model.QuotaObservation, periodStart time.Time) (anchor *model.QuotaObservation, period []model.QuotaObservation) {
	start := Day(periodStart)
	period = make([]model.QuotaObservation, 0, len(sorted))
	for i := range sorted {
		if Day(sorted[i].PositionDate).Before(start) {
			if anchor == nil {
				a := sorted[i]
				anchor = &a
			}
			continue
		}
		period = append(period, sorted[i])
	}
	return anchor, period
}
