package reconcile

import "github.com/otaviosalomao/FundValidation/internal/model"

// Summary counts the outcome of a reconciliation.
type Summary struct {
	Total  int
	OK     int
	Errors int
	ByKind map[model.MatchKind]int
}

// Summarize tallies records by status and match kind.
func Summarize(records []model.ReconciliationRecord) Summary {
	s := Summary{Total: len(records), ByKind: make(map[model.MatchKind]int, len(model.MatchKinds))}
	for _, r := range records {
		if r.Status == model.StatusOK {
			s.OK++
		} else {
			s.Errors++
		}
		s.ByKind[r.Kind]++
	}
	return s
}

// SuccessRate is the share of OK records in percent, 0 for an empty run.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.OK) / float64(s.Total) * 100
}
