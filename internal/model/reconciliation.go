package model

import "github.com/shopspring/decimal"

// Status is the tolerance verdict of a reconciliation pairing.
type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

// MatchKind tells how a bank record was paired with the feed.
type MatchKind string

const (
	MatchExactDate   MatchKind = "ExactDateMatch"
	MatchApproximate MatchKind = "ApproximateMatch"
	MatchBankOnly    MatchKind = "BankOnly"
	MatchFeedOnly    MatchKind = "FeedOnly"
)

// MatchKinds lists every kind in report order.
var MatchKinds = []MatchKind{MatchExactDate, MatchApproximate, MatchBankOnly, MatchFeedOnly}

// ReconciliationRecord is one pairing between the bank and feed series.
// Bank is nil for FeedOnly pairings and Feed is nil for BankOnly pairings.
type ReconciliationRecord struct {
	InstrumentID      int64
	PeriodID          PeriodID
	PeriodDescription string
	BankDate          string // normalized; empty for FeedOnly
	FeedDate          string // normalized; empty for BankOnly
	Bank              *ReturnRecord
	Feed              *FeedRecord
	Difference        decimal.Decimal
	Status            Status
	Kind              MatchKind
}

// BankPercentage is the bank accumulated percentage, zero when the bank side is absent.
func (r ReconciliationRecord) BankPercentage() decimal.Decimal {
	if r.Bank == nil {
		return decimal.Zero
	}
	return r.Bank.AccumulatedPercentage
}

// FeedPercentage is the feed accumulated percentage, zero when the feed side is absent.
func (r ReconciliationRecord) FeedPercentage() decimal.Decimal {
	if r.Feed == nil {
		return decimal.Zero
	}
	return r.Feed.AccumulatedPct
}
