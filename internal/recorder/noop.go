package recorder

import "github.com/otaviosalomao/FundValidation/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunRecord) error                                    { return nil }
func (n *NoopRecorder) RecordMismatches(_ string, _ []model.ReconciliationRecord) error { return nil }
func (n *NoopRecorder) LastRun() (*RunRecord, error)                                    { return nil, nil }
func (n *NoopRecorder) Close() error                                                    { return nil }
