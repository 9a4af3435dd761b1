package classify

import (
	"context"
	"time"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// Service answers report queries from a fresh snapshot on every call.
type Service struct {
	source ledger.Source
	engine Engine
	now    func() time.Time
}

// NewService builds Service.
func NewService(source ledger.Source, engine Engine) *Service {
	return &Service{source: source, engine: engine, now: time.Now}
}

// WithClock overrides the clock, used by tests and the scan job.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report classifies every product against the live ledger.
func (s *Service) Report(ctx context.Context) (Report, error) {
	now := s.now()
	snap, err := ledger.LoadSnapshot(ctx, s.source, now)
	if err != nil {
		return Report{}, err
	}
	return s.engine.Classify(snap, ledger.DateOf(now)), nil
}

// ExitSummary totals exits for the requested stores.
func (s *Service) ExitSummary(ctx context.Context, stores []ledger.Store) (ExitSummary, error) {
	exits, err := s.source.ListExits(ctx, ledger.ExitFilter{})
	if err != nil {
		return ExitSummary{}, err
	}
	return SummarizeExits(exits, stores), nil
}
