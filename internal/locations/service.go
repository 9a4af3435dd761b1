// Package locations keeps the registry of known location names, occupied
// or not, and reports which ones are free.
package locations

import (
	"context"
	"strings"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMasterLocations(ctx context.Context) ([]ledger.MasterLocation, error)
	ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error)
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	RegisterIfAbsent(ctx context.Context, name string) (ledger.MasterLocation, bool, error)
	GetForUpdate(ctx context.Context, name string) (ledger.MasterLocation, error)
	CountEntries(ctx context.Context, name string) (int, error)
	Delete(ctx context.Context, name string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the master-location registry.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Register adds name to the registry. Registering a known name is a no-op
// that returns the existing entry.
func (s *Service) Register(ctx context.Context, name string, actorID int64) (ledger.MasterLocation, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.MasterLocation{}, false, shared.Validation("location name required")
	}
	var loc ledger.MasterLocation
	var created bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		loc, created, err = tx.RegisterIfAbsent(ctx, name)
		return err
	})
	if err != nil {
		return ledger.MasterLocation{}, false, err
	}
	if created {
		s.record(ctx, actorID, shared.AuditLocationRegister, loc.Name)
	}
	return loc, created, nil
}

// Remove deletes name from the registry. It fails with ErrLocationOccupied
// while any ledger entry sits there; the check reads the live ledger inside
// the deleting transaction.
func (s *Service) Remove(ctx context.Context, name string, actorID int64) error {
	if strings.TrimSpace(name) == "" {
		return shared.Validation("location name required")
	}
	var removed ledger.MasterLocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		loc, err := tx.GetForUpdate(ctx, name)
		if err != nil {
			return err
		}
		if err := ensureFree(ctx, tx, loc.Name); err != nil {
			return err
		}
		removed = loc
		return tx.Delete(ctx, loc.Name)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditLocationRemove, removed.Name)
	return nil
}

// EnsureRemovable checks that name is registered and holds no stock.
func (s *Service) EnsureRemovable(ctx context.Context, name string) (ledger.MasterLocation, error) {
	if strings.TrimSpace(name) == "" {
		return ledger.MasterLocation{}, shared.Validation("location name required")
	}
	var loc ledger.MasterLocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		loc, err = tx.GetForUpdate(ctx, name)
		if err != nil {
			return err
		}
		return ensureFree(ctx, tx, loc.Name)
	})
	return loc, err
}

// Availability reports Occupied or Free for each registered name matching
// search, computed from a fresh read.
func (s *Service) Availability(ctx context.Context, search string) ([]ledger.AvailabilityRow, error) {
	master, err := s.repo.ListMasterLocations(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListLocations(ctx, ledger.LocationFilter{})
	if err != nil {
		return nil, err
	}
	filtered := make([]ledger.MasterLocation, 0, len(master))
	for _, m := range master {
		if ledger.MatchesSearch(search, m.Name) {
			filtered = append(filtered, m)
		}
	}
	return ledger.Availability(filtered, entries), nil
}

// List returns every registered name.
func (s *Service) List(ctx context.Context) ([]ledger.MasterLocation, error) {
	return s.repo.ListMasterLocations(ctx)
}

func ensureFree(ctx context.Context, tx TxRepository, name string) error {
	n, err := tx.CountEntries(ctx, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ErrLocationOccupied
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action, name string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "master_location",
		EntityID: name,
	})
}
