// Package movement applies the state transitions of the location ledger:
// shelving, moving and consuming boxes.
package movement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Ledger operation names used for audit and metrics.
const (
	OpAddStock        = "add_stock"
	OpMove            = "move"
	OpExit            = "exit"
	OpEditObservation = "edit_observation"
	OpDeleteExit      = "delete_exit"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error)
	ListExits(ctx context.Context, filter ledger.ExitFilter) ([]ledger.Exit, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// LockPort serialises work on one ledger entry.
type LockPort interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// IdempotencyPort rejects replayed request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort counts ledger operations by outcome.
type MetricsPort interface {
	ObserveLedgerOp(op string, err error)
}

// Service coordinates ledger movements.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	locks       LockPort
	idempotency IdempotencyPort
	metrics     MetricsPort
	now         func() time.Time
}

// Options groups optional collaborators.
type Options struct {
	Audit       AuditPort
	Locks       LockPort
	Idempotency IdempotencyPort
	Metrics     MetricsPort
	Now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:        repo,
		audit:       opts.Audit,
		locks:       opts.Locks,
		idempotency: opts.Idempotency,
		metrics:     opts.Metrics,
		now:         now,
	}
}

// AddStock shelves boxes of an existing product. Boxes merge into an entry of
// the same product, place and box size when one exists.
func (s *Service) AddStock(ctx context.Context, input AddStockInput) (result AddStockResult, err error) {
	defer func() { s.observe(OpAddStock, err) }()
	place := strings.TrimSpace(input.Place)
	if strings.TrimSpace(input.SKU) == "" {
		return AddStockResult{}, shared.Validation("sku required")
	}
	if place == "" {
		return AddStockResult{}, shared.Validation("location required")
	}
	if input.Volume <= 0 {
		return AddStockResult{}, fmt.Errorf("%w: volume must be positive", shared.ErrInvalidVolume)
	}
	if input.UnitsPerBox < 0 {
		return AddStockResult{}, shared.Validation("units per box must not be negative")
	}
	if input.Volume > maxStored {
		return AddStockResult{}, fmt.Errorf("%w: volume must not exceed %d", shared.ErrInvalidVolume, maxStored)
	}
	day := input.Date
	if day.IsZero() {
		day = s.today()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProduct(ctx, input.SKU)
		if err != nil {
			return err
		}
		upb := input.UnitsPerBox
		if upb == 0 {
			upb = product.UnitsPerBox
		}
		if upb <= 0 {
			upb = 1
		}
		if err := checkUnits(input.Volume, upb); err != nil {
			return err
		}
		loc, merged, err := s.deposit(ctx, tx, ledger.Location{
			SKU:         product.SKU,
			Name:        product.Name,
			Place:       place,
			Volume:      input.Volume,
			UnitsPerBox: upb,
			Date:        day,
		})
		if err != nil {
			return err
		}
		result = AddStockResult{Location: loc, Merged: merged}
		return tx.RegisterMasterLocation(ctx, place)
	})
	if err != nil {
		return AddStockResult{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   shared.AuditStockAdd,
		Entity:   "product_location",
		EntityID: result.Location.ID.String(),
		Meta: map[string]any{
			"sku":           result.Location.SKU,
			"location":      result.Location.Place,
			"volume":        input.Volume,
			"units_per_box": result.Location.UnitsPerBox,
		},
	})
	return result, nil
}

// Move transfers volume boxes from the source entry to destination. The
// source is deleted when drained; total quantity per SKU is conserved.
func (s *Service) Move(ctx context.Context, input MoveInput) (result MoveResult, err error) {
	defer func() { s.observe(OpMove, err) }()
	dest := strings.TrimSpace(input.Destination)
	if input.SourceID == uuid.Nil {
		return MoveResult{}, shared.Validation("source location id required")
	}
	if dest == "" {
		return MoveResult{}, shared.Validation("destination location required")
	}
	if input.Volume <= 0 {
		return MoveResult{}, fmt.Errorf("%w: volume must be positive", shared.ErrInvalidVolume)
	}
	release, err := s.lock(ctx, input.SourceID)
	if err != nil {
		return MoveResult{}, err
	}
	defer release()
	claimed, err := s.claim(ctx, OpMove, input.RequestKey)
	if err != nil {
		return MoveResult{}, err
	}
	today := s.today()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		src, err := tx.GetLocationForUpdate(ctx, input.SourceID)
		if err != nil {
			return err
		}
		if input.Volume > src.Volume {
			return fmt.Errorf("%w: %d exceeds %d boxes at source", shared.ErrInvalidVolume, input.Volume, src.Volume)
		}
		if ledger.SameLocation(src.Place, dest) {
			return shared.Validation("destination equals source location %q", src.Place)
		}
		remaining, err := s.withdraw(ctx, tx, src, input.Volume, today, true)
		if err != nil {
			return err
		}
		moved, merged, err := s.deposit(ctx, tx, ledger.Location{
			SKU:         src.SKU,
			Name:        src.Name,
			Place:       dest,
			Volume:      input.Volume,
			UnitsPerBox: src.UnitsPerBox,
			Date:        today,
		})
		if err != nil {
			return err
		}
		result = MoveResult{Source: remaining, Destination: moved, Merged: merged}
		return tx.RegisterMasterLocation(ctx, dest)
	})
	if err != nil {
		s.unclaim(ctx, claimed)
		return MoveResult{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   shared.AuditStockMove,
		Entity:   "product_location",
		EntityID: input.SourceID.String(),
		Meta: map[string]any{
			"sku":         result.Destination.SKU,
			"destination": dest,
			"volume":      input.Volume,
			"drained":     result.Source == nil,
		},
	})
	return result, nil
}

// Exit appends an exit record and takes its boxes off the source entry in a
// single transaction.
func (s *Service) Exit(ctx context.Context, input ExitInput) (result ExitResult, err error) {
	defer func() { s.observe(OpExit, err) }()
	if input.SourceID == uuid.Nil {
		return ExitResult{}, shared.Validation("source location id required")
	}
	exitType, store, err := parseExit(input.Type, input.Store)
	if err != nil {
		return ExitResult{}, err
	}
	if input.Volume <= 0 {
		return ExitResult{}, fmt.Errorf("%w: volume must be positive", shared.ErrInvalidVolume)
	}
	release, err := s.lock(ctx, input.SourceID)
	if err != nil {
		return ExitResult{}, err
	}
	defer release()
	claimed, err := s.claim(ctx, OpExit, input.RequestKey)
	if err != nil {
		return ExitResult{}, err
	}
	day := input.Date
	if day.IsZero() {
		day = s.today()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		src, err := tx.GetLocationForUpdate(ctx, input.SourceID)
		if err != nil {
			return err
		}
		if input.Volume > src.Volume {
			return fmt.Errorf("%w: %d exceeds %d boxes at source", shared.ErrInvalidVolume, input.Volume, src.Volume)
		}
		if err := checkUnits(input.Volume, src.UnitsPerBox); err != nil {
			return err
		}
		exit, err := tx.InsertExit(ctx, ledger.Exit{
			SKU:         src.SKU,
			Name:        src.Name,
			Quantity:    input.Volume * src.UnitsPerBox,
			Date:        day,
			Type:        exitType,
			Store:       store,
			Observation: strings.TrimSpace(input.Observation),
		})
		if err != nil {
			return err
		}
		remaining, err := s.withdraw(ctx, tx, src, input.Volume, src.Date, false)
		if err != nil {
			return err
		}
		result = ExitResult{Exit: exit, Source: remaining}
		return nil
	})
	if err != nil {
		s.unclaim(ctx, claimed)
		return ExitResult{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   shared.AuditStockExit,
		Entity:   "product_exit",
		EntityID: result.Exit.ID.String(),
		Meta: map[string]any{
			"sku":       result.Exit.SKU,
			"source_id": input.SourceID.String(),
			"quantity":  result.Exit.Quantity,
			"type":      string(result.Exit.Type),
			"store":     string(result.Exit.Store),
		},
	})
	return result, nil
}

// UpdateExitObservation rewrites the only mutable field of an exit.
func (s *Service) UpdateExitObservation(ctx context.Context, id uuid.UUID, observation string, actorID int64) (exit ledger.Exit, err error) {
	defer func() { s.observe(OpEditObservation, err) }()
	if id == uuid.Nil {
		return ledger.Exit{}, shared.Validation("exit id required")
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		exit, err = tx.UpdateExitObservation(ctx, id, strings.TrimSpace(observation))
		return err
	})
	if err != nil {
		return ledger.Exit{}, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditExitObservation,
		Entity:   "product_exit",
		EntityID: id.String(),
		Meta:     map[string]any{"observation": exit.Observation},
	})
	return exit, nil
}

// DeleteExit removes an exit record. The ledger is not touched: deleting
// history does not restore stock.
func (s *Service) DeleteExit(ctx context.Context, id uuid.UUID, actorID int64) (err error) {
	defer func() { s.observe(OpDeleteExit, err) }()
	if id == uuid.Nil {
		return shared.Validation("exit id required")
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteExit(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   shared.AuditExitDelete,
		Entity:   "product_exit",
		EntityID: id.String(),
	})
	return nil
}

// ListLocations lists ledger entries, newest first.
func (s *Service) ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error) {
	return s.repo.ListLocations(ctx, filter)
}

// ListExits lists exit records, newest first.
func (s *Service) ListExits(ctx context.Context, filter ledger.ExitFilter) ([]ledger.Exit, error) {
	return s.repo.ListExits(ctx, filter)
}

// withdraw takes volume boxes off src, deleting it when drained. It returns
// nil when the entry is gone.
func (s *Service) withdraw(ctx context.Context, tx TxRepository, src ledger.Location, volume int, day ledger.Date, touch bool) (*ledger.Location, error) {
	src.Volume -= volume
	if src.Volume == 0 {
		if err := tx.DeleteLocation(ctx, src.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if touch {
		src.Date = day
	}
	if err := tx.UpdateLocation(ctx, src.ID, src.Volume, src.Date); err != nil {
		return nil, err
	}
	return &src, nil
}

// deposit merges loc into a matching entry or inserts it.
func (s *Service) deposit(ctx context.Context, tx TxRepository, loc ledger.Location) (ledger.Location, bool, error) {
	existing, err := tx.FindLocationForUpdate(ctx, loc.SKU, loc.Place, loc.UnitsPerBox)
	switch {
	case err == nil:
		if existing.Volume > maxStored-loc.Volume {
			return ledger.Location{}, false, fmt.Errorf("%w: %s at %s would exceed %d boxes", shared.ErrInvalidVolume, loc.SKU, loc.Place, maxStored)
		}
		if err := checkUnits(existing.Volume+loc.Volume, loc.UnitsPerBox); err != nil {
			return ledger.Location{}, false, err
		}
		existing.Volume += loc.Volume
		if loc.Date.After(existing.Date) {
			existing.Date = loc.Date
		}
		if err := tx.UpdateLocation(ctx, existing.ID, existing.Volume, existing.Date); err != nil {
			return ledger.Location{}, false, err
		}
		return existing, true, nil
	case errors.Is(err, shared.ErrNotFound):
		inserted, err := tx.InsertLocation(ctx, loc)
		if err != nil {
			return ledger.Location{}, false, err
		}
		return inserted, false, nil
	default:
		return ledger.Location{}, false, err
	}
}

func parseExit(rawType, rawStore string) (ledger.ExitType, ledger.Store, error) {
	exitType, ok := ledger.ParseExitType(rawType)
	if !ok {
		return "", "", shared.Validation("unknown exit type %q", rawType)
	}
	hasStore := strings.TrimSpace(rawStore) != ""
	switch exitType {
	case ledger.ExitFull:
		if !hasStore {
			return "", "", shared.ErrMissingStore
		}
		store, ok := ledger.ParseStore(rawStore)
		if !ok {
			return "", "", shared.Validation("unknown store %q", rawStore)
		}
		return exitType, store, nil
	default:
		if hasStore {
			return "", "", shared.Validation("store only applies to Full exits")
		}
		return exitType, "", nil
	}
}

func (s *Service) today() ledger.Date {
	return ledger.DateOf(s.now())
}

func (s *Service) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	return s.locks.Acquire(ctx, shared.LedgerEntryLockKey(id))
}

func (s *Service) claim(ctx context.Context, op, requestKey string) (string, error) {
	requestKey = strings.TrimSpace(requestKey)
	if s.idempotency == nil || requestKey == "" {
		return "", nil
	}
	key := fmt.Sprintf("ledger:%s:%s", op, requestKey)
	if err := s.idempotency.CheckAndInsert(ctx, key, "ledger"); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) unclaim(ctx context.Context, key string) {
	if key == "" {
		return
	}
	_ = s.idempotency.Delete(ctx, key)
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, log)
}

func (s *Service) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveLedgerOp(op, err)
}

// maxStored bounds volumes and unit quantities to the INTEGER columns.
const maxStored = math.MaxInt32

func checkUnits(volume, unitsPerBox int) error {
	if unitsPerBox > 0 && volume > maxStored/unitsPerBox {
		return fmt.Errorf("%w: %d boxes of %d units exceed %d units", shared.ErrInvalidVolume, volume, unitsPerBox, maxStored)
	}
	return nil
}
