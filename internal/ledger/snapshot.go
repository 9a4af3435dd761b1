package ledger

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Source reads the complete ledger state.
type Source interface {
	ListProducts(ctx context.Context, search string) ([]Product, error)
	ListLocations(ctx context.Context, filter LocationFilter) ([]Location, error)
	ListExits(ctx context.Context, filter ExitFilter) ([]Exit, error)
	ListMasterLocations(ctx context.Context) ([]MasterLocation, error)
}

// Snapshot is an immutable view of the ledger taken at one instant. All
// derived figures are computed from it, never stored.
type Snapshot struct {
	Products        []Product
	Locations       []Location
	Exits           []Exit
	MasterLocations []MasterLocation
	TakenAt         time.Time
}

// QuantityOf returns the derived quantity of sku.
func (s Snapshot) QuantityOf(sku string) int {
	return QuantityOf(sku, s.Locations)
}

// Availability returns the availability report of the snapshot.
func (s Snapshot) Availability() []AvailabilityRow {
	return Availability(s.MasterLocations, s.Locations)
}

// LoadSnapshot reads every ledger table concurrently.
func LoadSnapshot(ctx context.Context, src Source, now time.Time) (Snapshot, error) {
	snap := Snapshot{TakenAt: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Products, err = src.ListProducts(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		snap.Locations, err = src.ListLocations(gctx, LocationFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		snap.Exits, err = src.ListExits(gctx, ExitFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		snap.MasterLocations, err = src.ListMasterLocations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
