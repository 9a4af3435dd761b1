package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

type memoryRepo struct {
	products  map[string]ledger.Product
	locations []ledger.Location
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[string]ledger.Product)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetProduct(ctx context.Context, sku string) (ledger.Product, error) {
	p, ok := r.products[ledger.NormalizeSKU(sku)]
	if !ok {
		return ledger.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) ListProducts(ctx context.Context, search string) ([]ledger.Product, error) {
	var out []ledger.Product
	for _, p := range r.products {
		if ledger.MatchesSearch(search, p.Name, p.Brand, p.SKU) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error) {
	var out []ledger.Location
	for _, l := range r.locations {
		if filter.SKU == "" || ledger.SameSKU(filter.SKU, l.SKU) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, sku string) (ledger.Product, error) {
	return tx.repo.GetProduct(ctx, sku)
}

func (tx *memoryTx) InsertProduct(ctx context.Context, p ledger.Product) error {
	key := ledger.NormalizeSKU(p.SKU)
	if _, ok := tx.repo.products[key]; ok {
		return shared.ErrDuplicateSKU
	}
	tx.repo.products[key] = p
	return nil
}

func (tx *memoryTx) UpdateProduct(ctx context.Context, p ledger.Product) error {
	tx.repo.products[ledger.NormalizeSKU(p.SKU)] = p
	return nil
}

func (tx *memoryTx) DeleteProduct(ctx context.Context, sku string) error {
	delete(tx.repo.products, ledger.NormalizeSKU(sku))
	return nil
}

func (r *memoryRepo) CountLocations(ctx context.Context, sku string) (int, error) {
	n := 0
	for _, l := range r.locations {
		if ledger.SameSKU(l.SKU, sku) {
			n++
		}
	}
	return n, nil
}

func (tx *memoryTx) CountLocations(ctx context.Context, sku string) (int, error) {
	n := 0
	for _, l := range tx.repo.locations {
		if ledger.SameSKU(l.SKU, sku) {
			n++
		}
	}
	return n, nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleInput(cost string) ProductInput {
	return ProductInput{Name: "Camiseta", Brand: "Acme", Supplier: "Fornecedor SA", CostPrice: price(cost), RepurchaseThreshold: 10}
}

func newTestService(repo *memoryRepo, day time.Time) *Service {
	return NewService(repo, nil).WithClock(func() time.Time { return day })
}

func TestCreateStartsHistoryAndDefaultsBoxSize(t *testing.T) {
	day := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(newMemoryRepo(), day)

	p, err := svc.Create(context.Background(), CreateInput{SKU: " CAM-01 ", ProductInput: sampleInput("19.90")})
	require.NoError(t, err)
	require.Equal(t, "CAM-01", p.SKU)
	require.Equal(t, 1, p.UnitsPerBox)
	require.True(t, p.History.BestPrice.Equal(price("19.90")))
	require.True(t, p.History.PreviousPrice.Equal(price("19.90")))
	require.Equal(t, ledger.NewDate(2024, time.March, 1), p.History.LastEditDate)
}

func TestCreateRejectsDuplicateSKUCaseInsensitive(t *testing.T) {
	svc := newTestService(newMemoryRepo(), time.Now())
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{SKU: "cam-01", ProductInput: sampleInput("10")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{SKU: "CAM-01", ProductInput: sampleInput("10")})
	require.ErrorIs(t, err, shared.ErrDuplicateSKU)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), time.Now())
	ctx := context.Background()

	cases := map[string]CreateInput{
		"blank sku":          {SKU: " ", ProductInput: sampleInput("10")},
		"blank name":         {SKU: "X", ProductInput: ProductInput{Brand: "b", Supplier: "s", CostPrice: price("1")}},
		"blank brand":        {SKU: "X", ProductInput: ProductInput{Name: "n", Supplier: "s", CostPrice: price("1")}},
		"blank supplier":     {SKU: "X", ProductInput: ProductInput{Name: "n", Brand: "b", CostPrice: price("1")}},
		"zero price":         {SKU: "X", ProductInput: ProductInput{Name: "n", Brand: "b", Supplier: "s"}},
		"negative price":     {SKU: "X", ProductInput: ProductInput{Name: "n", Brand: "b", Supplier: "s", CostPrice: price("-2")}},
		"negative threshold": {SKU: "X", ProductInput: ProductInput{Name: "n", Brand: "b", Supplier: "s", CostPrice: price("1"), RepurchaseThreshold: -1}},
	}
	for name, in := range cases {
		_, err := svc.Create(ctx, in)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestUpdateTracksPriceHistory(t *testing.T) {
	repo := newMemoryRepo()
	day := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(repo, nil).WithClock(func() time.Time { return day })
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SKU: "A1", ProductInput: sampleInput("10")})
	require.NoError(t, err)

	day = day.AddDate(0, 0, 5)
	updated, err := svc.Update(ctx, UpdateInput{SKU: "a1", ProductInput: sampleInput("12")})
	require.NoError(t, err)
	require.Equal(t, "A1", updated.SKU)
	require.True(t, updated.History.PreviousPrice.Equal(price("10")))
	require.True(t, updated.History.BestPrice.Equal(price("10")))
	require.Equal(t, ledger.NewDate(2024, time.March, 6), updated.History.LastEditDate)

	updated, err = svc.Update(ctx, UpdateInput{SKU: "A1", ProductInput: sampleInput("8")})
	require.NoError(t, err)
	require.True(t, updated.History.PreviousPrice.Equal(price("12")))
	require.True(t, updated.History.BestPrice.Equal(price("8")))

	_, err = svc.Update(ctx, UpdateInput{SKU: "missing", ProductInput: sampleInput("8")})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCloneStartsFreshHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SKU: "A1", ProductInput: sampleInput("10")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, UpdateInput{SKU: "A1", ProductInput: sampleInput("5")})
	require.NoError(t, err)
	repo.locations = []ledger.Location{{SKU: "A1", Place: "Shelf-1", Volume: 2, UnitsPerBox: 1}}

	clone, err := svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "A1-BLUE", ProductInput: ProductInput{Color: "Azul", CostPrice: price("7")}})
	require.NoError(t, err)
	require.Equal(t, "Camiseta", clone.Name)
	require.Equal(t, "Azul", clone.Color)
	require.True(t, clone.History.BestPrice.Equal(price("7")))
	require.True(t, clone.History.PreviousPrice.Equal(price("7")))

	view, err := svc.Get(ctx, "A1-BLUE")
	require.NoError(t, err)
	require.Zero(t, view.Quantity)

	_, err = svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "a1"})
	require.ErrorIs(t, err, shared.ErrDuplicateSKU)
}

func TestCloneThresholdOverride(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SKU: "A1", ProductInput: sampleInput("10")})
	require.NoError(t, err)

	inherited, err := svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "A2"})
	require.NoError(t, err)
	require.Equal(t, 10, inherited.RepurchaseThreshold)

	zero := 0
	disabled, err := svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "A3", Threshold: &zero})
	require.NoError(t, err)
	require.Zero(t, disabled.RepurchaseThreshold)

	five := 5
	lowered, err := svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "A4", Threshold: &five})
	require.NoError(t, err)
	require.Equal(t, 5, lowered.RepurchaseThreshold)

	negative := -1
	_, err = svc.Clone(ctx, CloneInput{SourceSKU: "A1", NewSKU: "A5", Threshold: &negative})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteRefusedWhileStockExists(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SKU: "A1", ProductInput: sampleInput("10")})
	require.NoError(t, err)
	repo.locations = []ledger.Location{{SKU: "a1", Place: "Shelf-1", Volume: 1, UnitsPerBox: 1}}

	inUse, err := svc.InUse(ctx, "a1")
	require.NoError(t, err)
	require.True(t, inUse)
	require.ErrorIs(t, svc.Delete(ctx, "A1", 1), shared.ErrProductInUse)

	repo.locations = nil
	inUse, err = svc.InUse(ctx, "A1")
	require.NoError(t, err)
	require.False(t, inUse)
	require.NoError(t, svc.Delete(ctx, "A1", 1))
	ok, err := svc.Exists(ctx, "A1")
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, svc.Delete(ctx, "A1", 1), shared.ErrNotFound)
}

func TestListDerivesQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, time.Now())
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateInput{SKU: "A1", ProductInput: sampleInput("10")})
	require.NoError(t, err)
	repo.locations = []ledger.Location{
		{SKU: "A1", Place: "Shelf-1", Volume: 5, UnitsPerBox: 10},
		{SKU: "a1", Place: "Shelf-2", Volume: 1, UnitsPerBox: 4},
	}

	views, err := svc.List(ctx, "cami")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, 54, views[0].Quantity)

	history, err := svc.History(ctx, "a1")
	require.NoError(t, err)
	require.True(t, history.CurrentPrice.Equal(price("10")))
}
