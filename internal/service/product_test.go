package service

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/internal/model"
	"github.com/MatheusCampagnolo/kargo/internal/repository"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
	"github.com/MatheusCampagnolo/kargo/pkg/ptr"
)

// fakeTransactor runs the function without a real transaction.
// Mutations made by a failing function are rolled back by restoring a snapshot.
type fakeTransactor struct {
	repo *fakeProductRepository
	txs  int
}

func (f *fakeTransactor) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	f.txs++
	snapshot := f.repo.snapshot()
	if err := txFunc(nil); err != nil {
		f.repo.restore(snapshot)
		return err
	}
	return nil
}

// fakeProductRepository is an in-memory ProductRepository.
type fakeProductRepository struct {
	products map[int64]model.Product
	nextID   int64
	err      error
	writes   int
}

func newFakeProductRepository(products ...model.Product) *fakeProductRepository {
	r := &fakeProductRepository{products: map[int64]model.Product{}}
	for _, p := range products {
		r.nextID++
		p.ID = r.nextID
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepository) snapshot() map[int64]model.Product {
	out := make(map[int64]model.Product, len(r.products))
	for k, v := range r.products {
		out[k] = v
	}
	return out
}

func (r *fakeProductRepository) restore(products map[int64]model.Product) {
	r.products = products
}

func (r *fakeProductRepository) WithDB(_ db.DB) repository.ProductRepository {
	return r
}

func (r *fakeProductRepository) CreateProduct(_ context.Context, product model.Product) (model.Product, error) {
	if r.err != nil {
		return model.Product{}, r.err
	}
	r.writes++
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepository) GetProduct(_ context.Context, id int64) (model.Product, error) {
	if r.err != nil {
		return model.Product{}, r.err
	}
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *fakeProductRepository) GetProductForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return r.GetProduct(ctx, id)
}

func (r *fakeProductRepository) ExistsByID(_ context.Context, id int64) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.products[id]
	return ok, nil
}

func (r *fakeProductRepository) ExistsBySku(_ context.Context, sku string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	for _, p := range r.products {
		if p.Sku == sku {
			return true, nil
		}
	}
	return false, nil
}

func containsFold(field *string, filter *string) bool {
	if filter == nil {
		return true
	}
	if field == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*field), strings.ToLower(*filter))
}

func (r *fakeProductRepository) ListProducts(_ context.Context, params repository.ListProductsParams) ([]model.Product, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}

	var matched []model.Product
	for _, p := range r.products {
		if containsFold(&p.Name, params.Name) && containsFold(p.Category, params.Category) {
			matched = append(matched, p)
		}
	}
	slices.SortFunc(matched, func(a, b model.Product) int {
		if params.SortBy == model.ProductSortByName {
			if c := cmp.Compare(a.Name, b.Name); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := int64(len(matched))
	start := min(params.Offset, len(matched))
	end := min(start+params.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *fakeProductRepository) ListLowStockProducts(_ context.Context) ([]model.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.Product
	for _, p := range r.products {
		if p.MinStockLevel != nil && p.Quantity < *p.MinStockLevel {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *fakeProductRepository) UpdateProduct(_ context.Context, product model.Product) (model.Product, error) {
	if r.err != nil {
		return model.Product{}, r.err
	}
	if _, ok := r.products[product.ID]; !ok {
		return model.Product{}, repository.ErrNotFound
	}
	r.writes++
	r.products[product.ID] = product
	return product, nil
}

func (r *fakeProductRepository) UpdateProductQuantity(_ context.Context, id int64, quantity int, updatedAt time.Time) (model.Product, error) {
	if r.err != nil {
		return model.Product{}, r.err
	}
	p, ok := r.products[id]
	if !ok {
		return model.Product{}, repository.ErrNotFound
	}
	r.writes++
	p.Quantity = quantity
	p.UpdatedAt = updatedAt
	r.products[id] = p
	return p, nil
}

func (r *fakeProductRepository) DeleteProduct(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	r.writes++
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepository) CountProducts(_ context.Context) (int64, error) {
	return int64(len(r.products)), r.err
}

func (r *fakeProductRepository) SumInventoryValue(_ context.Context) (float64, error) {
	var sum float64
	for _, p := range r.products {
		if p.Price != nil {
			sum += float64(p.Quantity) * *p.Price
		}
	}
	return sum, r.err
}

func (r *fakeProductRepository) GetMostExpensiveProduct(_ context.Context) (*model.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	var best *model.Product
	for _, p := range r.products {
		if best == nil ||
			(p.Price != nil && (best.Price == nil || *p.Price > *best.Price)) {
			best = &p
		}
	}
	return best, nil
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestService(repo *fakeProductRepository) (*productService, *fakeTransactor) {
	tx := &fakeTransactor{repo: repo}
	svc := NewProductService(tx, repo).(*productService)
	svc.now = func() time.Time { return fixedNow }
	return svc, tx
}

func defaultPage() model.PageRequest {
	return model.PageRequest{Page: 0, Size: 10, SortBy: model.ProductSortByName}
}

func TestProductService_CreateProduct(t *testing.T) {
	t.Run("Should assign an id to a fresh sku", func(t *testing.T) {
		repo := newFakeProductRepository()
		svc, tx := newTestService(repo)

		created, err := svc.CreateProduct(context.Background(), CreateProductParams{
			Sku: "A1", Name: "Widget", Quantity: 5, MinStockLevel: ptr.New(10),
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, "A1", created.Sku)
		assert.Equal(t, fixedNow, created.CreatedAt)
		assert.Equal(t, fixedNow, created.UpdatedAt)
		assert.Equal(t, 1, tx.txs)
	})

	t.Run("Should reject a duplicate sku", func(t *testing.T) {
		repo := newFakeProductRepository(model.Product{Sku: "A1", Name: "Widget"})
		svc, _ := newTestService(repo)

		_, err := svc.CreateProduct(context.Background(), CreateProductParams{Sku: "A1", Name: "Other"})

		assert.ErrorIs(t, err, apperr.DuplicateSkuErr)
		assert.Len(t, repo.products, 1)
		assert.Zero(t, repo.writes)
	})

	t.Run("Should propagate storage failures", func(t *testing.T) {
		repo := newFakeProductRepository()
		repo.err = errors.New("connection reset")
		svc, _ := newTestService(repo)

		_, err := svc.CreateProduct(context.Background(), CreateProductParams{Sku: "A1", Name: "Widget"})
		assert.ErrorIs(t, err, repo.err)
	})
}

func TestProductService_GetUpdateDeleteNotFound(t *testing.T) {
	repo := newFakeProductRepository(model.Product{Sku: "A1", Name: "Widget", Quantity: 3})
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 42)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	_, err = svc.UpdateProduct(ctx, 42, UpdateProductParams{Name: "x"})
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	_, err = svc.AdjustStock(ctx, 42, 1)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	err = svc.DeleteProduct(ctx, 42)
	assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

	assert.Zero(t, repo.writes)
	assert.Len(t, repo.products, 1)
}

func TestProductService_GetProduct(t *testing.T) {
	repo := newFakeProductRepository(model.Product{Sku: "A1", Name: "Widget"})
	svc, _ := newTestService(repo)

	found, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Name)
}

func TestProductService_UpdateProduct(t *testing.T) {
	t.Run("Should replace every field except sku", func(t *testing.T) {
		repo := newFakeProductRepository(model.Product{
			Sku: "A1", Name: "Widget", Category: ptr.New("Tools"), Quantity: 3,
			Price: ptr.New(1.0), MinStockLevel: ptr.New(2),
		})
		svc, _ := newTestService(repo)

		updated, err := svc.UpdateProduct(context.Background(), 1, UpdateProductParams{
			Name: "Gadget", Quantity: 9, Price: ptr.New(4.5),
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), updated.ID)
		assert.Equal(t, "A1", updated.Sku)
		assert.Equal(t, "Gadget", updated.Name)
		assert.Nil(t, updated.Category)
		assert.Nil(t, updated.MinStockLevel)
		assert.Equal(t, 9, updated.Quantity)
		assert.InDelta(t, 4.5, *updated.Price, 1e-9)
		assert.Equal(t, fixedNow, updated.UpdatedAt)
		assert.Equal(t, updated, repo.products[1])
	})
}

func TestProductService_AdjustStock(t *testing.T) {
	testCases := []struct {
		name        string
		quantity    int
		amount      int
		expected    int
		expectError error
	}{
		{name: "increase", quantity: 5, amount: 10, expected: 15},
		{name: "decrease", quantity: 5, amount: -5, expected: 0},
		{name: "zero", quantity: 5, amount: 0, expected: 5},
		{name: "below zero", quantity: 5, amount: -6, expected: 5, expectError: apperr.InvalidStockAdjustmentErr},
		{name: "above int32", quantity: 5, amount: math.MaxInt32, expected: 5, expectError: apperr.InvalidStockAdjustmentErr},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeProductRepository(model.Product{Sku: "A1", Name: "Widget", Quantity: tc.quantity})
			svc, _ := newTestService(repo)

			updated, err := svc.AdjustStock(context.Background(), 1, tc.amount)
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				assert.Equal(t, tc.expected, repo.products[1].Quantity)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, updated.Quantity)
			assert.Equal(t, tc.expected, repo.products[1].Quantity)
		})
	}
}

func TestProductService_DeleteProduct(t *testing.T) {
	repo := newFakeProductRepository(model.Product{Sku: "A1", Name: "Widget"})
	svc, _ := newTestService(repo)

	require.NoError(t, svc.DeleteProduct(context.Background(), 1))
	assert.Empty(t, repo.products)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), 1), apperr.ProductNotFoundErr)
}

func TestProductService_SearchProducts(t *testing.T) {
	repo := newFakeProductRepository(
		model.Product{Sku: "A1", Name: "Red Widget", Category: ptr.New("Tools")},
		model.Product{Sku: "A2", Name: "Blue widget", Category: ptr.New("Toys")},
		model.Product{Sku: "A3", Name: "Hammer", Category: ptr.New("Power Tools")},
		model.Product{Sku: "A4", Name: "Widget", Category: nil},
	)
	svc, _ := newTestService(repo)

	skus := func(page model.Page[model.Product]) []string {
		out := make([]string, 0, len(page.Items))
		for _, p := range page.Items {
			out = append(out, p.Sku)
		}
		return out
	}

	testCases := []struct {
		name     string
		nameArg  *string
		category *string
		expected []string
	}{
		{name: "both filters", nameArg: ptr.New("WIDGET"), category: ptr.New("tool"), expected: []string{"A1"}},
		{name: "name only", nameArg: ptr.New("widget"), expected: []string{"A2", "A1", "A4"}},
		{name: "category only", category: ptr.New("TOOLS"), expected: []string{"A3", "A1"}},
		{name: "no filters", expected: []string{"A2", "A3", "A1", "A4"}},
		{name: "blank filters are ignored", nameArg: ptr.New(" "), category: ptr.New(""), expected: []string{"A2", "A3", "A1", "A4"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.SearchProducts(context.Background(), SearchProductsParams{
				Name: tc.nameArg, Category: tc.category, Page: defaultPage(),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, skus(page))
			assert.Equal(t, int64(len(tc.expected)), page.Total)
		})
	}
}

func TestProductService_ListProducts(t *testing.T) {
	repo := newFakeProductRepository(
		model.Product{Sku: "A1", Name: "c"},
		model.Product{Sku: "A2", Name: "a"},
		model.Product{Sku: "A3", Name: "b"},
	)
	svc, _ := newTestService(repo)

	page, err := svc.ListProducts(context.Background(), model.PageRequest{Page: 1, Size: 2, SortBy: model.ProductSortByName})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].Name)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages())
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)
}

func TestProductService_LowStockScenario(t *testing.T) {
	repo := newFakeProductRepository()
	svc, _ := newTestService(repo)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductParams{
		Sku: "A1", Name: "Widget", Quantity: 5, MinStockLevel: ptr.New(10),
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductParams{Sku: "A2", Name: "Untracked", Quantity: 0})
	require.NoError(t, err)

	low, err := svc.ListLowStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, created.ID, low[0].ID)

	updated, err := svc.AdjustStock(ctx, created.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Quantity)

	low, err = svc.ListLowStockProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = svc.AdjustStock(ctx, created.ID, -100)
	assert.ErrorIs(t, err, apperr.InvalidStockAdjustmentErr)

	found, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, found.Quantity)
}

func TestProductService_GetStats(t *testing.T) {
	t.Run("Should report an empty inventory", func(t *testing.T) {
		svc, _ := newTestService(newFakeProductRepository())

		stats, err := svc.GetStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Stats{TotalItems: 0, TotalInventoryValue: 0, MostExpensiveProduct: nil}, stats)
	})

	t.Run("Should aggregate quantities and prices", func(t *testing.T) {
		svc, _ := newTestService(newFakeProductRepository(
			model.Product{Sku: "A1", Name: "Cheap", Quantity: 4, Price: ptr.New(2.5)},
			model.Product{Sku: "A2", Name: "Pricey", Quantity: 1, Price: ptr.New(100.0)},
			model.Product{Sku: "A3", Name: "Unpriced", Quantity: 50},
		))

		stats, err := svc.GetStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalItems)
		assert.InDelta(t, 110.0, stats.TotalInventoryValue, 1e-9)
		require.NotNil(t, stats.MostExpensiveProduct)
		assert.Equal(t, "Pricey", stats.MostExpensiveProduct.Name)
	})

	t.Run("Should propagate storage failures", func(t *testing.T) {
		repo := newFakeProductRepository()
		repo.err = errors.New("timeout")
		svc, _ := newTestService(repo)

		_, err := svc.GetStats(context.Background())
		assert.ErrorIs(t, err, repo.err)
	})
}
