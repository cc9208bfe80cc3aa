package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/internal/model"
	"github.com/MatheusCampagnolo/kargo/internal/repository"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
)

type CreateProductParams struct {
	Sku           string
	Name          string
	Category      *string
	Quantity      int
	Price         *float64
	MinStockLevel *int
}

// UpdateProductParams replaces every mutable field. The sku is not part of it
// and never changes after creation.
type UpdateProductParams struct {
	Name          string
	Category      *string
	Quantity      int
	Price         *float64
	MinStockLevel *int
}

type SearchProductsParams struct {
	// Name and Category are optional substring filters. Blank values are ignored.
	Name     *string
	Category *string
	Page     model.PageRequest
}

type Stats struct {
	TotalItems           int64
	TotalInventoryValue  float64
	MostExpensiveProduct *model.Product
}

type ProductService interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	ListProducts(ctx context.Context, page model.PageRequest) (model.Page[model.Product], error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (model.Product, error)
	// AdjustStock adds amount (which may be negative) to the product quantity.
	AdjustStock(ctx context.Context, id int64, amount int) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SearchProducts(ctx context.Context, params SearchProductsParams) (model.Page[model.Product], error)
	ListLowStockProducts(ctx context.Context) ([]model.Product, error)
	GetStats(ctx context.Context) (Stats, error)
}

type productService struct {
	db          db.Transactor
	productRepo repository.ProductRepository
	now         func() time.Time
}

func NewProductService(
	db db.Transactor,
	productRepo repository.ProductRepository,
) ProductService {
	return &productService{
		db:          db,
		productRepo: productRepo,
		now:         time.Now,
	}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	now := s.now()
	product := model.Product{
		Sku:           params.Sku,
		Name:          params.Name,
		Category:      params.Category,
		Quantity:      params.Quantity,
		Price:         params.Price,
		MinStockLevel: params.MinStockLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var created model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		exists, err := repo.ExistsBySku(ctx, product.Sku)
		if err != nil {
			return fmt.Errorf("product repository exists by sku: %w", err)
		}
		if exists {
			return apperr.DuplicateSku(product.Sku)
		}

		created, err = repo.CreateProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return created, nil
}

func (s *productService) ListProducts(ctx context.Context, page model.PageRequest) (model.Page[model.Product], error) {
	return s.listProducts(ctx, nil, nil, page)
}

func (s *productService) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	product, err := s.productRepo.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, notFoundOr(id, fmt.Errorf("product repository get product: %w", err))
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id int64, params UpdateProductParams) (model.Product, error) {
	var updated model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		product, err := repo.GetProductForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(id, fmt.Errorf("product repository get product for update: %w", err))
		}

		product.Name = params.Name
		product.Category = params.Category
		product.Price = params.Price
		product.MinStockLevel = params.MinStockLevel
		product.Quantity = params.Quantity
		product.UpdatedAt = s.now()

		updated, err = repo.UpdateProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return updated, nil
}

func (s *productService) AdjustStock(ctx context.Context, id int64, amount int) (model.Product, error) {
	var updated model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		product, err := repo.GetProductForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(id, fmt.Errorf("product repository get product for update: %w", err))
		}

		newQuantity := product.Quantity + amount
		if newQuantity < 0 {
			return apperr.InvalidStockAdjustmentErr
		}
		if newQuantity > math.MaxInt32 {
			return apperr.InvalidStockAdjustmentErr.WithMsg(
				fmt.Sprintf("stock quantity cannot exceed %d", math.MaxInt32))
		}

		updated, err = repo.UpdateProductQuantity(ctx, id, newQuantity, s.now())
		if err != nil {
			return fmt.Errorf("product repository update product quantity: %w", err)
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		exists, err := repo.ExistsByID(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository exists by id: %w", err)
		}
		if !exists {
			return apperr.ProductNotFound(id)
		}

		if err := repo.DeleteProduct(ctx, id); err != nil {
			return notFoundOr(id, fmt.Errorf("product repository delete product: %w", err))
		}

		return nil
	}); err != nil {
		return fmt.Errorf("db with tx: %w", err)
	}

	return nil
}

func (s *productService) SearchProducts(ctx context.Context, params SearchProductsParams) (model.Page[model.Product], error) {
	return s.listProducts(ctx, nonBlank(params.Name), nonBlank(params.Category), params.Page)
}

func (s *productService) ListLowStockProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.ListLowStockProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("product repository list low stock products: %w", err)
	}

	return products, nil
}

// GetStats runs the three aggregate reads concurrently. They are not read
// from one snapshot.
func (s *productService) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := s.productRepo.CountProducts(gCtx)
		if err != nil {
			return fmt.Errorf("product repository count products: %w", err)
		}
		stats.TotalItems = count
		return nil
	})

	g.Go(func() error {
		value, err := s.productRepo.SumInventoryValue(gCtx)
		if err != nil {
			return fmt.Errorf("product repository sum inventory value: %w", err)
		}
		stats.TotalInventoryValue = value
		return nil
	})

	g.Go(func() error {
		mostExpensive, err := s.productRepo.GetMostExpensiveProduct(gCtx)
		if err != nil {
			return fmt.Errorf("product repository get most expensive product: %w", err)
		}
		stats.MostExpensiveProduct = mostExpensive
		return nil
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func (s *productService) listProducts(ctx context.Context, name, category *string, page model.PageRequest) (model.Page[model.Product], error) {
	products, total, err := s.productRepo.ListProducts(ctx, repository.ListProductsParams{
		Name:     name,
		Category: category,
		SortBy:   page.SortBy,
		Limit:    page.Size,
		Offset:   page.Offset(),
	})
	if err != nil {
		return model.Page[model.Product]{}, fmt.Errorf("product repository list products: %w", err)
	}

	return model.NewPage(products, page, total), nil
}

// notFoundOr translates a repository miss into the not found error for id.
func notFoundOr(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ProductNotFound(id).WrapParent(err)
	}
	return err
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
