package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/internal/model"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
)

// ErrNotFound is returned when no product matches the requested id.
var ErrNotFound = errors.New("product not found")

const (
	uniqueViolationCode = "23505"
	skuConstraintName   = "products_sku_key"
)

const productColumns = `id, sku, name, category, quantity, price, min_stock_level, created_at, updated_at`

type ListProductsParams struct {
	// Name and Category are case-insensitive substring filters; nil means no filter.
	Name     *string
	Category *string
	SortBy   model.ProductSortField
	Limit    int
	Offset   int
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	CreateProduct(ctx context.Context, product model.Product) (model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	// GetProductForUpdate locks the row until the surrounding transaction ends.
	GetProductForUpdate(ctx context.Context, id int64) (model.Product, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsBySku(ctx context.Context, sku string) (bool, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, int64, error)
	ListLowStockProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, product model.Product) (model.Product, error)
	UpdateProductQuantity(ctx context.Context, id int64, quantity int, updatedAt time.Time) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CountProducts(ctx context.Context) (int64, error)
	SumInventoryValue(ctx context.Context) (float64, error)
	// GetMostExpensiveProduct returns nil when there are no products.
	GetMostExpensiveProduct(ctx context.Context) (*model.Product, error)
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args, err := productArgs(product)
	if err != nil {
		return model.Product{}, err
	}
	args["created_at"] = product.CreatedAt

	created, err := r.queryProduct(ctx, `
		INSERT INTO products (sku, name, category, quantity, price, min_stock_level, created_at, updated_at)
		VALUES (@sku, @name, @category, @quantity, @price, @min_stock_level, @created_at, @updated_at)
		RETURNING `+productColumns, args)
	if err != nil {
		if isSkuViolation(err) {
			return model.Product{}, apperr.DuplicateSku(product.Sku).WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}

	return created, nil
}

func (r productRepository) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	product, err := r.queryProduct(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (r productRepository) GetProductForUpdate(ctx context.Context, id int64) (model.Product, error) {
	product, err := r.queryProduct(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = @id
		FOR UPDATE`, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.Product{}, fmt.Errorf("get product for update: %w", err)
	}

	return product, nil
}

func (r productRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists product by id: %w", err)
	}

	return exists, nil
}

func (r productRepository) ExistsBySku(ctx context.Context, sku string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = @sku)`,
		pgx.NamedArgs{"sku": sku}).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists product by sku: %w", err)
	}

	return exists, nil
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, int64, error) {
	where, args := productFilter(params.Name, params.Category)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args["limit"] = params.Limit
	args["offset"] = params.Offset

	products, err := r.queryProducts(ctx, fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s
		LIMIT @limit OFFSET @offset`, productColumns, where, orderBy(params.SortBy)), args)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

func (r productRepository) ListLowStockProducts(ctx context.Context) ([]model.Product, error) {
	products, err := r.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE min_stock_level IS NOT NULL
		  AND quantity < min_stock_level
		ORDER BY id`, pgx.NamedArgs{})
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}

	return products, nil
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args, err := productArgs(product)
	if err != nil {
		return model.Product{}, err
	}
	args["id"] = product.ID

	updated, err := r.queryProduct(ctx, `
		UPDATE products
		SET name            = @name,
		    category        = @category,
		    quantity        = @quantity,
		    price           = @price,
		    min_stock_level = @min_stock_level,
		    updated_at      = @updated_at
		WHERE id = @id
		RETURNING `+productColumns, args)
	if err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	return updated, nil
}

func (r productRepository) UpdateProductQuantity(ctx context.Context, id int64, quantity int, updatedAt time.Time) (model.Product, error) {
	q, err := toInt32("quantity", quantity)
	if err != nil {
		return model.Product{}, err
	}

	updated, err := r.queryProduct(ctx, `
		UPDATE products
		SET quantity   = @quantity,
		    updated_at = @updated_at
		WHERE id = @id
		RETURNING `+productColumns, pgx.NamedArgs{
		"id":         id,
		"quantity":   q,
		"updated_at": updatedAt,
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("update product quantity: %w", err)
	}

	return updated, nil
}

func (r productRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete product: %w", ErrNotFound)
	}

	return nil
}

func (r productRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}

	return count, nil
}

func (r productRepository) SumInventoryValue(ctx context.Context) (float64, error) {
	var sum pgtype.Numeric
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(quantity * price), 0) FROM products`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum inventory value: %w", err)
	}

	value, err := sum.Float64Value()
	if err != nil {
		return 0, fmt.Errorf("convert inventory value to float64: %w", err)
	}

	return value.Float64, nil
}

func (r productRepository) GetMostExpensiveProduct(ctx context.Context) (*model.Product, error) {
	product, err := r.queryProduct(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY price DESC NULLS LAST, id
		LIMIT 1`, pgx.NamedArgs{})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get most expensive product: %w", err)
	}

	return &product, nil
}

func (r productRepository) queryProduct(ctx context.Context, sql string, args pgx.NamedArgs) (model.Product, error) {
	rows, err := r.db.Query(ctx, sql, args)
	if err != nil {
		return model.Product{}, err
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, err
	}

	return productRowToModelProduct(row)
}

func (r productRepository) queryProducts(ctx context.Context, sql string, args pgx.NamedArgs) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	productRows, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(productRows))
	for _, row := range productRows {
		product, err := productRowToModelProduct(row)
		if err != nil {
			return nil, fmt.Errorf("convert product row to model product: %w", err)
		}
		products = append(products, product)
	}

	return products, nil
}

type productRow struct {
	ID            int64          `db:"id"`
	Sku           string         `db:"sku"`
	Name          string         `db:"name"`
	Category      *string        `db:"category"`
	Quantity      int32          `db:"quantity"`
	Price         pgtype.Numeric `db:"price"`
	MinStockLevel *int32         `db:"min_stock_level"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func productRowToModelProduct(row productRow) (model.Product, error) {
	product := model.Product{
		ID:        row.ID,
		Sku:       row.Sku,
		Name:      row.Name,
		Category:  row.Category,
		Quantity:  int(row.Quantity),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	if row.Price.Valid {
		price, err := row.Price.Float64Value()
		if err != nil {
			return model.Product{}, fmt.Errorf("convert price to float64: %w", err)
		}
		product.Price = &price.Float64
	}

	if row.MinStockLevel != nil {
		level := int(*row.MinStockLevel)
		product.MinStockLevel = &level
	}

	return product, nil
}

// productArgs binds the mutable columns shared by insert and update.
func productArgs(product model.Product) (pgx.NamedArgs, error) {
	var price pgtype.Numeric
	if product.Price != nil {
		if err := price.Scan(strconv.FormatFloat(*product.Price, 'f', -1, 64)); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
	}

	quantity, err := toInt32("quantity", product.Quantity)
	if err != nil {
		return nil, err
	}

	var minStockLevel *int32
	if product.MinStockLevel != nil {
		level, err := toInt32("min stock level", *product.MinStockLevel)
		if err != nil {
			return nil, err
		}
		minStockLevel = &level
	}

	return pgx.NamedArgs{
		"sku":             product.Sku,
		"name":            product.Name,
		"category":        product.Category,
		"quantity":        quantity,
		"price":           price,
		"min_stock_level": minStockLevel,
		"updated_at":      product.UpdatedAt,
	}, nil
}

func toInt32(field string, v int) (int32, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("%s out of range: %d", field, v)
	}
	//nolint:gosec
	return int32(v), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// productFilter builds the WHERE clause for the optional name and category
// filters. Both present means both must match.
func productFilter(name, category *string) (string, pgx.NamedArgs) {
	args := pgx.NamedArgs{}

	switch {
	case name != nil && category != nil:
		args["name"] = containsPattern(*name)
		args["category"] = containsPattern(*category)
		return "WHERE name ILIKE @name AND category ILIKE @category", args
	case name != nil:
		args["name"] = containsPattern(*name)
		return "WHERE name ILIKE @name", args
	case category != nil:
		args["category"] = containsPattern(*category)
		return "WHERE category ILIKE @category", args
	default:
		return "", args
	}
}

var sortColumns = map[model.ProductSortField]string{
	model.ProductSortByID:            "id",
	model.ProductSortBySku:           "sku",
	model.ProductSortByName:          "name",
	model.ProductSortByCategory:      "category",
	model.ProductSortByQuantity:      "quantity",
	model.ProductSortByPrice:         "price",
	model.ProductSortByMinStockLevel: "min_stock_level",
	model.ProductSortByCreatedAt:     "created_at",
	model.ProductSortByUpdatedAt:     "updated_at",
}

// orderBy maps a sort field to a whitelisted column, with id as tie-breaker.
func orderBy(field model.ProductSortField) string {
	column, ok := sortColumns[field]
	if !ok {
		column = sortColumns[model.ProductSortByName]
	}
	if column == "id" {
		return column
	}
	return column + ", id"
}

func isSkuViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolationCode &&
		pgErr.ConstraintName == skuConstraintName
}
