package model

import "fmt"

// ProductSortField is a product attribute a listing can be ordered by.
type ProductSortField string

const (
	ProductSortByID            ProductSortField = "id"
	ProductSortBySku           ProductSortField = "sku"
	ProductSortByName          ProductSortField = "name"
	ProductSortByCategory      ProductSortField = "category"
	ProductSortByQuantity      ProductSortField = "quantity"
	ProductSortByPrice         ProductSortField = "price"
	ProductSortByMinStockLevel ProductSortField = "minStockLevel"
	ProductSortByCreatedAt     ProductSortField = "createdAt"
	ProductSortByUpdatedAt     ProductSortField = "updatedAt"
)

// ProductSortFields lists every accepted sort field.
var ProductSortFields = []ProductSortField{
	ProductSortByID,
	ProductSortBySku,
	ProductSortByName,
	ProductSortByCategory,
	ProductSortByQuantity,
	ProductSortByPrice,
	ProductSortByMinStockLevel,
	ProductSortByCreatedAt,
	ProductSortByUpdatedAt,
}

// Validate implements the enum contract used by request validation.
func (f ProductSortField) Validate() error {
	for _, field := range ProductSortFields {
		if f == field {
			return nil
		}
	}
	return fmt.Errorf("unknown product sort field: %q", string(f))
}

// PageRequest selects one page of an ordered listing. Page is zero based.
type PageRequest struct {
	Page   int
	Size   int
	SortBy ProductSortField
}

func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Page is a slice of a larger ordered result set.
type Page[T any] struct {
	Items []T
	Page  int
	Size  int
	Total int64
}

func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items: items,
		Page:  req.Page,
		Size:  req.Size,
		Total: total,
	}
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}
