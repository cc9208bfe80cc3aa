package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/internal/model"
)

const (
	defaultPage   = 0
	defaultSize   = 10
	defaultSortBy = model.ProductSortByName

	maxBodyBytes = 1 << 20 // 1 MB
)

type createProductRequest struct {
	Sku           string   `json:"sku" validate:"notblank,max=255"`
	Name          string   `json:"name" validate:"notblank,max=255"`
	Category      *string  `json:"category" validate:"omitempty,max=255"`
	Quantity      *int     `json:"quantity" validate:"omitempty,gte=0,lte=2147483647"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	MinStockLevel *int     `json:"minStockLevel" validate:"omitempty,gte=0,lte=2147483647"`
}

// updateProductRequest has no sku: the sku of a product never changes and a
// sku sent in the body is ignored.
type updateProductRequest struct {
	Name          string   `json:"name" validate:"notblank,max=255"`
	Category      *string  `json:"category" validate:"omitempty,max=255"`
	Quantity      *int     `json:"quantity" validate:"omitempty,gte=0,lte=2147483647"`
	Price         *float64 `json:"price" validate:"omitempty,gte=0"`
	MinStockLevel *int     `json:"minStockLevel" validate:"omitempty,gte=0,lte=2147483647"`
}

type adjustStockRequest struct {
	Amount *int `json:"amount" validate:"required,gte=-2147483647,lte=2147483647"`
}

type pageQuery struct {
	Page   int                    `query:"page" validate:"gte=0,lte=2000000"`
	Size   int                    `query:"size" validate:"gte=1,lte=1000"`
	SortBy model.ProductSortField `query:"sortBy" validate:"enum"`
}

func (q pageQuery) PageRequest() model.PageRequest {
	return model.PageRequest{Page: q.Page, Size: q.Size, SortBy: q.SortBy}
}

type searchQuery struct {
	Name     *string
	Category *string
	pageQuery
}

// decodeJSON reads the request body into dst and validates it.
func (h *productHandler) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.ValidationErr.WithMsg("request body is required").WrapParent(err)
		}
		return apperr.ValidationErr.WithMsg("malformed request body").WrapParent(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.ValidationErr.WithMsg("malformed request body").WrapParent(err)
	}

	if err := h.validator.Validate(dst); err != nil {
		return fmt.Errorf("validate request body: %w", err)
	}

	return nil
}

func (h *productHandler) bindPageQuery(r *http.Request) (pageQuery, error) {
	q := pageQuery{Page: defaultPage, Size: defaultSize, SortBy: defaultSortBy}
	values := r.URL.Query()

	if err := bindQuery(values, "page", &q.Page); err != nil {
		return pageQuery{}, err
	}
	if err := bindQuery(values, "size", &q.Size); err != nil {
		return pageQuery{}, err
	}
	if err := bindQuery(values, "sortBy", &q.SortBy); err != nil {
		return pageQuery{}, err
	}

	if err := h.validator.Validate(q); err != nil {
		return pageQuery{}, fmt.Errorf("validate query: %w", err)
	}

	return q, nil
}

func (h *productHandler) bindSearchQuery(r *http.Request) (searchQuery, error) {
	page, err := h.bindPageQuery(r)
	if err != nil {
		return searchQuery{}, err
	}

	q := searchQuery{pageQuery: page}
	values := r.URL.Query()

	if err := bindQuery(values, "name", &q.Name); err != nil {
		return searchQuery{}, err
	}
	if err := bindQuery(values, "category", &q.Category); err != nil {
		return searchQuery{}, err
	}

	return q, nil
}

func bindQuery(values url.Values, name string, dst any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, values, dst); err != nil {
		return apperr.ValidationErr.WithMsg(fmt.Sprintf("%s: invalid value", name)).WrapParent(err)
	}
	return nil
}

// pathID returns the positive product id of the request path.
func pathID(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return 0, apperr.ValidationErr.WithMsg("id: must be a positive integer").WrapParent(err)
	}
	if id <= 0 {
		return 0, apperr.ValidationErr.WithMsg("id: must be a positive integer")
	}

	return id, nil
}
