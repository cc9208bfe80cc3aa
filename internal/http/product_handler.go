package http

import (
	"fmt"
	"net/http"

	"github.com/MatheusCampagnolo/kargo/internal/service"
	"github.com/MatheusCampagnolo/kargo/pkg/ptr"
	"github.com/MatheusCampagnolo/kargo/pkg/validator"
)

type productHandler struct {
	productSvc service.ProductService
	validator  validator.Validator
}

func newProductHandler(productSvc service.ProductService, v validator.Validator) *productHandler {
	return &productHandler{
		productSvc: productSvc,
		validator:  v,
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	q, err := h.bindPageQuery(r)
	if err != nil {
		return err
	}

	page, err := h.productSvc.ListProducts(r.Context(), q.PageRequest())
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductPageResponse(page))
	return nil
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var req createProductRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return err
	}

	params := service.CreateProductParams{
		Sku:           req.Sku,
		Name:          req.Name,
		Category:      req.Category,
		Quantity:      ptr.ValueOrZero(req.Quantity),
		Price:         req.Price,
		MinStockLevel: req.MinStockLevel,
	}
	product, err := h.productSvc.CreateProduct(r.Context(), params)
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
	return nil
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
	return nil
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req updateProductRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return err
	}

	params := service.UpdateProductParams{
		Name:          req.Name,
		Category:      req.Category,
		Quantity:      ptr.ValueOrZero(req.Quantity),
		Price:         req.Price,
		MinStockLevel: req.MinStockLevel,
	}
	product, err := h.productSvc.UpdateProduct(r.Context(), id, params)
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
	return nil
}

func (h *productHandler) AdjustStock(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	var req adjustStockRequest
	if err := h.decodeJSON(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.AdjustStock(r.Context(), id, *req.Amount)
	if err != nil {
		return fmt.Errorf("product service adjust stock: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
	return nil
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}

	if err := h.productSvc.DeleteProduct(r.Context(), id); err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *productHandler) SearchProducts(w http.ResponseWriter, r *http.Request) error {
	q, err := h.bindSearchQuery(r)
	if err != nil {
		return err
	}

	page, err := h.productSvc.SearchProducts(r.Context(), service.SearchProductsParams{
		Name:     q.Name,
		Category: q.Category,
		Page:     q.PageRequest(),
	})
	if err != nil {
		return fmt.Errorf("product service search products: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductPageResponse(page))
	return nil
}

func (h *productHandler) ListLowStockProducts(w http.ResponseWriter, r *http.Request) error {
	products, err := h.productSvc.ListLowStockProducts(r.Context())
	if err != nil {
		return fmt.Errorf("product service list low stock products: %w", err)
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
	return nil
}

func (h *productHandler) GetStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.productSvc.GetStats(r.Context())
	if err != nil {
		return fmt.Errorf("product service get stats: %w", err)
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
	return nil
}
