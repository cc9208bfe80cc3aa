package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MatheusCampagnolo/kargo/internal/model"
	"github.com/MatheusCampagnolo/kargo/internal/service"
)

type productResponse struct {
	ID            int64     `json:"id"`
	Sku           string    `json:"sku"`
	Name          string    `json:"name"`
	Category      *string   `json:"category"`
	Quantity      int       `json:"quantity"`
	Price         *float64  `json:"price"`
	MinStockLevel *int      `json:"minStockLevel"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type productPageResponse struct {
	Content       []productResponse `json:"content"`
	Page          int               `json:"page"`
	Size          int               `json:"size"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
}

type statsResponse struct {
	TotalItems           int64            `json:"totalItems"`
	TotalInventoryValue  float64          `json:"totalInventoryValue"`
	MostExpensiveProduct *productResponse `json:"mostExpensiveProduct"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Sku:           p.Sku,
		Name:          p.Name,
		Category:      p.Category,
		Quantity:      p.Quantity,
		Price:         p.Price,
		MinStockLevel: p.MinStockLevel,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductResponses(products []model.Product) []productResponse {
	items := make([]productResponse, 0, len(products))
	for _, p := range products {
		items = append(items, toProductResponse(p))
	}
	return items
}

func toProductPageResponse(page model.Page[model.Product]) productPageResponse {
	return productPageResponse{
		Content:       toProductResponses(page.Items),
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.Total,
		TotalPages:    page.TotalPages(),
	}
}

func toStatsResponse(stats service.Stats) statsResponse {
	res := statsResponse{
		TotalItems:          stats.TotalItems,
		TotalInventoryValue: stats.TotalInventoryValue,
	}
	if stats.MostExpensiveProduct != nil {
		p := toProductResponse(*stats.MostExpensiveProduct)
		res.MostExpensiveProduct = &p
	}
	return res
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}
