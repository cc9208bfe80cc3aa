package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MatheusCampagnolo/kargo/internal/model"
)

func TestPage(t *testing.T) {
	req := model.PageRequest{Page: 2, Size: 10, SortBy: model.ProductSortByName}

	assert.Equal(t, 20, req.Offset())

	page := model.NewPage[model.Product](nil, req, 21)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.TotalPages())
	assert.Equal(t, 0, model.NewPage[int](nil, req, 0).TotalPages())
	assert.Equal(t, 0, model.Page[int]{Total: 5}.TotalPages())
}

func TestProductSortField(t *testing.T) {
	for _, f := range model.ProductSortFields {
		assert.NoError(t, f.Validate())
	}
	assert.Error(t, model.ProductSortField("password").Validate())
}
