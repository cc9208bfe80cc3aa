package apperr

import (
	"fmt"

	"github.com/MatheusCampagnolo/kargo/pkg/zerror"
)

const (
	ValidationErrorCode        = "VALIDATION_FAILED"
	ProductNotFoundCode        = "PRODUCT_NOT_FOUND"
	DuplicateSkuCode           = "DUPLICATE_SKU"
	InvalidStockAdjustmentCode = "INVALID_STOCK_ADJUSTMENT"
)

var (
	ValidationErr             = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	ProductNotFoundErr        = zerror.NewNotFound(ProductNotFoundCode, "product not found")
	DuplicateSkuErr           = zerror.NewBadRequest(DuplicateSkuCode, "product sku already exists")
	InvalidStockAdjustmentErr = zerror.NewBadRequest(InvalidStockAdjustmentCode, "insufficient stock, cannot reduce quantity below 0")
)

func ProductNotFound(id int64) zerror.ZError {
	return ProductNotFoundErr.WithMsg(fmt.Sprintf("product not found with id: %d", id))
}

func DuplicateSku(sku string) zerror.ZError {
	return DuplicateSkuErr.WithMsg(fmt.Sprintf("product with sku %s already exists", sku))
}
