package apicontract_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apicontract "github.com/MatheusCampagnolo/kargo/api-contract"
)

func TestLoad(t *testing.T) {
	doc, err := apicontract.Load(context.Background())
	require.NoError(t, err)

	operations := map[string][]string{
		"/api/products":            {http.MethodGet, http.MethodPost},
		"/api/products/search":     {http.MethodGet},
		"/api/products/low-stock":  {http.MethodGet},
		"/api/products/stats":      {http.MethodGet},
		"/api/products/{id}":       {http.MethodGet, http.MethodPut, http.MethodDelete},
		"/api/products/{id}/stock": {http.MethodPatch},
		"/healthz":                 {http.MethodGet},
	}

	for path, methods := range operations {
		item := doc.Paths.Find(path)
		require.NotNil(t, item, path)

		for _, method := range methods {
			assert.NotNil(t, item.GetOperation(method), "%s %s", method, path)
		}
	}
}
