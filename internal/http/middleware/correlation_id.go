package middleware

import (
	"net/http"

	"github.com/MatheusCampagnolo/kargo/pkg/correlationid"
)

const maxCorrelationIDLength = 128

// CorrelationID reuses the id sent by the client or generates a new one, stores
// it in the request context and echoes it in the response header.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" || len(id) > maxCorrelationIDLength {
				id = correlationid.New()
			}

			w.Header().Set(correlationid.Header, id)
			ctx := correlationid.NewContext(r.Context(), id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
