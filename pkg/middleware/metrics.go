package middleware

import (
	"net/http"
	"strconv"

	"github.com/opslens/contextgraph/pkg/metrics"
)

// RequestMetrics returns middleware that counts requests per method, route
// pattern and status. The route label is resolved from the mux's registered
// pattern, not the raw path, to keep label cardinality bounded.
func RequestMetrics(m *metrics.Registry, mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			_, route := mux.Handler(r)
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		})
	}
}
