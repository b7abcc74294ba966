package middleware

import (
	"net/http"
	"time"

	"github.com/ninekrua/pos-backend/pkg/metrics"
)

// Metrics records per-route request counts and latency. The chi route pattern
// keeps label cardinality bounded regardless of path parameters.
func Metrics(httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if httpMetrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(rec, r)

			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			httpMetrics.Observe(r.Method, routePattern(r), rec.status, time.Since(start))
		})
	}
}
