package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-page-studio/internal/tenancy"
)

const businessHeader = "X-Business-Id"

// requireBusinessID enforces the tenancy header for editor requests.
func requireBusinessID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		businessID := strings.TrimSpace(r.Header.Get(businessHeader))
		if businessID == "" {
			http.Error(w, `{"error": "missing X-Business-Id"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithBusinessID(r.Context(), businessID)))
	})
}

// businessFromURL takes the tenant from the {businessID} path segment on operator routes.
func businessFromURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		businessID := strings.TrimSpace(chi.URLParam(r, "businessID"))
		if businessID == "" {
			http.Error(w, `{"error": "missing businessID"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithBusinessID(r.Context(), businessID)))
	})
}

// limitMutations applies limiter to every method except GET/HEAD/OPTIONS.
func limitMutations(limiter func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
