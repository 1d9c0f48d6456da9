package http

import (
	"net/http"

	"github.com/MKhiriev/go-clinic-auth/internal/utils"
)

// withRequestMeta stores the caller attributes that audit entries record.
// It runs after chi's RealIP so the client address is the forwarded one.
func withRequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := utils.WithRequestMeta(r.Context(), utils.RequestMetaFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
