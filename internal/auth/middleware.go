package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

const (
	apiKeyHeader     = "X-Api-Key"
	apiKeyQueryParam = "api-key"
)

// Middleware rejects requests without a valid key unless the service is in
// open mode. Keys are read from the X-Api-Key header, a Bearer token, or the
// api-key query parameter (for EventSource clients).
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if name, ok := s.Verify(requestKey(r)); ok {
			ctx := context.WithValue(r.Context(), ctxKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", `Bearer realm="flipperd"`)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(&models.AppError{
			Code:    "UNAUTHORIZED",
			Message: "missing or invalid api key",
		})
	})
}

func requestKey(r *http.Request) string {
	if k := r.Header.Get(apiKeyHeader); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}
