package api

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/greenbasket/commerce-api/internal/domain/auth"
	"github.com/greenbasket/commerce-api/pkg/httpmiddleware"
)

// APIKeyAuth authenticates admin requests by computing the HMAC-SHA256 of the
// X-API-Key header, looking it up, and performing a constant-time comparison
// to prevent timing attacks.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			hexHash := auth.HashKey(key, pepper)
			info, err := apikeys.FindByHash(r.Context(), hexHash)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Compare in constant time even though the lookup already
			// succeeded; the stored hash could differ from what we computed
			// if the repository returns a stale or wrong row.
			computed, err := hex.DecodeString(hexHash)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
