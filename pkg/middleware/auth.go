package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/f3nation/f3map/pkg/composables"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves the acting user of a request. Session handling lives
// outside this service.
type Authenticator interface {
	Authenticate(r *http.Request) (int64, error)
}

// HeaderAuthenticator trusts a user id header set by the auth proxy.
type HeaderAuthenticator struct {
	Header string
}

func (a HeaderAuthenticator) Authenticate(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(a.Header))
	if raw == "" {
		return 0, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// Authenticate stores the acting user in the context. When required is false,
// anonymous requests pass through without a user.
func Authenticate(auth Authenticator, required bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.Authenticate(r)
			if err != nil {
				if !required {
					next.ServeHTTP(w, r)
					return
				}
				requestID, _ := composables.UseRequestID(r.Context())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    "UNAUTHENTICATED",
					"message": "authentication required",
					"meta":    map[string]string{"request_id": requestID},
				})
				return
			}
			ctx := composables.WithUserID(r.Context(), userID)
			ctx = composables.WithLogger(ctx, composables.UseLogger(ctx).WithField("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
