// Package authmw holds the claim set attached to authenticated requests and
// the middleware chain applied in front of protected handlers:
// authenticate, then role gate. Ownership checks stay inside handlers; the
// middleware supplies identity, not fine-grained authorization.
package authmw

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"shop/pkg/common/httpx"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the decoded, verified payload of a bearer credential. It is a
// capability token for the lifetime of one request and is never persisted.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// CanAccess reports whether the claim may act on resources owned by userID.
func (c *Claims) CanAccess(userID int64) bool {
	return c.UserID == userID || c.IsAdmin()
}

// Verifier checks an opaque bearer token and returns its claim set.
// Implementations must be idempotent and side-effect free.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

type contextKey struct{}

func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

const bearerPrefix = "Bearer "

// Authenticate verifies the Authorization header and attaches the claim set
// to the request context.
func Authenticate(verifier Verifier) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.RespondError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				httpx.RespondError(w, http.StatusUnauthorized, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := verifier.Verify(r.Context(), strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				httpx.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects authenticated requests whose claim carries a different
// role. It must run after Authenticate.
func RequireRole(role string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Role != role {
				httpx.RespondError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
