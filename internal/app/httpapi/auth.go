package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DeepakDhaka201/MetaBE/internal/app/services/admin"
)

type ctxKey int

const ctxPrincipalKey ctxKey = iota

// Claims carries the authenticated user and their capability scopes.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the given user and scopes.
func IssueToken(secret, userID string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// requireAuth parses the bearer token and stores the resulting principal in
// the request context. Capability checks stay in the services; this layer
// only establishes identity.
func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == "" || raw == header {
				writeError(w, http.StatusUnauthorized, errMissingToken)
				return
			}

			var claims Claims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, errInvalidToken)
				return
			}

			p := admin.Principal{UserID: claims.Subject, Scopes: claims.Scopes}
			ctx := context.WithValue(r.Context(), ctxPrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(ctx context.Context) (admin.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey).(admin.Principal)
	return p, ok
}
