package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"

	"github.com/edumanager/edumanager/core/logger"
)

type contextKey string

const contextKeyIdentity contextKey = "_identity_"

// ContextWithIdentity returns a new context carrying the authenticated
// identity.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, identity)
}

// IdentityFromContext retrieves the authenticated identity from the
// context, or the empty string.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(contextKeyIdentity).(string)
	return identity
}

// identityCache remembers the identity for verified tokens so repeated
// requests with the same bearer skip signature checks. Entries carry the
// token's expiry; a hit past that time counts as a miss, the checks do
// not outlive the token itself.
type identityCache struct {
	mutex sync.RWMutex
	cache map[string]cachedIdentity
}

type cachedIdentity struct {
	identity  string
	expiresAt time.Time
}

func (c *identityCache) read(token string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.cache[token]
	if !ok {
		return "", false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.identity, true
}

func (c *identityCache) write(token, identity string, expiresAt time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.cache) > 1024 { // crude bound on memory
		c.cache = map[string]cachedIdentity{}
	}
	c.cache[token] = cachedIdentity{identity: identity, expiresAt: expiresAt}
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// NewMiddleware returns a router middleware validating HS256 bearer
// tokens signed with secret.
//
// Tokens are accepted as "Authorization: Bearer" header. A request
// without a token passes through unauthenticated; a request with an
// invalid token is rejected with http.StatusUnauthorized. The
// authenticated email is stored in the request context and added to
// the request logger.
func NewMiddleware(secret string) mux.MiddlewareFunc {
	cache := &identityCache{cache: map[string]cachedIdentity{}}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := IdentityFromContext(r.Context()); len(identity) > 0 {
				h.ServeHTTP(w, r) // already authenticated
				return
			}

			tokenString := ""
			bearer := r.Header.Get("Authorization")
			if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
				tokenString = bearer[7:]
			}
			if len(tokenString) == 0 {
				h.ServeHTTP(w, r) // no token no auth, moving on
				return
			}

			identity, ok := cache.read(tokenString)
			if !ok {
				parsed := claims{}
				token, err := jwt.ParseWithClaims(tokenString, &parsed, keyFunc)
				if err != nil || !token.Valid {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				identity = parsed.Email
				if identity == "" {
					identity = parsed.Subject
				}
				expiresAt := time.Time{}
				if parsed.ExpiresAt != nil {
					expiresAt = parsed.ExpiresAt.Time
				}
				cache.write(tokenString, identity, expiresAt)
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, identity)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
