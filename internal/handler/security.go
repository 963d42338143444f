package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/user"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "api_key"

type actorKey struct{}

// ActorFromContext extracts the authenticated user from the context.
func ActorFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(actorKey{}).(user.User)
	return u, ok
}

// Security authenticates API requests via HMAC-SHA256 hashed API keys and
// resolves them to storefront users.
type Security struct {
	users  user.Repository
	pepper []byte
}

// NewSecurity creates a Security layer with the given user repository and
// HMAC pepper.
func NewSecurity(users user.Repository, pepper []byte) *Security {
	return &Security{users: users, pepper: pepper}
}

// HashKey computes the hex-encoded HMAC-SHA256 of an API key. Exposed for
// the seeding tool so stored hashes match what authentication computes.
func (s *Security) HashKey(key string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// authenticate resolves the request's API key to a user. It computes the
// HMAC of the presented key, looks it up, and performs a constant-time
// comparison against the stored hash to prevent timing attacks.
func (s *Security) authenticate(r *http.Request) (user.User, bool) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		return user.User{}, false
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	u, storedHash, err := s.users.FindByKeyHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return user.User{}, false
	}

	storedBytes, err := hex.DecodeString(storedHash)
	if err != nil {
		return user.User{}, false
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return user.User{}, false
	}

	return *u, true
}

// Require wraps a handler so it only runs for authenticated users, with the
// actor stored in the request context.
func (s *Security) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.authenticate(r)
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, u)))
	})
}

// RequireAdmin is Require plus an admin role check.
func (s *Security) RequireAdmin(next http.HandlerFunc) http.Handler {
	return s.Require(func(w http.ResponseWriter, r *http.Request) {
		u, _ := ActorFromContext(r.Context())
		if !u.IsAdmin() {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}
