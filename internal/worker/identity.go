package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/thebtf/decision-fitness/internal/journal"
)

// ownerKey is the context key for the resolved journal owner.
type ownerKey struct{}

// Claims are the bearer token claims. Subject carries the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Plan string `json:"plan,omitempty"`
}

var errUnauthorized = errors.New("unauthorized")

// Identity resolves the journal owner of a request.
//
// With a secret configured every request must carry an HS256 bearer token
// whose subject is the user ID. Without one the worker runs single-tenant:
// X-User-ID and X-User-Plan are trusted as sent, and a missing user ID
// selects the anonymous journal.
type Identity struct {
	secret []byte
}

// NewIdentity creates an Identity. An empty secret enables header mode.
func NewIdentity(secret string) *Identity {
	return &Identity{secret: []byte(secret)}
}

// TokenMode reports whether bearer tokens are required.
func (id *Identity) TokenMode() bool {
	return len(id.secret) > 0
}

// Resolve extracts the owner from r.
func (id *Identity) Resolve(r *http.Request) (journal.Owner, error) {
	if !id.TokenMode() {
		owner := journal.Owner{
			UserID: strings.TrimSpace(r.Header.Get("X-User-ID")),
			Plan:   strings.TrimSpace(r.Header.Get("X-User-Plan")),
		}
		if owner.UserID != "" {
			if err := ValidateUserID(owner.UserID); err != nil {
				return journal.Owner{}, fmt.Errorf("%w: %w", errUnauthorized, err)
			}
		}
		return owner, nil
	}

	bearer, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || bearer == "" {
		return journal.Owner{}, fmt.Errorf("%w: missing bearer token", errUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
		return id.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return journal.Owner{}, fmt.Errorf("%w: %w", errUnauthorized, err)
	}
	if !token.Valid {
		return journal.Owner{}, fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	if err := ValidateUserID(claims.Subject); err != nil {
		return journal.Owner{}, fmt.Errorf("%w: token subject: %w", errUnauthorized, err)
	}
	return journal.Owner{UserID: claims.Subject, Plan: claims.Plan}, nil
}

// Middleware rejects requests whose owner cannot be resolved and stores the
// owner in the request context.
func (id *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := id.Resolve(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// WithOwner returns a context carrying owner.
func WithOwner(ctx context.Context, owner journal.Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner stored by Identity.Middleware.
func OwnerFromContext(ctx context.Context) (journal.Owner, bool) {
	owner, ok := ctx.Value(ownerKey{}).(journal.Owner)
	return owner, ok
}
