package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// OwnerIDHeader carries the caller identity set by the upstream gateway.
	OwnerIDHeader = "X-Owner-ID"
	// OwnerRoleHeader carries the caller role; "admin" unlocks platform scope.
	OwnerRoleHeader = "X-Owner-Role"

	roleAdmin = "admin"
)

const identityContextKey contextKey = "identity"

// Identity is the caller as asserted by the gateway.
type Identity struct {
	OwnerID *uuid.UUID
	Admin   bool
}

// Identify reads the identity headers into the request context. A malformed
// owner id is rejected outright rather than treated as anonymous.
func Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id Identity

		if raw := strings.TrimSpace(r.Header.Get(OwnerIDHeader)); raw != "" {
			owner, err := uuid.Parse(raw)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "malformed owner id", nil)
				return
			}
			id.OwnerID = &owner
		}
		id.Admin = strings.EqualFold(strings.TrimSpace(r.Header.Get(OwnerRoleHeader)), roleAdmin)

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// GetIdentity returns the caller identity; anonymous when absent.
func GetIdentity(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey).(Identity)
	return id
}

// OwnerID returns the caller's owner id, if any.
func OwnerID(ctx context.Context) (uuid.UUID, bool) {
	id := GetIdentity(ctx)
	if id.OwnerID == nil {
		return uuid.Nil, false
	}
	return *id.OwnerID, true
}

// RequireOwner writes 401 and returns false when the caller is anonymous.
func RequireOwner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	owner, ok := OwnerID(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "owner identity required", nil)
	}
	return owner, ok
}

// RequireAdmin writes 403 and returns false unless the caller is an admin.
func RequireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if !GetIdentity(r.Context()).Admin {
		WriteError(w, http.StatusForbidden, "forbidden", "admin role required", nil)
		return false
	}
	return true
}
