package middleware

import (
	"context"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	UserID int64
	Role   enums.UserRole
}

type identityKey struct{}

// WithUser attaches the caller's identity to ctx.
func WithUser(ctx context.Context, userID int64, role enums.UserRole) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, Role: role})
}

// IdentityFromContext reports the caller, if Auth ran.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserIDFromContext returns 0 for anonymous requests.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
