package auth

import (
	"context"
	"strings"
)

// Identity is the resolved caller for the duration of one request. It is a
// tagged variant: either the anonymous sentinel or an authenticated user with
// a materialized role set. Construct it through AnonymousIdentity or
// AuthenticatedIdentity so downstream code cannot end up with a
// half-initialized value.
type Identity struct {
	anonymous bool
	user      *User
	roles     []string
}

// AnonymousIdentity returns the identity used when no credentials are present.
func AnonymousIdentity() Identity {
	return Identity{anonymous: true, roles: []string{RoleAnonymous}}
}

// AuthenticatedIdentity wraps a stored user. An empty role set degrades to
// {anonymous} so the gate never sees a user with zero roles.
func AuthenticatedIdentity(user *User) Identity {
	roles := dedupeRoles(user.Roles)
	if len(roles) == 0 {
		roles = []string{RoleAnonymous}
	}
	return Identity{user: user, roles: roles}
}

// IsAnonymous reports whether this identity carries no authenticated user.
func (id Identity) IsAnonymous() bool { return id.anonymous || id.user == nil }

// User returns the underlying user record, nil for anonymous identities.
func (id Identity) User() *User { return id.user }

// UserID returns the authenticated user id or "" for anonymous identities.
func (id Identity) UserID() string {
	if id.user == nil {
		return ""
	}
	return id.user.ID
}

// OrganizationID returns the tenant of the authenticated user, "" if anonymous.
func (id Identity) OrganizationID() string {
	if id.user == nil {
		return ""
	}
	return id.user.OrganizationID
}

// Roles returns the effective role set, never empty.
func (id Identity) Roles() []string {
	out := make([]string, len(id.roles))
	copy(out, id.roles)
	return out
}

// HasRole reports whether the effective role set contains role.
func (id Identity) HasRole(role string) bool {
	role = strings.TrimSpace(strings.ToLower(role))
	for _, r := range id.roles {
		if r == role {
			return true
		}
	}
	return false
}

func dedupeRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(roles))
	var normalized []string
	for _, role := range roles {
		role = strings.TrimSpace(strings.ToLower(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		normalized = append(normalized, role)
	}
	return normalized
}

type identityContextKey struct{}
type tokenContextKey struct{}

// ContextWithIdentity attaches the resolved identity to the request context.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity stored by the dispatcher. The
// second return is false when no resolution ran for this context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok {
		return Identity{}, false
	}
	return v, true
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
