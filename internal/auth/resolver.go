package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Resolver is the authentication dispatcher: it classifies the Authorization
// header, runs the matching verifier and yields the request identity. It is
// invoked once per request; the result is carried in the request context for
// the remainder of handling.
type Resolver struct {
	users  UserStore
	tokens *TokenManager
}

// NewResolver constructs a Resolver over the given user lookup and token
// manager.
func NewResolver(users UserStore, tokens *TokenManager) (*Resolver, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	return &Resolver{users: users, tokens: tokens}, nil
}

// Tokens exposes the token lifecycle manager for login/logout handlers.
func (r *Resolver) Tokens() *TokenManager { return r.tokens }

// Resolve turns the raw Authorization header into an Identity. A missing or
// unrecognized header resolves to the anonymous identity with a nil error;
// failed Basic or Bearer verification returns an error from the
// ErrInvalidCredentials / ErrInvalidToken / ErrTokenExpired family.
func (r *Resolver) Resolve(ctx context.Context, header string) (Identity, error) {
	scheme, payload := ClassifyAuthorization(header)
	switch scheme {
	case SchemeBasic:
		return r.verifyBasic(ctx, payload)
	case SchemeBearer:
		return r.verifyBearer(ctx, payload)
	default:
		return AnonymousIdentity(), nil
	}
}

// VerifyBasic checks an email/password pair against the user store and
// returns the authenticated identity.
func (r *Resolver) VerifyBasic(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}
	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}
	if user.Status != userStatusActive {
		return Identity{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Identity{}, ErrInvalidCredentials
	}
	return AuthenticatedIdentity(user), nil
}

func (r *Resolver) verifyBasic(ctx context.Context, payload string) (Identity, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: malformed basic payload", ErrInvalidCredentials)
	}
	email, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return Identity{}, fmt.Errorf("%w: malformed basic payload", ErrInvalidCredentials)
	}
	return r.VerifyBasic(ctx, email, password)
}

func (r *Resolver) verifyBearer(ctx context.Context, token string) (Identity, error) {
	claims, err := r.tokens.Decode(token)
	if err != nil {
		// keep the decode category (expired vs invalid) in the chain
		return Identity{}, err
	}
	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, err
	}
	if user.Status != userStatusActive {
		return Identity{}, ErrInvalidCredentials
	}
	return AuthenticatedIdentity(user), nil
}
