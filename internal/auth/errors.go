package auth

import "errors"

var (
	// ErrInvalidCredentials covers bad Basic credentials and users that no
	// longer exist; callers map it to a generic 401 response.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken indicates a malformed or wrongly signed bearer token.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired is kept distinct from ErrInvalidToken so operators can
	// tell expiry-driven re-logins apart from tampering.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrUnauthenticated means the endpoint requires a signed-in caller.
	ErrUnauthenticated = errors.New("auth: authentication required")

	// ErrForbidden means the identity is valid but lacks a permitted role.
	ErrForbidden = errors.New("auth: insufficient rights")

	ErrNotFound = errors.New("auth: not found")
)
