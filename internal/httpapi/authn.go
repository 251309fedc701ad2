package httpapi

import (
	"errors"
	"net/http"

	"voltaccess.org/internal/auth"
)

const authHeader = "Authorization"

var publicPaths = []string{
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
}

// withAuth resolves the request credentials into an identity before routing.
// Requests without an Authorization header continue as anonymous; the policy
// check in each handler decides whether that is enough.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.resolver == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(authHeader)
		identity, err := a.resolver.Resolve(r.Context(), header)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, authErrorMessage(err))
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), identity)
		if scheme, payload := auth.ClassifyAuthorization(header); scheme == auth.SchemeBearer {
			ctx = auth.ContextWithToken(ctx, payload)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureAccess runs the policy check for one endpoint and writes the 401/403
// response itself. Returns false when the caller must stop.
func (a *API) ensureAccess(w http.ResponseWriter, r *http.Request, endpoint string) bool {
	identity, _ := auth.IdentityFromContext(r.Context())
	err := a.policy.Authorize(identity, endpoint)
	switch {
	case err == nil:
		return true
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "insufficient role")
	default:
		writeError(w, r, http.StatusInternalServerError, "authorization error")
	}
	return false
}

// authErrorMessage keeps the credential failure category visible to the
// client without leaking anything else.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid token"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid credentials"
	default:
		return "authentication failed"
	}
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
