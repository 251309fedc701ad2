package httpapi

import (
	"net/http"
	"time"

	"voltaccess.org/internal/auth"
)

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	ID             string   `json:"id"`
	Email          string   `json:"email"`
	OrganizationID string   `json:"organization_id"`
	Roles          []string `json:"roles"`
	Status         string   `json:"status"`
}

// handleLogin exchanges Basic credentials for a bearer token. The resolver
// has already verified the credentials; repeated logins within the validity
// span return the same token.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureAccess(w, r, epLogin) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	if identity.IsAnonymous() {
		writeError(w, r, http.StatusUnauthorized, "basic credentials required")
		return
	}

	user := identity.User()
	token, err := a.resolver.Tokens().Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	claims, err := a.resolver.Tokens().Decode(token)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}

	a.audit(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	})
}

// handleLogout evicts the caller's cached token. The token itself stays
// structurally valid until expiry; the cache is the idempotent issuance
// boundary, so the next login mints a fresh one.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureAccess(w, r, epLogout) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	a.resolver.Tokens().Invalidate(identity.UserID())
	a.audit(r.Context(), "auth.logout", map[string]any{
		"user_id": identity.UserID(),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epMe) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	user := identity.User()
	writeJSON(w, http.StatusOK, meResponse{
		ID:             user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Roles:          identity.Roles(),
		Status:         user.Status,
	})
}
