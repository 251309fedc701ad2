package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"voltaccess.org/internal/access"
	"voltaccess.org/internal/auth"
)

type createWhitelistRequest struct {
	Label              string     `json:"label"`
	PaidByOrganization bool       `json:"paid_by_organization"`
	ExpiresAt          *time.Time `json:"expires_at"`
}

type updateWhitelistRequest struct {
	Label              *string    `json:"label"`
	PaidByOrganization *bool      `json:"paid_by_organization"`
	ExpiresAt          *time.Time `json:"expires_at"`
	ClearExpiresAt     bool       `json:"clear_expires_at"`
}

type userLinksRequest struct {
	UserIDs   []string   `json:"user_ids"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type chargePointLinksRequest struct {
	ChargePointIDs []string `json:"charge_point_ids"`
}

// handleWhitelists serves the collection: list and create.
func (a *API) handleWhitelists(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAccess(w, r, epWhitelists) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		a.listWhitelists(w, r, identity)
	case http.MethodPost:
		a.createWhitelist(w, r, identity)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleWhitelistResource routes /v1/whitelists/{id} and the membership
// subresources {id}/users and {id}/charge-points.
func (a *API) handleWhitelistResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/whitelists/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		a.whitelistByID(w, r, id)
	case len(parts) == 2 && parts[1] == "users":
		a.whitelistUsers(w, r, id)
	case len(parts) == 2 && parts[1] == "charge-points":
		a.whitelistChargePoints(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) listWhitelists(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := access.WhitelistFilter{
		Label: strings.TrimSpace(r.URL.Query().Get("label")),
	}
	result, err := a.access.ListWhitelists(r.Context(), identity.OrganizationID(), filter, page)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) createWhitelist(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req createWhitelistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	wl, err := a.access.CreateWhitelist(r.Context(), identity.OrganizationID(), req.Label, req.PaidByOrganization, req.ExpiresAt)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	a.audit(r.Context(), "whitelist.create", map[string]any{
		"whitelist_id": wl.ID,
		"label":        wl.Label,
	})
	w.Header().Set("Location", "/v1/whitelists/"+wl.ID)
	writeJSON(w, http.StatusCreated, wl)
}

func (a *API) whitelistByID(w http.ResponseWriter, r *http.Request, id string) {
	if !a.ensureAccess(w, r, epWhitelistResource) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	orgID := identity.OrganizationID()

	switch r.Method {
	case http.MethodGet:
		wl, err := a.access.GetWhitelist(r.Context(), orgID, id)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wl)
	case http.MethodPut:
		var req updateWhitelistRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		wl, err := a.access.UpdateWhitelist(r.Context(), orgID, id, access.WhitelistUpdate{
			Label:              req.Label,
			PaidByOrganization: req.PaidByOrganization,
			ExpiresAt:          req.ExpiresAt,
			ClearExpiresAt:     req.ClearExpiresAt,
		})
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.update", map[string]any{
			"whitelist_id": wl.ID,
		})
		writeJSON(w, http.StatusOK, wl)
	case http.MethodDelete:
		wl, err := a.access.DeleteWhitelist(r.Context(), orgID, id)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.delete", map[string]any{
			"whitelist_id": wl.ID,
			"label":        wl.Label,
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) whitelistUsers(w http.ResponseWriter, r *http.Request, id string) {
	if !a.ensureAccess(w, r, epWhitelistUsers) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	orgID := identity.OrganizationID()

	switch r.Method {
	case http.MethodGet:
		page, member, err := membershipQuery(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		result, err := a.access.ListWhitelistUsers(r.Context(), orgID, id, member, page)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodPost:
		var req userLinksRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.UserIDs) == 0 {
			writeError(w, r, http.StatusBadRequest, "user_ids are required")
			return
		}
		if err := a.access.AddUsers(r.Context(), orgID, id, req.UserIDs, req.ExpiresAt); err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.users.add", map[string]any{
			"whitelist_id": id,
			"count":        strconv.Itoa(len(req.UserIDs)),
		})
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		var req userLinksRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.UserIDs) == 0 {
			writeError(w, r, http.StatusBadRequest, "user_ids are required")
			return
		}
		if err := a.access.RemoveUsers(r.Context(), orgID, id, req.UserIDs); err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.users.remove", map[string]any{
			"whitelist_id": id,
			"count":        strconv.Itoa(len(req.UserIDs)),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) whitelistChargePoints(w http.ResponseWriter, r *http.Request, id string) {
	if !a.ensureAccess(w, r, epWhitelistChargePoints) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	orgID := identity.OrganizationID()

	switch r.Method {
	case http.MethodGet:
		page, member, err := membershipQuery(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		result, err := a.access.ListWhitelistChargePoints(r.Context(), orgID, id, member, page)
		if err != nil {
			handleAccessError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodPost:
		var req chargePointLinksRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.ChargePointIDs) == 0 {
			writeError(w, r, http.StatusBadRequest, "charge_point_ids are required")
			return
		}
		if err := a.access.AddChargePoints(r.Context(), orgID, id, req.ChargePointIDs); err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.charge_points.add", map[string]any{
			"whitelist_id": id,
			"count":        strconv.Itoa(len(req.ChargePointIDs)),
		})
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		var req chargePointLinksRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.ChargePointIDs) == 0 {
			writeError(w, r, http.StatusBadRequest, "charge_point_ids are required")
			return
		}
		if err := a.access.RemoveChargePoints(r.Context(), orgID, id, req.ChargePointIDs); err != nil {
			handleAccessError(w, r, err)
			return
		}
		a.audit(r.Context(), "whitelist.charge_points.remove", map[string]any{
			"whitelist_id": id,
			"count":        strconv.Itoa(len(req.ChargePointIDs)),
		})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// membershipQuery reads pagination plus the member flag: member=true (the
// default) lists linked rows, member=false the remaining candidates.
func membershipQuery(r *http.Request) (access.Page, bool, error) {
	page, err := pageFromQuery(r)
	if err != nil {
		return access.Page{}, false, err
	}
	member := true
	if raw := strings.TrimSpace(r.URL.Query().Get("member")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return access.Page{}, false, errors.New("member must be a boolean")
		}
		member = v
	}
	return page, member, nil
}
