package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"voltaccess.org/internal/access"
	"voltaccess.org/internal/auth"
)

// handleAllowedChargePoints lists the charge points the calling employee may
// use today, with the merged access window per charge point.
func (a *API) handleAllowedChargePoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epAllowedChargePoints) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	a.listAllowedChargePoints(w, r, identity.UserID())
}

// handleChargePointStatistics counts the organization's charge points per
// status for the administrator dashboard.
func (a *API) handleChargePointStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epChargePointStatistics) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	stats, err := a.access.ChargePointStatistics(r.Context(), identity.OrganizationID())
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleEmployees lists the employees of the administrator's organization.
func (a *API) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epEmployees) {
		return
	}
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	filter := access.EmployeeFilter{
		Email:  strings.TrimSpace(q.Get("email")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	result, err := a.access.ListEmployees(r.Context(), identity.OrganizationID(), filter, page)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleEmployeeResource routes /v1/employees/{email} and the per-employee
// charge point view {email}/allowed-charge-points.
func (a *API) handleEmployeeResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/employees/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	email := strings.ToLower(strings.TrimSpace(parts[0]))

	switch {
	case len(parts) == 1:
		a.employeeInfo(w, r, email)
	case len(parts) == 2 && parts[1] == "allowed-charge-points":
		a.employeeAllowedChargePoints(w, r, email)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// employeeInfo returns one employee profile for an administrator of the same
// organization.
func (a *API) employeeInfo(w http.ResponseWriter, r *http.Request, email string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epEmployeeInfo) {
		return
	}
	user, ok := a.lookupEmployee(w, r, email)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		ID:             user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
		Roles:          user.Roles,
		Status:         user.Status,
	})
}

// employeeAllowedChargePoints is an administrator's view of the charge points
// one employee in the same organization may use.
func (a *API) employeeAllowedChargePoints(w http.ResponseWriter, r *http.Request, email string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAccess(w, r, epEmployeeAllowed) {
		return
	}
	user, ok := a.lookupEmployee(w, r, email)
	if !ok {
		return
	}
	a.listAllowedChargePoints(w, r, user.ID)
}

// lookupEmployee resolves an email to a user of the caller's organization.
// Users of other organizations behave as absent.
func (a *API) lookupEmployee(w http.ResponseWriter, r *http.Request, email string) (*auth.User, bool) {
	identity, _ := auth.IdentityFromContext(r.Context())
	user, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return nil, false
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if user.OrganizationID != identity.OrganizationID() {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return nil, false
	}
	return user, true
}

func (a *API) listAllowedChargePoints(w http.ResponseWriter, r *http.Request, userID string) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	paid, err := parseBoolParam(q.Get("paid_by_organization"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	filter := access.LinkFilter{
		PaidByOrganization: paid,
		Address:            strings.TrimSpace(q.Get("address")),
		ZipCode:            strings.TrimSpace(q.Get("zip_code")),
		City:               strings.TrimSpace(q.Get("city")),
		StatusCode:         strings.TrimSpace(q.Get("status_code")),
	}

	result, err := a.access.AllowedChargePoints(r.Context(), userID, filter, page)
	if err != nil {
		handleAccessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
