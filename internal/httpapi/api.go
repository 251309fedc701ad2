package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"voltaccess.org/internal/access"
	"voltaccess.org/internal/auth"
	"voltaccess.org/internal/obs"
)

// Endpoint names registered in the authorization policy. Handlers check the
// caller's roles against these before touching the service layer.
const (
	epLogin                 = "/v1/auth/login"
	epLogout                = "/v1/auth/logout"
	epMe                    = "/v1/me"
	epAllowedChargePoints   = "/v1/charge-points/allowed"
	epChargePointStatistics = "/v1/charge-points/statistics"
	epEmployees             = "/v1/employees"
	epEmployeeInfo          = "/v1/employees/{email}"
	epWhitelists            = "/v1/whitelists"
	epWhitelistResource     = "/v1/whitelists/{id}"
	epWhitelistUsers        = "/v1/whitelists/{id}/users"
	epWhitelistChargePoints = "/v1/whitelists/{id}/charge-points"
	epEmployeeAllowed       = "/v1/employees/{email}/allowed-charge-points"
)

// DefaultPolicy is the static endpoint-to-roles table used unless the caller
// supplies a custom one. Unregistered endpoints deny everything.
func DefaultPolicy() *auth.Policy {
	return auth.NewPolicy().
		Allow(epLogin, auth.RoleAnonymous, auth.RoleEmployee, auth.RoleAdministrator).
		Allow(epLogout, auth.RoleEmployee, auth.RoleAdministrator).
		Allow(epMe, auth.RoleEmployee, auth.RoleAdministrator).
		Allow(epAllowedChargePoints, auth.RoleEmployee).
		Allow(epChargePointStatistics, auth.RoleAdministrator).
		Allow(epEmployees, auth.RoleAdministrator).
		Allow(epEmployeeInfo, auth.RoleAdministrator).
		Allow(epWhitelists, auth.RoleAdministrator).
		Allow(epWhitelistResource, auth.RoleAdministrator).
		Allow(epWhitelistUsers, auth.RoleAdministrator).
		Allow(epWhitelistChargePoints, auth.RoleAdministrator).
		Allow(epEmployeeAllowed, auth.RoleAdministrator)
}

// ReadyProbe checks the backing database on /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	resolver *auth.Resolver
	policy   *auth.Policy
	users    auth.UserStore
	access   *access.Service

	corsOrigins []string
	rateBurst   int
	ratePerSec  int
	maxBody     int64
}

// Option configures the API.
type Option func(*API)

// WithRateLimit overrides the per-IP token bucket parameters.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 {
			a.rateBurst = burst
		}
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
	}
}

// WithCORSOrigins sets the allowed cross-origin hosts.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) { a.corsOrigins = origins }
}

// WithPolicy replaces the default authorization table.
func WithPolicy(policy *auth.Policy) Option {
	return func(a *API) {
		if policy != nil {
			a.policy = policy
		}
	}
}

// WithMaxBodyBytes limits request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		if n > 0 {
			a.maxBody = n
		}
	}
}

func New(rp ReadyProbe, version string, resolver *auth.Resolver, users auth.UserStore, accessSvc *access.Service, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		resolver:   resolver,
		policy:     DefaultPolicy(),
		users:      users,
		access:     accessSvc,
		rateBurst:  20,
		ratePerSec: 10,
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/me", a.handleMe)

	// access
	a.mux.HandleFunc("/v1/charge-points/allowed", a.handleAllowedChargePoints)
	a.mux.HandleFunc("/v1/charge-points/statistics", a.handleChargePointStatistics)

	// administrator directory
	a.mux.HandleFunc("/v1/employees", a.handleEmployees)
	a.mux.HandleFunc("/v1/employees/", a.handleEmployeeResource)

	// whitelist administration
	a.mux.HandleFunc("/v1/whitelists", a.handleWhitelists)
	a.mux.HandleFunc("/v1/whitelists/", a.handleWhitelistResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wires the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBody)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "voltaccess-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "voltaccess-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
