package auth

// Policy is the static authorization gate: a mapping from endpoint name to
// the set of role names permitted to call it. Endpoints register their roles
// once at startup; the check itself is pure. "anonymous" must be listed
// explicitly for an endpoint to accept unauthenticated callers.
type Policy struct {
	endpoints map[string]map[string]struct{}
}

// NewPolicy returns an empty gate.
func NewPolicy() *Policy {
	return &Policy{endpoints: make(map[string]map[string]struct{})}
}

// Allow registers the permitted roles for endpoint, replacing any previous
// registration.
func (p *Policy) Allow(endpoint string, roles ...string) *Policy {
	set := make(map[string]struct{}, len(roles))
	for _, role := range dedupeRoles(roles) {
		set[role] = struct{}{}
	}
	p.endpoints[endpoint] = set
	return p
}

// Authorize permits the identity iff the intersection of its effective roles
// and the endpoint's registered roles is non-empty. The returned error keeps
// the two denial reasons apart: ErrUnauthenticated when an anonymous caller
// hits an endpoint that does not list "anonymous" (401), ErrForbidden when an
// authenticated caller lacks every permitted role (403). Unregistered
// endpoints deny everything.
func (p *Policy) Authorize(identity Identity, endpoint string) error {
	allowed, ok := p.endpoints[endpoint]
	if !ok {
		if identity.IsAnonymous() {
			return ErrUnauthenticated
		}
		return ErrForbidden
	}
	for _, role := range identity.Roles() {
		if _, ok := allowed[role]; ok {
			return nil
		}
	}
	if identity.IsAnonymous() {
		return ErrUnauthenticated
	}
	return ErrForbidden
}
