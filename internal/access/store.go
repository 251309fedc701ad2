package access

import (
	"context"
	"time"
)

// LinkFilter narrows the link tuples considered for access-window resolution.
// UserID and CutoffDate are set by the service; the rest come from request
// query parameters. CutoffDate excludes links whose expiry lies strictly
// before it (inclusive comparison on the cutoff day itself).
type LinkFilter struct {
	UserID             string
	CutoffDate         time.Time
	PaidByOrganization *bool
	Address            string
	ZipCode            string
	City               string
	StatusCode         string
}

// Page holds pagination and ordering for list queries.
type Page struct {
	Limit  int
	Offset int
	Sort   string
	Order  string
}

// WhitelistFilter narrows whitelist listings.
type WhitelistFilter struct {
	OrganizationID string
	Label          string
}

// EmployeeFilter narrows organization employee listings. OrganizationID is
// set by the service; the rest come from request query parameters.
type EmployeeFilter struct {
	OrganizationID string
	Email          string
	Status         string
}

// MemberUser is one row of a whitelist membership listing: the user joined
// with its link dates when linked.
type MemberUser struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MemberChargePoint is one row of a whitelist charge point listing.
type MemberChargePoint struct {
	ChargePoint
	LinkedAt *time.Time `json:"linked_at,omitempty"`
}

// LinkStore supplies the pre-filtered flat link tuples the resolution engine
// folds, plus the distinct charge point count used for pagination totals.
type LinkStore interface {
	QueryLinks(ctx context.Context, filter LinkFilter, page Page) ([]LinkRecord, error)
	CountDistinctChargePoints(ctx context.Context, filter LinkFilter) (int, error)
}

// DirectoryStore serves the administrator views over the organization's
// user accounts and charge point fleet.
type DirectoryStore interface {
	ListEmployees(ctx context.Context, filter EmployeeFilter, page Page) ([]Employee, int, error)
	ChargePointStatistics(ctx context.Context, organizationID string) ([]ChargePointStatistic, error)
}

// WhitelistStore persists whitelists and their membership links.
type WhitelistStore interface {
	Create(ctx context.Context, wl *Whitelist) error
	Find(ctx context.Context, id string) (*Whitelist, error)
	FindByLabel(ctx context.Context, organizationID, label string) (*Whitelist, error)
	Update(ctx context.Context, wl *Whitelist) error
	// Delete removes the whitelist and cascades over its links.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter WhitelistFilter, page Page) ([]*Whitelist, int, error)
	ChargePointCount(ctx context.Context, whitelistID string) (int, error)

	// Membership listings: member=true returns linked rows, member=false the
	// organization's remaining candidates.
	ListUsers(ctx context.Context, whitelistID, organizationID string, member bool, page Page) ([]MemberUser, int, error)
	ListChargePoints(ctx context.Context, whitelistID, organizationID string, member bool, page Page) ([]MemberChargePoint, int, error)

	UpsertUserLink(ctx context.Context, link WhitelistUser) error
	RemoveUserLink(ctx context.Context, whitelistID, userID string) error
	UpsertChargePointLink(ctx context.Context, link WhitelistChargePoint) error
	RemoveChargePointLink(ctx context.Context, whitelistID, chargePointID string) error
}
