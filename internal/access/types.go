package access

import "time"

// Whitelist is an organization-scoped authorization group binding users to
// charge points for a bounded or unbounded period. Label is unique within an
// organization; ExpiresAt, when set, is never before CreatedAt.
type Whitelist struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	Label              string     `json:"label"`
	PaidByOrganization bool       `json:"paid_by_organization"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          *time.Time `json:"expires_at"`

	// ChargePointCount is the number of linked charge points. Derived on
	// read, never persisted.
	ChargePointCount int `json:"cp_count"`
}

// WhitelistUser links one user into a whitelist. At most one link exists per
// (whitelist, user) pair.
type WhitelistUser struct {
	WhitelistID string     `json:"whitelist_id"`
	UserID      string     `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// WhitelistChargePoint links one charge point into a whitelist.
type WhitelistChargePoint struct {
	WhitelistID   string    `json:"whitelist_id"`
	ChargePointID string    `json:"charge_point_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChargePoint is a charging device owned by an organization.
type ChargePoint struct {
	ID             string `json:"-"`
	Reference      string `json:"reference"`
	OrganizationID string `json:"-"`
	Organization   string `json:"organization"`
	Address        string `json:"address"`
	ZipCode        string `json:"zip_code"`
	City           string `json:"city"`
	StatusCode     string `json:"status_code"`
	StatusLabel    string `json:"status_label"`
}

// Employee is one row of the organization employee listing.
type Employee struct {
	ID     string   `json:"id"`
	Email  string   `json:"email"`
	Status string   `json:"status"`
	Roles  []string `json:"roles"`
}

// ChargePointStatistic counts an organization's charge points in one status.
type ChargePointStatistic struct {
	StatusCode  string `json:"status_code"`
	StatusLabel string `json:"status_label"`
	Count       int    `json:"cp_count"`
}

// LinkRecord is one flat join tuple returned by the store: the path from a
// user through a whitelist to a charge point.
type LinkRecord struct {
	UserLink        WhitelistUser
	Whitelist       Whitelist
	ChargePointLink WhitelistChargePoint
	ChargePoint     ChargePoint
}

// AccessWindow is the effective, merged period during which a user may use a
// charge point. A nil Expiry means the window is unbounded. Derived on
// demand, never persisted.
type AccessWindow struct {
	Start              time.Time  `json:"created_at"`
	Expiry             *time.Time `json:"expires_at"`
	PaidByOrganization bool       `json:"paid_by_organization"`
}

// AllowedChargePoint is one row of the allowed charge point listing: the
// charge point's descriptive fields plus its resolved access window.
type AllowedChargePoint struct {
	ChargePoint
	Access AccessWindow `json:"access"`
}

// Day truncates t to UTC midnight; whitelist dates carry day precision.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
