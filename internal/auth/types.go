package auth

import "time"

// Role names form a closed set; endpoints enumerate the ones they accept.
const (
	RoleAnonymous     = "anonymous"
	RoleEmployee      = "employee"
	RoleAdministrator = "administrator"
)

const (
	userStatusActive   = "active"
	userStatusDisabled = "disabled"
)

const (
	UserStatusActive   = userStatusActive
	UserStatusDisabled = userStatusDisabled
)

// Organization owns users, whitelists and charge points.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a portal account operating on behalf of an organization.
type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Roles          []string  `json:"roles"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
