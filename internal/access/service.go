package access

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voltaccess.org/internal/ids"
)

// ListResult pairs rows with the total matching count used for pagination.
// For allowed charge point listings the total counts distinct charge points,
// independent of how many whitelist paths reach them.
type ListResult[T any] struct {
	Total int `json:"total"`
	Rows  []T `json:"rows"`
}

// Service provides access-window resolution and whitelist administration.
// All whitelist operations are scoped to the caller's organization; records
// outside it behave as absent.
type Service struct {
	links      LinkStore
	whitelists WhitelistStore
	directory  DirectoryStore
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the access service.
func NewService(links LinkStore, whitelists WhitelistStore, directory DirectoryStore, opts ...ServiceOption) (*Service, error) {
	if links == nil || whitelists == nil || directory == nil {
		return nil, errors.New("access: link, whitelist and directory stores are required")
	}
	s := &Service{links: links, whitelists: whitelists, directory: directory, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AllowedChargePoints resolves the effective access windows of one user. The
// store pre-filters links to the user and to windows not yet fully expired at
// today's cutoff (inclusive); the engine merges the surviving paths per
// charge point.
func (s *Service) AllowedChargePoints(ctx context.Context, userID string, filter LinkFilter, page Page) (ListResult[AllowedChargePoint], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ListResult[AllowedChargePoint]{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	filter.UserID = userID
	filter.CutoffDate = Day(s.now())

	total, err := s.links.CountDistinctChargePoints(ctx, filter)
	if err != nil {
		return ListResult[AllowedChargePoint]{}, err
	}
	records, err := s.links.QueryLinks(ctx, filter, page)
	if err != nil {
		return ListResult[AllowedChargePoint]{}, err
	}
	return ListResult[AllowedChargePoint]{Total: total, Rows: ResolveWindows(records)}, nil
}

// WhitelistUpdate carries partial whitelist mutations. ClearExpiresAt wins
// over ExpiresAt when both are set.
type WhitelistUpdate struct {
	Label              *string
	PaidByOrganization *bool
	ExpiresAt          *time.Time
	ClearExpiresAt     bool
}

// CreateWhitelist creates a whitelist owned by organizationID. The label must
// be unique within the organization and the expiry, when given, must not
// precede today.
func (s *Service) CreateWhitelist(ctx context.Context, organizationID, label string, paidByOrganization bool, expiresAt *time.Time) (*Whitelist, error) {
	organizationID = strings.TrimSpace(organizationID)
	label = strings.TrimSpace(label)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}

	createdAt := Day(s.now())
	if expiresAt != nil {
		day := Day(*expiresAt)
		if day.Before(createdAt) {
			return nil, fmt.Errorf("%w: expires_at precedes created_at", ErrInvalidInput)
		}
		expiresAt = &day
	}

	if existing, err := s.whitelists.FindByLabel(ctx, organizationID, label); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: label %q already used in this organization", ErrConflict, label)
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	wl := &Whitelist{
		ID:                 ids.New(),
		OrganizationID:     organizationID,
		Label:              label,
		PaidByOrganization: paidByOrganization,
		CreatedAt:          createdAt,
		ExpiresAt:          expiresAt,
	}
	if err := s.whitelists.Create(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

// GetWhitelist loads a whitelist if it belongs to organizationID; whitelists
// of other tenants behave as absent. The returned row carries its current
// charge point count.
func (s *Service) GetWhitelist(ctx context.Context, organizationID, id string) (*Whitelist, error) {
	wl, err := s.whitelists.Find(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if wl.OrganizationID != organizationID {
		return nil, ErrNotFound
	}
	count, err := s.whitelists.ChargePointCount(ctx, wl.ID)
	if err != nil {
		return nil, err
	}
	wl.ChargePointCount = count
	return wl, nil
}

// UpdateWhitelist applies a partial update under tenant scope.
func (s *Service) UpdateWhitelist(ctx context.Context, organizationID, id string, upd WhitelistUpdate) (*Whitelist, error) {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if upd.Label != nil {
		label := strings.TrimSpace(*upd.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: label is required", ErrInvalidInput)
		}
		if existing, err := s.whitelists.FindByLabel(ctx, organizationID, label); err == nil && existing != nil && existing.ID != wl.ID {
			return nil, fmt.Errorf("%w: label %q already used in this organization", ErrConflict, label)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		wl.Label = label
	}
	if upd.PaidByOrganization != nil {
		wl.PaidByOrganization = *upd.PaidByOrganization
	}
	switch {
	case upd.ClearExpiresAt:
		wl.ExpiresAt = nil
	case upd.ExpiresAt != nil:
		day := Day(*upd.ExpiresAt)
		if day.Before(wl.CreatedAt) {
			return nil, fmt.Errorf("%w: expires_at precedes created_at", ErrInvalidInput)
		}
		wl.ExpiresAt = &day
	}

	if err := s.whitelists.Update(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

// DeleteWhitelist removes a whitelist and all of its links under tenant scope.
func (s *Service) DeleteWhitelist(ctx context.Context, organizationID, id string) (*Whitelist, error) {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}
	if err := s.whitelists.Delete(ctx, wl.ID); err != nil {
		return nil, err
	}
	return wl, nil
}

// ListWhitelists returns the organization's whitelists.
func (s *Service) ListWhitelists(ctx context.Context, organizationID string, filter WhitelistFilter, page Page) (ListResult[*Whitelist], error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return ListResult[*Whitelist]{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	filter.OrganizationID = organizationID
	rows, total, err := s.whitelists.List(ctx, filter, page)
	if err != nil {
		return ListResult[*Whitelist]{}, err
	}
	for _, wl := range rows {
		count, err := s.whitelists.ChargePointCount(ctx, wl.ID)
		if err != nil {
			return ListResult[*Whitelist]{}, err
		}
		wl.ChargePointCount = count
	}
	return ListResult[*Whitelist]{Total: total, Rows: rows}, nil
}

// ListEmployees returns the employee accounts of one organization.
func (s *Service) ListEmployees(ctx context.Context, organizationID string, filter EmployeeFilter, page Page) (ListResult[Employee], error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return ListResult[Employee]{}, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	filter.OrganizationID = organizationID
	rows, total, err := s.directory.ListEmployees(ctx, filter, page)
	if err != nil {
		return ListResult[Employee]{}, err
	}
	return ListResult[Employee]{Total: total, Rows: rows}, nil
}

// ChargePointStatistics counts the organization's charge points per status.
func (s *Service) ChargePointStatistics(ctx context.Context, organizationID string) ([]ChargePointStatistic, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("%w: organization_id is required", ErrInvalidInput)
	}
	return s.directory.ChargePointStatistics(ctx, organizationID)
}

// ListWhitelistUsers lists linked users (member=true) or the organization's
// remaining candidates (member=false).
func (s *Service) ListWhitelistUsers(ctx context.Context, organizationID, id string, member bool, page Page) (ListResult[MemberUser], error) {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return ListResult[MemberUser]{}, err
	}
	rows, total, err := s.whitelists.ListUsers(ctx, wl.ID, organizationID, member, page)
	if err != nil {
		return ListResult[MemberUser]{}, err
	}
	return ListResult[MemberUser]{Total: total, Rows: rows}, nil
}

// ListWhitelistChargePoints mirrors ListWhitelistUsers for charge points.
func (s *Service) ListWhitelistChargePoints(ctx context.Context, organizationID, id string, member bool, page Page) (ListResult[MemberChargePoint], error) {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return ListResult[MemberChargePoint]{}, err
	}
	rows, total, err := s.whitelists.ListChargePoints(ctx, wl.ID, organizationID, member, page)
	if err != nil {
		return ListResult[MemberChargePoint]{}, err
	}
	return ListResult[MemberChargePoint]{Total: total, Rows: rows}, nil
}

// AddUsers links the given users into the whitelist, all sharing the optional
// expiry. Existing links are overwritten rather than duplicated.
func (s *Service) AddUsers(ctx context.Context, organizationID, id string, userIDs []string, expiresAt *time.Time) error {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return err
	}
	createdAt := Day(s.now())
	if expiresAt != nil {
		day := Day(*expiresAt)
		if day.Before(createdAt) {
			return fmt.Errorf("%w: expires_at precedes created_at", ErrInvalidInput)
		}
		expiresAt = &day
	}
	for _, userID := range userIDs {
		userID = strings.TrimSpace(userID)
		if userID == "" {
			return fmt.Errorf("%w: user_id is required", ErrInvalidInput)
		}
		link := WhitelistUser{
			WhitelistID: wl.ID,
			UserID:      userID,
			CreatedAt:   createdAt,
			ExpiresAt:   expiresAt,
		}
		if err := s.whitelists.UpsertUserLink(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// RemoveUsers unlinks the given users; unknown links are ignored.
func (s *Service) RemoveUsers(ctx context.Context, organizationID, id string, userIDs []string) error {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := s.whitelists.RemoveUserLink(ctx, wl.ID, strings.TrimSpace(userID)); err != nil {
			return err
		}
	}
	return nil
}

// AddChargePoints links the given charge points into the whitelist.
func (s *Service) AddChargePoints(ctx context.Context, organizationID, id string, chargePointIDs []string) error {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return err
	}
	createdAt := Day(s.now())
	for _, cpID := range chargePointIDs {
		cpID = strings.TrimSpace(cpID)
		if cpID == "" {
			return fmt.Errorf("%w: charge_point_id is required", ErrInvalidInput)
		}
		link := WhitelistChargePoint{
			WhitelistID:   wl.ID,
			ChargePointID: cpID,
			CreatedAt:     createdAt,
		}
		if err := s.whitelists.UpsertChargePointLink(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

// RemoveChargePoints unlinks the given charge points; unknown links are
// ignored.
func (s *Service) RemoveChargePoints(ctx context.Context, organizationID, id string, chargePointIDs []string) error {
	wl, err := s.GetWhitelist(ctx, organizationID, id)
	if err != nil {
		return err
	}
	for _, cpID := range chargePointIDs {
		if err := s.whitelists.RemoveChargePointLink(ctx, wl.ID, strings.TrimSpace(cpID)); err != nil {
			return err
		}
	}
	return nil
}
