package access

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeLinkStore struct {
	lastFilter LinkFilter
	records    []LinkRecord
	count      int
}

func (s *fakeLinkStore) QueryLinks(_ context.Context, filter LinkFilter, _ Page) ([]LinkRecord, error) {
	s.lastFilter = filter
	return s.records, nil
}

func (s *fakeLinkStore) CountDistinctChargePoints(_ context.Context, filter LinkFilter) (int, error) {
	s.lastFilter = filter
	return s.count, nil
}

type fakeWhitelistStore struct {
	byID      map[string]*Whitelist
	userLinks map[string]WhitelistUser
	cpLinks   map[string]WhitelistChargePoint
}

func newFakeWhitelistStore(wls ...*Whitelist) *fakeWhitelistStore {
	s := &fakeWhitelistStore{
		byID:      map[string]*Whitelist{},
		userLinks: map[string]WhitelistUser{},
		cpLinks:   map[string]WhitelistChargePoint{},
	}
	for _, wl := range wls {
		s.byID[wl.ID] = wl
	}
	return s
}

func (s *fakeWhitelistStore) Create(_ context.Context, wl *Whitelist) error {
	s.byID[wl.ID] = wl
	return nil
}

func (s *fakeWhitelistStore) Find(_ context.Context, id string) (*Whitelist, error) {
	if wl, ok := s.byID[id]; ok {
		copied := *wl
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *fakeWhitelistStore) FindByLabel(_ context.Context, orgID, label string) (*Whitelist, error) {
	for _, wl := range s.byID {
		if wl.OrganizationID == orgID && wl.Label == label {
			copied := *wl
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeWhitelistStore) Update(_ context.Context, wl *Whitelist) error {
	if _, ok := s.byID[wl.ID]; !ok {
		return ErrNotFound
	}
	copied := *wl
	s.byID[wl.ID] = &copied
	return nil
}

func (s *fakeWhitelistStore) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *fakeWhitelistStore) List(_ context.Context, filter WhitelistFilter, _ Page) ([]*Whitelist, int, error) {
	var rows []*Whitelist
	for _, wl := range s.byID {
		if wl.OrganizationID == filter.OrganizationID {
			rows = append(rows, wl)
		}
	}
	return rows, len(rows), nil
}

func (s *fakeWhitelistStore) ChargePointCount(_ context.Context, whitelistID string) (int, error) {
	n := 0
	for key := range s.cpLinks {
		if strings.HasPrefix(key, whitelistID+"/") {
			n++
		}
	}
	return n, nil
}

func (s *fakeWhitelistStore) ListUsers(_ context.Context, _, _ string, _ bool, _ Page) ([]MemberUser, int, error) {
	return nil, 0, nil
}

func (s *fakeWhitelistStore) ListChargePoints(_ context.Context, _, _ string, _ bool, _ Page) ([]MemberChargePoint, int, error) {
	return nil, 0, nil
}

func (s *fakeWhitelistStore) UpsertUserLink(_ context.Context, link WhitelistUser) error {
	s.userLinks[link.WhitelistID+"/"+link.UserID] = link
	return nil
}

func (s *fakeWhitelistStore) RemoveUserLink(_ context.Context, whitelistID, userID string) error {
	delete(s.userLinks, whitelistID+"/"+userID)
	return nil
}

func (s *fakeWhitelistStore) UpsertChargePointLink(_ context.Context, link WhitelistChargePoint) error {
	s.cpLinks[link.WhitelistID+"/"+link.ChargePointID] = link
	return nil
}

func (s *fakeWhitelistStore) RemoveChargePointLink(_ context.Context, whitelistID, chargePointID string) error {
	delete(s.cpLinks, whitelistID+"/"+chargePointID)
	return nil
}

type fakeDirectory struct {
	lastFilter EmployeeFilter
	employees  []Employee
	stats      []ChargePointStatistic
}

func (s *fakeDirectory) ListEmployees(_ context.Context, filter EmployeeFilter, _ Page) ([]Employee, int, error) {
	s.lastFilter = filter
	return s.employees, len(s.employees), nil
}

func (s *fakeDirectory) ChargePointStatistics(_ context.Context, _ string) ([]ChargePointStatistic, error) {
	return s.stats, nil
}

func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 15, 4, 5, 0, time.UTC) }
}

func newTestService(t *testing.T, links *fakeLinkStore, wls *fakeWhitelistStore) *Service {
	t.Helper()
	return newDirectoryService(t, links, wls, &fakeDirectory{})
}

func newDirectoryService(t *testing.T, links *fakeLinkStore, wls *fakeWhitelistStore, dir *fakeDirectory) *Service {
	t.Helper()
	svc, err := NewService(links, wls, dir, WithClock(fixedClock(2024, 3, 15)))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAllowedChargePointsSetsCutoffToToday(t *testing.T) {
	links := &fakeLinkStore{count: 1, records: []LinkRecord{{
		Whitelist:       Whitelist{ID: "wl", CreatedAt: day(2024, 1, 1)},
		UserLink:        WhitelistUser{CreatedAt: day(2024, 1, 1)},
		ChargePointLink: WhitelistChargePoint{CreatedAt: day(2024, 1, 1)},
		ChargePoint:     ChargePoint{Reference: "CP-1"},
	}}}
	svc := newTestService(t, links, newFakeWhitelistStore())

	result, err := svc.AllowedChargePoints(context.Background(), "user-1", LinkFilter{}, Page{Limit: 10})
	if err != nil {
		t.Fatalf("AllowedChargePoints: %v", err)
	}
	if result.Total != 1 || len(result.Rows) != 1 {
		t.Fatalf("unexpected result: total=%d rows=%d", result.Total, len(result.Rows))
	}
	if links.lastFilter.UserID != "user-1" {
		t.Fatalf("filter user_id = %q", links.lastFilter.UserID)
	}
	if !links.lastFilter.CutoffDate.Equal(day(2024, 3, 15)) {
		t.Fatalf("cutoff = %v, want today at day precision", links.lastFilter.CutoffDate)
	}
}

func TestAllowedChargePointsRequiresUser(t *testing.T) {
	svc := newTestService(t, &fakeLinkStore{}, newFakeWhitelistStore())
	if _, err := svc.AllowedChargePoints(context.Background(), " ", LinkFilter{}, Page{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateWhitelistRejectsDuplicateLabel(t *testing.T) {
	store := newFakeWhitelistStore(&Whitelist{ID: "wl-1", OrganizationID: "org-1", Label: "fleet"})
	svc := newTestService(t, &fakeLinkStore{}, store)

	if _, err := svc.CreateWhitelist(context.Background(), "org-1", "fleet", false, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// the same label in another organization is fine
	if _, err := svc.CreateWhitelist(context.Background(), "org-2", "fleet", false, nil); err != nil {
		t.Fatalf("CreateWhitelist in second org: %v", err)
	}
}

func TestCreateWhitelistValidatesExpiry(t *testing.T) {
	svc := newTestService(t, &fakeLinkStore{}, newFakeWhitelistStore())

	past := day(2024, 3, 1)
	if _, err := svc.CreateWhitelist(context.Background(), "org-1", "old", false, &past); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for expiry before created_at, got %v", err)
	}

	future := day(2024, 6, 1)
	wl, err := svc.CreateWhitelist(context.Background(), "org-1", "ok", true, &future)
	if err != nil {
		t.Fatalf("CreateWhitelist: %v", err)
	}
	if wl.ID == "" {
		t.Fatalf("expected generated id")
	}
	if !wl.CreatedAt.Equal(day(2024, 3, 15)) {
		t.Fatalf("created_at = %v, want today", wl.CreatedAt)
	}
}

func TestWhitelistTenantScope(t *testing.T) {
	store := newFakeWhitelistStore(&Whitelist{ID: "wl-1", OrganizationID: "org-1", Label: "fleet", CreatedAt: day(2024, 1, 1)})
	svc := newTestService(t, &fakeLinkStore{}, store)

	if _, err := svc.GetWhitelist(context.Background(), "org-2", "wl-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
	if _, err := svc.UpdateWhitelist(context.Background(), "org-2", "wl-1", WhitelistUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if err := svc.AddUsers(context.Background(), "org-2", "wl-1", []string{"u1"}, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on add users, got %v", err)
	}
}

func TestUpdateWhitelistClearsExpiry(t *testing.T) {
	exp := day(2024, 6, 1)
	store := newFakeWhitelistStore(&Whitelist{
		ID: "wl-1", OrganizationID: "org-1", Label: "fleet",
		CreatedAt: day(2024, 1, 1), ExpiresAt: &exp,
	})
	svc := newTestService(t, &fakeLinkStore{}, store)

	wl, err := svc.UpdateWhitelist(context.Background(), "org-1", "wl-1", WhitelistUpdate{ClearExpiresAt: true})
	if err != nil {
		t.Fatalf("UpdateWhitelist: %v", err)
	}
	if wl.ExpiresAt != nil {
		t.Fatalf("expected cleared expiry, got %v", wl.ExpiresAt)
	}
}

func TestAddAndRemoveMembershipLinks(t *testing.T) {
	store := newFakeWhitelistStore(&Whitelist{ID: "wl-1", OrganizationID: "org-1", Label: "fleet", CreatedAt: day(2024, 1, 1)})
	svc := newTestService(t, &fakeLinkStore{}, store)

	exp := day(2024, 9, 1)
	if err := svc.AddUsers(context.Background(), "org-1", "wl-1", []string{"u1", "u2"}, &exp); err != nil {
		t.Fatalf("AddUsers: %v", err)
	}
	if len(store.userLinks) != 2 {
		t.Fatalf("expected two user links, got %d", len(store.userLinks))
	}
	link := store.userLinks["wl-1/u1"]
	if link.ExpiresAt == nil || !link.ExpiresAt.Equal(exp) {
		t.Fatalf("link expiry = %v, want %v", link.ExpiresAt, exp)
	}
	if !link.CreatedAt.Equal(day(2024, 3, 15)) {
		t.Fatalf("link created_at = %v, want today", link.CreatedAt)
	}

	if err := svc.RemoveUsers(context.Background(), "org-1", "wl-1", []string{"u1"}); err != nil {
		t.Fatalf("RemoveUsers: %v", err)
	}
	if len(store.userLinks) != 1 {
		t.Fatalf("expected one user link after removal, got %d", len(store.userLinks))
	}

	if err := svc.AddChargePoints(context.Background(), "org-1", "wl-1", []string{"cp1"}); err != nil {
		t.Fatalf("AddChargePoints: %v", err)
	}
	if len(store.cpLinks) != 1 {
		t.Fatalf("expected one charge point link, got %d", len(store.cpLinks))
	}
}

func TestWhitelistCarriesChargePointCount(t *testing.T) {
	store := newFakeWhitelistStore(
		&Whitelist{ID: "wl-1", OrganizationID: "org-1", Label: "fleet", CreatedAt: day(2024, 1, 1)},
		&Whitelist{ID: "wl-2", OrganizationID: "org-1", Label: "visitors", CreatedAt: day(2024, 1, 1)},
	)
	svc := newTestService(t, &fakeLinkStore{}, store)

	if err := svc.AddChargePoints(context.Background(), "org-1", "wl-1", []string{"cp1", "cp2"}); err != nil {
		t.Fatalf("AddChargePoints: %v", err)
	}

	wl, err := svc.GetWhitelist(context.Background(), "org-1", "wl-1")
	if err != nil {
		t.Fatalf("GetWhitelist: %v", err)
	}
	if wl.ChargePointCount != 2 {
		t.Fatalf("cp_count = %d, want 2", wl.ChargePointCount)
	}

	result, err := svc.ListWhitelists(context.Background(), "org-1", WhitelistFilter{}, Page{})
	if err != nil {
		t.Fatalf("ListWhitelists: %v", err)
	}
	counts := map[string]int{}
	for _, row := range result.Rows {
		counts[row.ID] = row.ChargePointCount
	}
	if counts["wl-1"] != 2 || counts["wl-2"] != 0 {
		t.Fatalf("counts = %v, want wl-1:2 wl-2:0", counts)
	}
}

func TestListEmployeesScopesOrganization(t *testing.T) {
	dir := &fakeDirectory{employees: []Employee{
		{ID: "u1", Email: "worker@acme.org", Status: "active", Roles: []string{"employee"}},
	}}
	svc := newDirectoryService(t, &fakeLinkStore{}, newFakeWhitelistStore(), dir)

	result, err := svc.ListEmployees(context.Background(), "org-1", EmployeeFilter{Email: "worker"}, Page{Limit: 10})
	if err != nil {
		t.Fatalf("ListEmployees: %v", err)
	}
	if result.Total != 1 || len(result.Rows) != 1 {
		t.Fatalf("unexpected result: total=%d rows=%d", result.Total, len(result.Rows))
	}
	if dir.lastFilter.OrganizationID != "org-1" {
		t.Fatalf("filter organization_id = %q", dir.lastFilter.OrganizationID)
	}
	if dir.lastFilter.Email != "worker" {
		t.Fatalf("filter email = %q", dir.lastFilter.Email)
	}

	if _, err := svc.ListEmployees(context.Background(), " ", EmployeeFilter{}, Page{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChargePointStatisticsRequiresOrganization(t *testing.T) {
	dir := &fakeDirectory{stats: []ChargePointStatistic{
		{StatusCode: "available", StatusLabel: "Available", Count: 3},
	}}
	svc := newDirectoryService(t, &fakeLinkStore{}, newFakeWhitelistStore(), dir)

	stats, err := svc.ChargePointStatistics(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("ChargePointStatistics: %v", err)
	}
	if len(stats) != 1 || stats[0].Count != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := svc.ChargePointStatistics(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
