package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
)

type fakeUserStore struct {
	byEmail map[string]*User
	byID    map[string]*User
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func testStore(t *testing.T, users ...*User) *fakeUserStore {
	t.Helper()
	s := &fakeUserStore{byEmail: map[string]*User{}, byID: map[string]*User{}}
	for _, u := range users {
		s.byEmail[u.Email] = u
		s.byID[u.ID] = u
	}
	return s
}

func testUser(t *testing.T, id, email, password string, roles ...string) *User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &User{
		ID:             id,
		OrganizationID: "org-1",
		Email:          email,
		PasswordHash:   hash,
		Roles:          roles,
		Status:         UserStatusActive,
	}
}

func basicHeader(email, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func TestResolveAnonymousWhenHeaderAbsent(t *testing.T) {
	tokens := newTestManager(t)
	r, err := NewResolver(testStore(t), tokens)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	for _, header := range []string{"", "Digest abc", "token-without-scheme"} {
		identity, err := r.Resolve(context.Background(), header)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", header, err)
		}
		if !identity.IsAnonymous() {
			t.Fatalf("expected anonymous identity for %q", header)
		}
		if !identity.HasRole(RoleAnonymous) {
			t.Fatalf("anonymous identity must carry the anonymous role")
		}
	}
}

func TestResolveBasic(t *testing.T) {
	user := testUser(t, "u1", "emp@example.com", "s3cret", RoleEmployee)
	tokens := newTestManager(t)
	r, err := NewResolver(testStore(t, user), tokens)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	identity, err := r.Resolve(context.Background(), basicHeader("emp@example.com", "s3cret"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity.IsAnonymous() || identity.UserID() != "u1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if !identity.HasRole(RoleEmployee) {
		t.Fatalf("expected employee role, got %v", identity.Roles())
	}

	if _, err := r.Resolve(context.Background(), basicHeader("emp@example.com", "wrong")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), basicHeader("ghost@example.com", "s3cret")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), "Basic ???not-base64???"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for malformed payload, got %v", err)
	}
}

func TestResolveBasicRejectsDisabledUser(t *testing.T) {
	user := testUser(t, "u1", "emp@example.com", "s3cret", RoleEmployee)
	user.Status = UserStatusDisabled
	r, err := NewResolver(testStore(t, user), newTestManager(t))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	if _, err := r.Resolve(context.Background(), basicHeader("emp@example.com", "s3cret")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for disabled user, got %v", err)
	}
}

func TestResolveBearer(t *testing.T) {
	user := testUser(t, "u1", "emp@example.com", "s3cret", RoleEmployee, RoleAdministrator)
	tokens := newTestManager(t)
	r, err := NewResolver(testStore(t, user), tokens)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	token, err := tokens.Issue(user.ID, user.Email)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	identity, err := r.Resolve(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if identity.UserID() != "u1" || !identity.HasRole(RoleAdministrator) {
		t.Fatalf("unexpected identity: roles=%v", identity.Roles())
	}

	if _, err := r.Resolve(context.Background(), "Bearer junk"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestResolveBearerUserGone(t *testing.T) {
	tokens := newTestManager(t)
	r, err := NewResolver(testStore(t), tokens)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	token, err := tokens.Issue("deleted-user", "gone@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "Bearer "+token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials when user no longer exists, got %v", err)
	}
}

func TestIdentityRoleFallback(t *testing.T) {
	user := &User{ID: "u2", Email: "norole@example.com", Status: UserStatusActive}
	identity := AuthenticatedIdentity(user)
	if identity.IsAnonymous() {
		t.Fatalf("identity with a user record is not anonymous")
	}
	if !identity.HasRole(RoleAnonymous) {
		t.Fatalf("empty role set must degrade to anonymous, got %v", identity.Roles())
	}
}
