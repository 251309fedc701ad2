package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenValiditySpan = time.Hour

// TokenClaims is the verified payload of a bearer token.
type TokenClaims struct {
	UserID    string
	UserEmail string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Ref string `json:"ref"`
	jwt.RegisteredClaims
}

// TokenManager issues, caches and validates time-boxed bearer tokens. At most
// one live token is cached per user id; issuing again within the validity
// span returns the cached token unchanged. The cache is the only shared
// mutable state in the authentication path and is guarded by a mutex.
type TokenManager struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cached map[string]string
}

// TokenOption configures TokenManager behavior.
type TokenOption func(*TokenManager)

// WithValiditySpan overrides the default one hour token lifetime.
func WithValiditySpan(span time.Duration) TokenOption {
	return func(m *TokenManager) {
		if span > 0 {
			m.validity = span
		}
	}
}

// WithIssuer sets the iss claim embedded into minted tokens.
func WithIssuer(issuer string) TokenOption {
	return func(m *TokenManager) {
		m.issuer = strings.TrimSpace(issuer)
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewTokenManager constructs a TokenManager signing with HS256.
func NewTokenManager(secret string, opts ...TokenOption) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	m := &TokenManager{
		secret:   []byte(secret),
		validity: defaultTokenValiditySpan,
		now:      time.Now,
		cached:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue returns the cached live token for userID, or mints a new one when no
// valid cached token exists. Concurrent calls for the same user observe a
// single winner; the losing goroutine returns the cached token.
func (m *TokenManager) Issue(userID, userEmail string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("auth: user id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.cached[userID]; ok {
		if _, err := m.decode(cached); err == nil {
			return cached, nil
		}
		// expired or otherwise stale; replaced below
		delete(m.cached, userID)
	}

	now := m.now().UTC()
	claims := tokenClaims{
		Ref: userEmail,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	m.cached[userID] = signed
	return signed, nil
}

// Decode validates the token signature and expiry and returns the embedded
// subject and reference. Expired tokens yield ErrTokenExpired; every other
// failure yields ErrInvalidToken. Decode does not consult the issuance cache:
// logout evicts the cache entry but does not revoke outstanding tokens
// cryptographically.
func (m *TokenManager) Decode(token string) (TokenClaims, error) {
	return m.decode(token)
}

func (m *TokenManager) decode(token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	if m.issuer != "" && claims.Issuer != m.issuer {
		return TokenClaims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return TokenClaims{}, ErrInvalidToken
	}
	out := TokenClaims{
		UserID:    claims.Subject,
		UserEmail: claims.Ref,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Invalidate evicts the cached token for userID; no-op when nothing is cached.
// A subsequent Issue mints a fresh token.
func (m *TokenManager) Invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cached, userID)
}
