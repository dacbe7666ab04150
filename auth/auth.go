// Package auth resolves the caller's identity and role before workflow
// operations run. It replaces process-wide credential tables and token
// blacklists with injected services.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is what the caller may do in the workflow
type Role string

const (
	RoleWriter  Role = "writer"
	RoleManager Role = "manager"
)

// IsValid returns true for a known role
func (r Role) IsValid() bool {
	return r == RoleWriter || r == RoleManager
}

// Identity is an authenticated caller
type Identity struct {
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// IsManager reports whether the caller can decide on submissions
func (i Identity) IsManager() bool {
	return i.Role == RoleManager
}

// Verification errors
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTokenRevoked    = errors.New("token has been revoked")
)

// Verifier resolves a bearer token to an identity or rejects it
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// RevocationList records tokens invalidated before their expiry
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationList keeps revoked token ids until they would have expired anyway
type MemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationList creates an empty revocation list
func NewMemoryRevocationList(now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{
		revoked: make(map[string]time.Time),
		now:     now,
	}
}

// Revoke marks a token id revoked until the given time
func (l *MemoryRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune()
	l.revoked[tokenID] = until
	return nil
}

// IsRevoked reports whether a token id is still revoked
func (l *MemoryRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return l.now().Before(until), nil
}

// prune drops entries whose tokens have expired; callers hold mu
func (l *MemoryRevocationList) prune() {
	now := l.now()
	for id, until := range l.revoked {
		if !now.Before(until) {
			delete(l.revoked, id)
		}
	}
}

// TokenConfig defines how bearer tokens are issued and verified
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenService issues and verifies HS256 bearer tokens
type TokenService struct {
	cfg        TokenConfig
	revocation RevocationList
}

// NewTokenService validates the configuration and returns a TokenService
func NewTokenService(cfg TokenConfig, revocation RevocationList) (*TokenService, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("auth token secret must be at least 16 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("auth token ttl must be positive")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		cfg.Issuer = "approvalflow"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if revocation == nil {
		revocation = NewMemoryRevocationList(cfg.Now)
	}
	return &TokenService{cfg: cfg, revocation: revocation}, nil
}

// Issue creates a bearer token for the given identity
func (s *TokenService) Issue(email string, role Role) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	if !role.IsValid() {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := s.cfg.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.cfg.Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		Role: string(role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign auth token: %w", err)
	}
	return signed, nil
}

// Verify implements Verifier
func (s *TokenService) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	role := Role(parsed.Role)
	if parsed.Subject == "" || !role.IsValid() || parsed.ID == "" {
		return Identity{}, ErrUnauthenticated
	}

	revoked, err := s.revocation.IsRevoked(ctx, parsed.ID)
	if err != nil {
		return Identity{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Identity{}, ErrTokenRevoked
	}

	identity := Identity{
		Email:   parsed.Subject,
		Role:    role,
		TokenID: parsed.ID,
	}
	if parsed.ExpiresAt != nil {
		identity.ExpiresAt = parsed.ExpiresAt.Time
	}
	return identity, nil
}

// Revoke invalidates the token behind an identity until it would have expired
func (s *TokenService) Revoke(ctx context.Context, identity Identity) error {
	if identity.TokenID == "" {
		return fmt.Errorf("token id is required")
	}
	return s.revocation.Revoke(ctx, identity.TokenID, identity.ExpiresAt)
}

var _ Verifier = (*TokenService)(nil)
