// Package actiontoken signs and verifies the approve/reject links embedded in
// approval request emails. A token names one submission and one action; the
// workflow engine never sees tokens.
package actiontoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sicko7947/approvalflow"
)

const (
	defaultIssuer = "approvalflow"
	signingMethod = "HS256"
	minSecretLen  = 16
)

// Verification errors
var (
	ErrTokenInvalid = errors.New("action token is invalid")
	ErrTokenExpired = errors.New("action token has expired")
)

// Config defines how action tokens are signed and verified
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Claims is a verified action
type Claims struct {
	SubmissionID string
	Action       approvalflow.Action
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// actionClaims is the internal claims type used for JWT parsing
type actionClaims struct {
	jwt.RegisteredClaims
	SubmissionID string `json:"sid"`
	Action       string `json:"act"`
}

// Signer issues and verifies action tokens
type Signer struct {
	cfg Config
}

// NewSigner validates the configuration and returns a Signer
func NewSigner(cfg Config) (*Signer, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("action token secret must be at least %d bytes", minSecretLen)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("action token ttl must be positive")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Signer{cfg: cfg}, nil
}

// Sign issues a token authorizing action on one submission
func (s *Signer) Sign(submissionID string, action approvalflow.Action) (string, error) {
	if strings.TrimSpace(submissionID) == "" {
		return "", fmt.Errorf("submission id is required")
	}
	if _, err := action.TargetStatus(); err != nil {
		return "", err
	}

	now := s.cfg.Now()
	claims := actionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   submissionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		SubmissionID: submissionID,
		Action:       string(action),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign action token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer, expiry and payload of a token
func (s *Signer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrTokenInvalid
	}

	var parsed actionClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.cfg.Now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.SubmissionID == "" || parsed.Subject != parsed.SubmissionID {
		return Claims{}, ErrTokenInvalid
	}
	action := approvalflow.Action(parsed.Action)
	if _, err := action.TargetStatus(); err != nil {
		return Claims{}, ErrTokenInvalid
	}

	claims := Claims{
		SubmissionID: parsed.SubmissionID,
		Action:       action,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		claims.ExpiresAt = parsed.ExpiresAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
}
