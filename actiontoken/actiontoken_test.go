package actiontoken

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sicko7947/approvalflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("email-action-secret-0123456789")
	testNow    = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newTestSigner(t *testing.T, now func() time.Time) *Signer {
	t.Helper()
	signer, err := NewSigner(Config{Secret: testSecret, TTL: time.Hour, Now: now})
	require.NoError(t, err)
	return signer
}

func fixed(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestNewSigner_Validation(t *testing.T) {
	_, err := NewSigner(Config{Secret: []byte("short"), TTL: time.Hour})
	assert.Error(t, err)

	_, err = NewSigner(Config{Secret: testSecret})
	assert.Error(t, err)

	signer, err := NewSigner(Config{Secret: testSecret, TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, defaultIssuer, signer.cfg.Issuer)
}

func TestSignAndVerify(t *testing.T) {
	signer := newTestSigner(t, fixed(testNow))

	for _, action := range []approvalflow.Action{approvalflow.ActionApprove, approvalflow.ActionReject} {
		t.Run(string(action), func(t *testing.T) {
			token, err := signer.Sign("sub-1", action)
			require.NoError(t, err)

			claims, err := signer.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "sub-1", claims.SubmissionID)
			assert.Equal(t, action, claims.Action)
			assert.Equal(t, testNow, claims.IssuedAt.UTC())
			assert.Equal(t, testNow.Add(time.Hour), claims.ExpiresAt.UTC())
		})
	}
}

func TestSign_Validation(t *testing.T) {
	signer := newTestSigner(t, fixed(testNow))

	_, err := signer.Sign(" ", approvalflow.ActionApprove)
	assert.Error(t, err)

	_, err = signer.Sign("sub-1", approvalflow.Action("escalate"))
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	now := testNow
	signer := newTestSigner(t, func() time.Time { return now })

	token, err := signer.Sign("sub-1", approvalflow.ActionApprove)
	require.NoError(t, err)

	now = testNow.Add(2 * time.Hour)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_Tampered(t *testing.T) {
	signer := newTestSigner(t, fixed(testNow))
	token, err := signer.Sign("sub-1", approvalflow.ActionApprove)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = signer.Verify(tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_WrongSecret(t *testing.T) {
	other, err := NewSigner(Config{Secret: []byte("another-secret-0123456789"), TTL: time.Hour, Now: fixed(testNow)})
	require.NoError(t, err)
	token, err := other.Sign("sub-1", approvalflow.ActionApprove)
	require.NoError(t, err)

	_, err = newTestSigner(t, fixed(testNow)).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := actionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Subject:   "sub-1",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
		SubmissionID: "sub-1",
		Action:       "approve",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newTestSigner(t, fixed(testNow)).Verify(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_InvalidPayload(t *testing.T) {
	sign := func(claims actionClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		return token
	}
	registered := jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Subject:   "sub-1",
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}

	tests := []struct {
		name   string
		claims actionClaims
	}{
		{"unknown action", actionClaims{RegisteredClaims: registered, SubmissionID: "sub-1", Action: "escalate"}},
		{"missing submission", actionClaims{RegisteredClaims: registered, Action: "approve"}},
		{"subject mismatch", actionClaims{RegisteredClaims: registered, SubmissionID: "sub-2", Action: "approve"}},
	}

	signer := newTestSigner(t, fixed(testNow))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Verify(sign(tt.claims))
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestVerify_Garbage(t *testing.T) {
	signer := newTestSigner(t, fixed(testNow))

	for _, token := range []string{"", "   ", "not-a-token", "a.b.c"} {
		_, err := signer.Verify(token)
		assert.True(t, errors.Is(err, ErrTokenInvalid), "token %q", token)
	}
}
