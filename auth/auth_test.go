package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("bearer-token-secret-0123456789")
	testNow    = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T, now func() time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{Secret: testSecret, TTL: time.Hour, Now: now}, nil)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: []byte("short"), TTL: time.Hour}, nil)
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{Secret: testSecret}, nil)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(t, func() time.Time { return testNow })
	ctx := context.Background()

	token, err := svc.Issue("  Boss@Example.com ", RoleManager)
	require.NoError(t, err)

	identity, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "boss@example.com", identity.Email)
	assert.Equal(t, RoleManager, identity.Role)
	assert.True(t, identity.IsManager())
	assert.NotEmpty(t, identity.TokenID)
	assert.Equal(t, testNow.Add(time.Hour), identity.ExpiresAt.UTC())
}

func TestIssue_Validation(t *testing.T) {
	svc := newTestService(t, nil)

	_, err := svc.Issue("", RoleWriter)
	assert.Error(t, err)

	_, err = svc.Issue("a@b.c", Role("admin"))
	assert.Error(t, err)
}

func TestVerify_Rejects(t *testing.T) {
	now := testNow
	svc := newTestService(t, func() time.Time { return now })
	ctx := context.Background()

	token, err := svc.Issue("writer@example.com", RoleWriter)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Verify(ctx, token+"x")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	other, err := NewTokenService(TokenConfig{Secret: []byte("different-secret-0123456789"), TTL: time.Hour, Now: func() time.Time { return now }}, nil)
	require.NoError(t, err)
	_, err = other.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	now = testNow.Add(2 * time.Hour)
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRevoke(t *testing.T) {
	svc := newTestService(t, func() time.Time { return testNow })
	ctx := context.Background()

	token, err := svc.Issue("writer@example.com", RoleWriter)
	require.NoError(t, err)
	identity, err := svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, identity))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Other tokens for the same identity are unaffected
	fresh, err := svc.Issue("writer@example.com", RoleWriter)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, fresh)
	assert.NoError(t, err)

	assert.Error(t, svc.Revoke(ctx, Identity{}))
}

func TestMemoryRevocationList_Expiry(t *testing.T) {
	now := testNow
	list := NewMemoryRevocationList(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, list.Revoke(ctx, "jti-1", testNow.Add(time.Minute)))

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = testNow.Add(2 * time.Minute)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	// Pruned on the next write
	require.NoError(t, list.Revoke(ctx, "jti-2", now.Add(time.Minute)))
	assert.Len(t, list.revoked, 1)
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleWriter.IsValid())
	assert.True(t, RoleManager.IsValid())
	assert.False(t, Role("").IsValid())
	assert.False(t, Identity{Role: RoleWriter}.IsManager())
}
