package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	ts := NewTokenService([]byte("super-secret"), time.Hour)
	tok, err := ts.Issue("user-123")
	require.NoError(t, err)

	got, err := ts.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestVerify_DistinctUsers(t *testing.T) {
	t.Parallel()

	ts := NewTokenService([]byte("super-secret"), time.Hour)
	tokA, err := ts.Issue("user-a")
	require.NoError(t, err)
	tokB, err := ts.Issue("user-b")
	require.NoError(t, err)

	gotA, err := ts.Verify(tokA)
	require.NoError(t, err)
	gotB, err := ts.Verify(tokB)
	require.NoError(t, err)

	assert.Equal(t, "user-a", gotA)
	assert.Equal(t, "user-b", gotB)
}

func TestIssue_EmbedsExpiry(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := NewTokenService([]byte("k"), 7*24*time.Hour)
	ts.now = func() time.Time { return fixed }

	tok, err := ts.Issue("u1")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, fixed.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestIssue_EmptyUserID(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService([]byte("k"), time.Hour).Issue("")
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	ts := NewTokenService([]byte("secret"), -1*time.Second)
	tok, err := ts.Issue("u1")
	require.NoError(t, err)

	_, err = ts.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenService([]byte("right-secret"), time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = NewTokenService([]byte("wrong-secret"), time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Tampered(t *testing.T) {
	t.Parallel()

	ts := NewTokenService([]byte("secret"), time.Hour)
	tok, err := ts.Issue("user-a")
	require.NoError(t, err)

	// Swap the payload for one issued to another user, keeping the old signature.
	other, err := ts.Issue("user-b")
	require.NoError(t, err)
	parts := strings.Split(tok, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = ts.Verify(forged)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenService([]byte("secret"), time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = NewTokenService(secret, time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	ts := NewTokenService([]byte("k"), time.Hour)
	for _, in := range []string{"", "not.a.jwt", "abc", "a.b.c.d"} {
		_, err := ts.Verify(in)
		assert.ErrorIs(t, err, ErrInvalidToken, in)
	}
}
