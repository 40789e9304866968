package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	userID := uuid.New()
	now := time.Now()

	token, expiresAt, err := issuer.Issue(userID, "9876543210", now)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(TokenValidity), expiresAt, time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "9876543210", claims.PhoneNumber)
}

func TestParseExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	token, _, err := issuer.Issue(uuid.New(), "9876543210", time.Now().Add(-2*TokenValidity))
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("secret-a").Issue(uuid.New(), "9876543210", time.Now())
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b").Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
