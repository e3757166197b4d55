package client

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"user_id": userID}
	if !exp.IsZero() {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	info, err := ParseToken(signToken(t, "u1", exp))
	require.NoError(t, err)
	assert.Equal(t, "u1", info.UserID)
	assert.True(t, exp.Equal(info.ExpiresAt))
	assert.False(t, info.Expired(time.Now()))
	assert.True(t, info.Expired(exp.Add(time.Second)))
}

func TestParseToken_Invalid(t *testing.T) {
	_, err := ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = ParseToken(signToken(t, "", time.Time{}))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestTokenInfo_NoExpiryNeverExpires(t *testing.T) {
	info, err := ParseToken(signToken(t, "u1", time.Time{}))
	require.NoError(t, err)
	assert.False(t, info.Expired(time.Now().Add(100*365*24*time.Hour)))
}
