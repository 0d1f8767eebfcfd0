package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken("b6c1c8a0-0000-4000-8000-000000000001", "citizen", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateAndGetClaims(token, "secret")
	require.NoError(t, err)

	sub, role, err := Subject(claims)
	require.NoError(t, err)
	assert.Equal(t, "b6c1c8a0-0000-4000-8000-000000000001", sub)
	assert.Equal(t, "citizen", role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), ExpiresAt(claims), 5*time.Second)
}

func TestValidateRejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		token, _ := GenerateToken("s", "admin", "secret", time.Hour)
		_, err := ValidateAndGetClaims(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := GenerateToken("s", "admin", "secret", -time.Minute)
		_, err := ValidateAndGetClaims(token, "secret")
		assert.Error(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			ClaimSubject: "b6c1c8a0-0000-4000-8000-000000000001",
			ClaimRole:    "admin",
			"exp":        time.Now().Add(time.Hour).Unix(),
		})
		token, err := forged.SignedString([]byte(""))
		require.NoError(t, err)

		_, err = ValidateAndGetClaims(token, "")
		assert.ErrorIs(t, err, ErrEmptySecret)

		_, err = GenerateToken("s", "admin", "", time.Hour)
		assert.ErrorIs(t, err, ErrEmptySecret)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateAndGetClaims("not-a-token", "secret")
		assert.Error(t, err)
	})
}
