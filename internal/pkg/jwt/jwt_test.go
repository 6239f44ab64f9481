package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SignParse(t *testing.T) {
	t.Parallel()
	m, err := NewManager("secret")
	require.NoError(t, err)

	token, err := m.Sign("u1", "a@example.com", time.Hour)
	require.NoError(t, err)
	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)

	other, err := NewManager("other")
	require.NoError(t, err)
	_, err = other.Parse(token)
	assert.Error(t, err)

	expired, err := m.Sign("u1", "", -time.Minute)
	require.NoError(t, err)
	_, err = m.Parse(expired)
	assert.Error(t, err)
}

func TestManager_SubjectFallback(t *testing.T) {
	t.Parallel()
	m, err := NewManager("secret")
	require.NoError(t, err)

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{Subject: "u7"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u7", claims.UserID)

	token, err = jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestNewManager_RequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := NewManager("")
	assert.Error(t, err)
}
