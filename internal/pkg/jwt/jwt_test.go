package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour)

	tok, err := svc.GenerateToken("guest-1", "guest", "hotel-9")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "guest-1", claims.ActorID)
	assert.Equal(t, "guest", claims.Role)
	assert.Equal(t, "hotel-9", claims.HotelID)
}

func TestValidate_WrongSecret(t *testing.T) {
	tok, err := New("a", time.Hour).GenerateToken("p1", "provider", "")
	require.NoError(t, err)

	_, err = New("b", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	tok, err := New("s", -time.Minute).GenerateToken("p1", "provider", "")
	require.NoError(t, err)

	_, err = New("s", time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
