package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	raw, err := tokens.Issue("u-1", "asha@example.com", "Asha", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokens_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	raw, err := tokens.Issue("u-1", "a@example.com", "A", domain.RoleUser)
	require.NoError(t, err)

	tokens.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokens_Rejects(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)

	_, err := tokens.Parse("")
	assert.ErrorIs(t, err, domain.ErrNoToken)

	_, err = tokens.Parse("not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	foreign, err := NewTokens("other-secret", time.Hour).Issue("u-1", "a@example.com", "A", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = tokens.Parse(foreign)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u-1", Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tokens.Parse(none)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u-1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Parse(noExpiry)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Empty(t, BearerToken(""))
	assert.Empty(t, BearerToken("Bearer"))
	assert.Empty(t, BearerToken("Basic abc"))
}

func TestRequireRole(t *testing.T) {
	assert.NoError(t, RequireRole(Principal{Role: domain.RoleAdmin}, domain.RoleAdmin))
	assert.ErrorIs(t, RequireRole(Principal{Role: domain.RoleUser}, domain.RoleAdmin), domain.ErrAccessDenied)
	assert.ErrorIs(t, RequireRole(Principal{}, domain.RoleAdmin), domain.ErrAccessDenied)
}
