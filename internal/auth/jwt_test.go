package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidatePlayerToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key")
	playerID := uuid.New()

	token, err := mgr.Sign(RealmPlayer, playerID, "", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateTokenForRealm(token, RealmPlayer)
	require.NoError(t, err)
	assert.Equal(t, playerID.String(), claims.Subject)
	assert.Equal(t, RealmPlayer, claims.Realm)
}

func TestSignAndValidateServiceToken(t *testing.T) {
	mgr := NewJWTManager("test-secret-key")
	serviceID := uuid.New()

	token, err := mgr.Sign(RealmService, serviceID, "spins:grant", time.Hour)
	require.NoError(t, err)

	claims, err := mgr.ValidateTokenForRealm(token, RealmService)
	require.NoError(t, err)
	assert.Equal(t, RealmService, claims.Realm)
	assert.Equal(t, "spins:grant", claims.Scope)
}

func TestRealmMismatchRejected(t *testing.T) {
	mgr := NewJWTManager("test-secret-key")

	token, err := mgr.Sign(RealmPlayer, uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, RealmService)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected realm service")
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1")
	mgr2 := NewJWTManager("secret-2")

	token, err := mgr1.Sign(RealmPlayer, uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewJWTManager("test-secret-key")

	token, err := mgr.Sign(RealmPlayer, uuid.New(), "", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}
