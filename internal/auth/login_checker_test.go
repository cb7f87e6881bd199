package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginChecker_GetSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	loginChecker := NewLoginChecker(time.Hour, db)
	require.NotNil(t, loginChecker)

	ctx := context.Background()

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	session, err := loginChecker.GetSession(ctx, "invalid token")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, session)

	mock.ExpectGet(sessionKeyPrefix + "invalid token").SetErr(redis.Nil)
	session, err = loginChecker.GetSession(ctx, "invalid token")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, session) // idempotent

	testToken := "test-token"
	now := time.Now()
	sessionKey := sessionKeyPrefix + testToken
	sessionJson, err := json.Marshal(Session{
		Token:        testToken,
		UserID:       42,
		Capabilities: []string{CapManageTaxonomy},
		CreatedAt:    now,
	})
	require.NoError(t, err)

	mock.ExpectGet(sessionKey).SetVal(string(sessionJson))
	session, err = loginChecker.GetSession(ctx, testToken)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, 42, session.UserID)
	assert.True(t, session.Can(CapManageTaxonomy))
	assert.False(t, session.Can(CapManageArticles))

	// expired session
	expiredJson, err := json.Marshal(Session{
		Token:     testToken,
		UserID:    42,
		CreatedAt: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	mock.ExpectGet(sessionKey).SetVal(string(expiredJson))
	session, err = loginChecker.GetSession(ctx, testToken)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Nil(t, session)
}
