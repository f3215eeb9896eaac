package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
)

func TestAuthMiddlewareRequire(t *testing.T) {
	env := newMwEnv(t)
	user := env.createUser(t, "deniz")
	verifier := &fakeVerifier{claims: map[string]*models.TokenClaims{
		"token-deniz": claimsFor(user.ID, user.Username),
	}}
	mw := NewAuthMiddleware(verifier, env.users)

	t.Run("gecerli token kullaniciyi contexte koyar", func(t *testing.T) {
		next := &nextRecorder{}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer token-deniz")

		mw.Require(next.handler()).ServeHTTP(rec, req)

		require.True(t, next.called)
		require.NotNil(t, next.user)
		assert.Equal(t, user.ID, next.user.ID)
		assert.Equal(t, "deniz", next.user.Username)
		// Şifre hash'i context'e sızmamalı.
		assert.Empty(t, next.user.PasswordHash)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("header yoksa 401", func(t *testing.T) {
		next := &nextRecorder{}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)

		mw.Require(next.handler()).ServeHTTP(rec, req)

		assert.False(t, next.called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authorization header required", decodeError(t, rec).Error.Message)
	})

	t.Run("bearer olmayan format reddedilir", func(t *testing.T) {
		next := &nextRecorder{}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Basic ZGVuaXo6c2lmcmU=")

		mw.Require(next.handler()).ServeHTTP(rec, req)

		assert.False(t, next.called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decodeError(t, rec).Error.Message, "Bearer")
	})

	t.Run("gecersiz token 401", func(t *testing.T) {
		next := &nextRecorder{}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.Header.Set("Authorization", "Bearer uydurma")

		mw.Require(next.handler()).ServeHTTP(rec, req)

		assert.False(t, next.called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// Community node'da hub'ın imzaladığı token lokal DB'de olmayan bir
// kullanıcıya ait olabilir; ilk istekte satır upsert edilmelidir.
func TestAuthMiddlewareFederatedUpsert(t *testing.T) {
	env := newMwEnv(t)
	federatedID := newID()
	verifier := &fakeVerifier{claims: map[string]*models.TokenClaims{
		"token-gezgin": claimsFor(federatedID, "gezgin"),
	}}
	mw := NewAuthMiddleware(verifier, env.users)

	next := &nextRecorder{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer token-gezgin")

	mw.Require(next.handler()).ServeHTTP(rec, req)

	require.True(t, next.called)
	assert.Equal(t, federatedID, next.user.ID)
	assert.Equal(t, "gezgin", next.user.Username)

	// Satır kalıcı olarak oluşmuş olmalı.
	stored, err := env.users.GetByID(context.Background(), federatedID)
	require.NoError(t, err)
	assert.Equal(t, "gezgin", stored.Username)
	// Federated hesabın lokal şifresi yoktur.
	assert.Empty(t, stored.PasswordHash)
}
