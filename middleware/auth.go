// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Middleware Pattern nedir?
// Her HTTP request, handler'a ulaşmadan önce bir veya daha fazla middleware'dan geçer.
// Middleware'lar zincir şeklinde çalışır: Auth → Membership → Permission → Handler
//
// Go'da middleware bir fonksiyondur:
//   func(next http.Handler) http.Handler
//
// "next" parametresi zincirdeki bir sonraki handler'dır.
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Eğer hata varsa next'i çağırmaz → request burada durur.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/candemir/meydan/handlers"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/services"
)

// AuthMiddleware, JWT token doğrulama middleware'ı.
//
// Token'ı TokenVerifier doğrular — node moduna göre lokal public key
// (auth_hub/standalone) ya da hub'dan çekilen key (community) kullanılır.
// Middleware bu ayrımı bilmez.
type AuthMiddleware struct {
	verifier services.TokenVerifier
	userRepo repository.UserRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(verifier services.TokenVerifier, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Require, JWT token zorunlu kılan middleware.
// Token yoksa veya geçersizse → 401 Unauthorized.
//
// HTTP header formatı: Authorization: Bearer <token>
//
// Akış:
// 1. "Authorization" header'ını oku, "Bearer " prefix'ini kaldır
// 2. TokenVerifier ile doğrula (RS256 imza + expiry)
// 3. Kullanıcıyı DB'den getir; community node'da henüz lokal satırı
//    olmayan federated kullanıcı upsert edilir
// 4. Kullanıcıyı context'e ekle → next handler'ı çağır
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := m.verifier.VerifyToken(r.Context(), tokenString)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		user, err := m.lookupUser(r, claims.Subject, claims.Username)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
			return
		}

		// Password hash'i temizle — context'te taşınmamalı.
		user.PasswordHash = ""

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// lookupUser, token'daki kullanıcıyı lokal DB'den getirir.
//
// Community node'da kullanıcı hesabı hub'dadır; ilk istekte lokal satır
// yoktur. Token imzası zaten doğrulandığı için claim'lerdeki kimlik
// güvenilirdir — kullanıcı lokal tabloya upsert edilir ki mesaj yazarı
// JOIN'leri ve üyelik kayıtları çalışsın.
func (m *AuthMiddleware) lookupUser(r *http.Request, userID, username string) (*models.User, error) {
	user, err := m.userRepo.GetByID(r.Context(), userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}

	if err := m.userRepo.UpsertFederated(r.Context(), userID, username); err != nil {
		return nil, err
	}
	return m.userRepo.GetByID(r.Context(), userID)
}
