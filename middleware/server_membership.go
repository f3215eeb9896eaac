// Package middleware — ServerMembershipMiddleware: sunucu üyelik kontrolü.
//
// URL'den serverId path parameter'ını alır, kullanıcının o sunucuya üye
// olup olmadığını doğrular ve serverID'yi context'e ekler.
//
// Bu middleware AuthMiddleware'den SONRA çalışır — context'te user bilgisi
// zaten mevcuttur.
//
// Akış: HTTP request → AuthMiddleware → ServerMembershipMiddleware → Handler
//
// Üye olmayan 403 alır. join endpoint'i bu middleware'den GEÇMEZ —
// oraya gelen zaten üye değildir.
package middleware

import (
	"context"
	"net/http"

	"github.com/candemir/meydan/handlers"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
)

// ServerMembershipMiddleware, sunucu üyelik kontrolü middleware'ı.
type ServerMembershipMiddleware struct {
	memberRepo repository.MemberRepository
}

// NewServerMembershipMiddleware, constructor.
func NewServerMembershipMiddleware(memberRepo repository.MemberRepository) *ServerMembershipMiddleware {
	return &ServerMembershipMiddleware{memberRepo: memberRepo}
}

// Require, sunucu üyeliği zorunlu kılan middleware.
//
// Context'ten user bilgisini alır (AuthMiddleware tarafından eklenir),
// URL'den serverId path parameter'ını çeker,
// memberRepo.IsMember ile üyelik kontrolü yapar.
//
// Başarılıysa serverID'yi context'e ekler ve next handler'ı çağırır.
func (m *ServerMembershipMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		// Go 1.22+ PathValue: route tanımındaki {serverId} parametresini çeker.
		serverID := r.PathValue("serverId")
		if serverID == "" {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "serverId is required")
			return
		}

		isMember, err := m.memberRepo.IsMember(r.Context(), serverID, user.ID)
		if err != nil {
			pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to check server membership")
			return
		}

		if !isMember {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "you are not a member of this server")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.ServerIDContextKey, serverID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
