package middleware

import (
	"context"
	"net/http"

	"github.com/candemir/meydan/handlers"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
)

// PermissionMiddleware, kullanıcının gerekli yetkiye sahip olup olmadığını kontrol eder.
//
// Bu middleware AuthMiddleware + ServerMembershipMiddleware'den SONRA çalışır —
// context'te doğrulanmış user VE serverID mevcuttur.
//
// Roller sunucu bazlıdır: effective yetki, üyenin atanmış rollerinin ve
// @everyone rolünün permission bit'lerinin OR'udur. Hesap tek sorguda
// roleRepo.EffectivePermissions ile yapılır.
//
// Akış:
// HTTP request → AuthMiddleware (JWT doğrula, user'ı context'e koy)
//              → ServerMembershipMiddleware (üyelik kontrolü, serverID'yi context'e koy)
//              → PermissionMiddleware (effective yetkiyi hesapla, kontrol et)
//              → Handler
type PermissionMiddleware struct {
	roleRepo repository.RoleRepository
}

// NewPermissionMiddleware, constructor.
func NewPermissionMiddleware(roleRepo repository.RoleRepository) *PermissionMiddleware {
	return &PermissionMiddleware{roleRepo: roleRepo}
}

// Load, kullanıcının permission'larını context'e yükler ama herhangi bir
// permission gerektirmez. Handler kendi içinde yetki kontrolü yapar.
//
// Kullanım: "sahibi VEYA yetkili kullanıcı" senaryoları. Require
// kullanılsa normal kullanıcı kendi mesajını silemezdi; Load ile
// permissions context'e girer, kararı service verir.
func (m *PermissionMiddleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, ok := m.effective(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), handlers.PermissionsContextKey, perms)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require, belirli bir yetkiyi gerektiren middleware döner.
//
// Kullanım:
//
//	permMiddleware.Require(models.PermManageChannels, http.HandlerFunc(channelHandler.Create))
//
// Bu pattern Go'da "middleware factory" olarak bilinir:
// Require bir http.Handler döner, dönen handler next'i wrap eder.
func (m *PermissionMiddleware) Require(perm models.Permission, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, ok := m.effective(w, r)
		if !ok {
			return
		}

		// Administrator bit'i her kontrolü geçer — Has içinde.
		if !perms.Has(perm) {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.PermissionsContextKey, perms)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// effective, context'teki user + serverID için yetki maskesini hesaplar.
// Hata yazıldıysa ok=false döner; caller return etmelidir.
func (m *PermissionMiddleware) effective(w http.ResponseWriter, r *http.Request) (models.Permission, bool) {
	user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return 0, false
	}

	serverID, ok := r.Context().Value(handlers.ServerIDContextKey).(string)
	if !ok || serverID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "server context required for permission check")
		return 0, false
	}

	perms, err := m.roleRepo.EffectivePermissions(r.Context(), serverID, user.ID)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "failed to get user permissions")
		return 0, false
	}
	return perms, true
}
