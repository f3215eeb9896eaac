// Package main — HTTP route registration.
//
// initRoutes, endpoint'leri node moduna göre mux'a bağlar ve middleware
// chain helper'larını tanımlar:
//   - auth: JWT doğrulaması (kanal-kapsamlı route'larda üyelik service'te kontrol edilir)
//   - authServer: auth + sunucu üyelik kontrolü ({serverId} path'ten okunur)
//   - authServerPerm: auth + üyelik + belirli permission
package main

import (
	"net/http"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/middleware"
	"github.com/candemir/meydan/models"
)

// initRoutes, middleware chain'i kurar ve endpoint'leri mux'a bağlar.
//
// Sunucu-kapsamlı route'lar permission kontrolünü middleware'de yapar;
// kanal-kapsamlı route'lar (/api/channels/..., /api/voice/...) path'te
// serverId taşımadığı için üyelik ve yetki kontrolü service katmanındadır.
func initRoutes(mux *http.ServeMux, h *Handlers, svcs *Services, repos *Repositories, mode config.Mode) {
	authMw := middleware.NewAuthMiddleware(svcs.Verifier, repos.User)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// ╔══════════════════════════════════════════╗
	// ║  HER MODDA AÇIK ROUTE'LAR                ║
	// ╚══════════════════════════════════════════╝

	mux.HandleFunc("GET /api/health", h.Instance.Health)
	mux.HandleFunc("GET /api/instance/info", h.Instance.Info)

	// User profili her node'da vardır: community node'ları federe
	// kullanıcıların satırını ilk istekte upsert eder.
	mux.Handle("GET /api/users/@me", auth(h.User.Me))
	mux.Handle("PATCH /api/users/@me", auth(h.User.UpdateMe))
	mux.Handle("POST /api/users/@me/avatar", auth(h.User.UploadAvatar))

	// Avatar içerik adreslidir (sha256) ve <img> etiketleri Authorization
	// header gönderemez — endpoint public kalır.
	mux.HandleFunc("GET /api/avatars/{userId}/{hash}", h.User.ServeAvatar)

	// ╔══════════════════════════════════════════╗
	// ║  AUTH ROUTE'LARI (auth_hub / standalone) ║
	// ╚══════════════════════════════════════════╝

	if mode.SignsTokens() {
		mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
		mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
		mux.HandleFunc("POST /api/auth/validate", h.Auth.Validate)
		mux.HandleFunc("GET /api/auth/public-key", h.Auth.PublicKey)
		mux.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
		mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)
	}

	if !mode.ServesChat() {
		return
	}

	// ╔══════════════════════════════════════════╗
	// ║  CHAT ROUTE'LARI (community / standalone)║
	// ╚══════════════════════════════════════════╝

	permMw := middleware.NewPermissionMiddleware(repos.Role)
	serverMw := middleware.NewServerMembershipMiddleware(repos.Member)

	authServer := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(serverMw.Require(http.HandlerFunc(handler)))
	}
	authServerPerm := func(perm models.Permission, handler http.HandlerFunc) http.Handler {
		return authMw.Require(serverMw.Require(permMw.Require(perm, http.HandlerFunc(handler))))
	}

	// Servers — Join üyelik istemez (katılmak için üye olunamaz),
	// Delete'te owner kontrolü service'tedir.
	mux.Handle("GET /api/servers", auth(h.Server.List))
	mux.Handle("POST /api/servers", auth(h.Server.Create))
	mux.Handle("GET /api/servers/{serverId}", authServer(h.Server.Get))
	mux.Handle("PATCH /api/servers/{serverId}", authServerPerm(models.PermManageServer, h.Server.Update))
	mux.Handle("DELETE /api/servers/{serverId}", authServer(h.Server.Delete))
	mux.Handle("POST /api/servers/{serverId}/join", auth(h.Server.Join))
	mux.Handle("POST /api/servers/{serverId}/leave", authServer(h.Server.Leave))

	// Channels
	mux.Handle("GET /api/servers/{serverId}/channels", authServer(h.Channel.List))
	mux.Handle("POST /api/servers/{serverId}/channels", authServerPerm(models.PermManageChannels, h.Channel.Create))
	mux.Handle("DELETE /api/servers/{serverId}/channels/{channelId}", authServerPerm(models.PermManageChannels, h.Channel.Delete))

	// Members
	mux.Handle("GET /api/servers/{serverId}/members", authServer(h.Member.List))
	mux.Handle("GET /api/servers/{serverId}/members/{userId}", authServer(h.Member.Get))
	mux.Handle("PATCH /api/servers/{serverId}/members/{userId}", authServer(h.Member.Update))
	mux.Handle("DELETE /api/servers/{serverId}/members/{userId}", authServerPerm(models.PermKickMembers, h.Member.Kick))

	// Bans
	mux.Handle("GET /api/servers/{serverId}/bans", authServerPerm(models.PermBanMembers, h.Member.Bans))
	mux.Handle("POST /api/servers/{serverId}/bans", authServerPerm(models.PermBanMembers, h.Member.Ban))
	mux.Handle("DELETE /api/servers/{serverId}/bans/{userId}", authServerPerm(models.PermBanMembers, h.Member.Unban))

	// Roles — rol CRUD'ı ve atamalar sunucu yönetimi sayılır
	mux.Handle("GET /api/servers/{serverId}/roles", authServer(h.Role.List))
	mux.Handle("POST /api/servers/{serverId}/roles", authServerPerm(models.PermManageServer, h.Role.Create))
	mux.Handle("PATCH /api/servers/{serverId}/roles/{roleId}", authServerPerm(models.PermManageServer, h.Role.Update))
	mux.Handle("DELETE /api/servers/{serverId}/roles/{roleId}", authServerPerm(models.PermManageServer, h.Role.Delete))
	mux.Handle("PUT /api/servers/{serverId}/members/{userId}/roles/{roleId}", authServerPerm(models.PermManageServer, h.Role.Assign))
	mux.Handle("DELETE /api/servers/{serverId}/members/{userId}/roles/{roleId}", authServerPerm(models.PermManageServer, h.Role.Unassign))

	// Messages
	mux.Handle("GET /api/channels/{channelId}/messages", auth(h.Message.List))
	mux.Handle("POST /api/channels/{channelId}/messages", auth(h.Message.Create))
	mux.Handle("PATCH /api/channels/{channelId}/messages/{messageId}", auth(h.Message.Update))
	mux.Handle("DELETE /api/channels/{channelId}/messages/{messageId}", auth(h.Message.Delete))
	mux.Handle("POST /api/channels/{channelId}/typing", auth(h.Message.Typing))

	// Reactions — emoji path segment'te taşınır (URL-encoded gelir,
	// PathValue decode eder)
	mux.Handle("PUT /api/channels/{channelId}/messages/{messageId}/reactions/{emoji}", auth(h.Reaction.Add))
	mux.Handle("DELETE /api/channels/{channelId}/messages/{messageId}/reactions/{emoji}", auth(h.Reaction.Remove))

	// Voice — REST yüzeyi katılım registry'sidir; medya /ws + SFU'dadır
	mux.Handle("POST /api/voice/{channelId}/join", auth(h.Voice.Join))
	mux.Handle("POST /api/voice/{channelId}/leave", auth(h.Voice.Leave))
	mux.Handle("PATCH /api/voice/{channelId}/state", auth(h.Voice.UpdateState))
	mux.Handle("GET /api/voice/{channelId}/participants", auth(h.Voice.Participants))

	// WebSocket — kimlik doğrulama upgrade SONRASI ilk frame'dedir
	// (Identify), bu yüzden auth middleware sarmaz; bkz. ws/client.go.
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)
}
