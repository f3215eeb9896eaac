// Package main — Handler katmanı başlatma.
//
// initHandlers, HTTP handler'larını oluşturur. Handler'lar "thin"dir —
// sadece HTTP parse + service çağrısı + response write. Mod dışı kalan
// service'lerin handler'ları oluşturulmaz ve nil kalır.
package main

import (
	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/handlers"
	"github.com/candemir/meydan/sfu"
	"github.com/candemir/meydan/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Instance *handlers.InstanceHandler
	User     *handlers.UserHandler

	// Yalnız SignsTokens
	Auth *handlers.AuthHandler

	// Yalnız ServesChat
	Server   *handlers.ServerHandler
	Channel  *handlers.ChannelHandler
	Message  *handlers.MessageHandler
	Member   *handlers.MemberHandler
	Role     *handlers.RoleHandler
	Reaction *handlers.ReactionHandler
	Voice    *handlers.VoiceHandler
	WS       *ws.Handler
}

// initHandlers, handler'ları service ve rate limiter dependency'leriyle oluşturur.
func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, engine *sfu.Engine, cfg *config.Config) *Handlers {
	h := &Handlers{
		Instance: handlers.NewInstanceHandler(svcs.Instance),
		User:     handlers.NewUserHandler(svcs.User, cfg.Upload.AvatarMaxSize),
	}

	if cfg.Server.Mode.SignsTokens() {
		h.Auth = handlers.NewAuthHandler(svcs.Auth, limiters.Login)
	}

	if cfg.Server.Mode.ServesChat() {
		h.Server = handlers.NewServerHandler(svcs.Server)
		h.Channel = handlers.NewChannelHandler(svcs.Channel)
		h.Message = handlers.NewMessageHandler(svcs.Message, limiters.Message)
		h.Member = handlers.NewMemberHandler(svcs.Member)
		h.Role = handlers.NewRoleHandler(svcs.Role)
		h.Reaction = handlers.NewReactionHandler(svcs.Reaction)
		h.Voice = handlers.NewVoiceHandler(svcs.Voice)

		// Gateway bağımlılıkları küçük interface'lerdir; somut service'ler
		// ve SFU engine bunları örtük sağlar (bkz. ws/handler.go).
		h.WS = ws.NewHandler(hub, ws.Deps{
			Verifier: svcs.Verifier,
			Presence: svcs.Presence,
			Channels: svcs.Channel,
			Users:    svcs.User,
			Voice:    svcs.Voice,
			SFU:      engine,
		}, cfg.Server.AllowedOrigins)
	}

	return h
}
