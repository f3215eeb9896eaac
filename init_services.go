// Package main — Service katmanı başlatma.
//
// initServices, node moduna göre service'leri oluşturur:
//
//	auth_hub    → Auth + Instance + User (chat service'leri nil kalır)
//	community   → chat service'leri (Auth nil kalır, token hub'da imzalanır)
//	standalone  → hepsi
//
// Nil kalan service'lerin route'ları initRoutes'ta zaten register edilmez;
// nil alan handler'lar da oluşturulmaz.
package main

import (
	"log"
	"time"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/pkg/crypto"
	"github.com/candemir/meydan/pkg/email"
	"github.com/candemir/meydan/pkg/ratelimit"
	"github.com/candemir/meydan/pkg/snowflake"
	"github.com/candemir/meydan/services"
	"github.com/candemir/meydan/sfu"
	"github.com/candemir/meydan/ws"
)

// Services, tüm service instance'larını tutan container struct.
// Mod dışı alanlar nil'dir — erişim initRoutes/initHandlers'ta mod
// kontrolünün arkasındadır.
type Services struct {
	Verifier services.TokenVerifier
	Presence services.PresenceService
	Instance services.InstanceService
	User     services.UserService

	// Yalnız SignsTokens (auth_hub / standalone)
	Auth services.AuthService

	// Yalnız ServesChat (community / standalone)
	Server   services.ServerService
	Channel  services.ChannelService
	Message  services.MessageService
	Member   services.MemberService
	Role     services.RoleService
	Reaction services.ReactionService
	Voice    services.VoiceService
}

// RateLimiters, rate limiter instance'larını tutan container.
// Login limiter'ı auth endpoint'leri olan modlarda, message limiter'ı
// chat taşıyan modlarda doludur.
type RateLimiters struct {
	Login   *ratelimit.LoginRateLimiter
	Message *ratelimit.MessageRateLimiter
}

// Close, limiter'ların arka plan temizlik goroutine'lerini durdurur.
func (l *RateLimiters) Close() {
	if l.Login != nil {
		l.Login.Close()
	}
	if l.Message != nil {
		l.Message.Close()
	}
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
//
// engine, chat taşımayan modlarda nil'dir — VoiceService o modlarda
// oluşturulmadığı için nil engine hiçbir interface'e sarılmaz.
func initServices(repos *Repositories, hub *ws.Hub, engine *sfu.Engine, cfg *config.Config) (*Services, *RateLimiters, error) {
	mode := cfg.Server.Mode

	svcs := &Services{
		Presence: services.NewPresenceService(),
		Instance: services.NewInstanceService(repos.Server, cfg.Server, cfg.Voice),
		User:     services.NewUserService(repos.User, repos.Member, hub, cfg.Upload.DataDir, cfg.Upload.AvatarMaxSize),
	}
	limiters := &RateLimiters{}

	// ─── Token doğrulama ───
	//
	// İmzalayan modlarda keypair önce garanti edilir: localVerifier public
	// key dosyasını constructor'da okur, dosya ilk açılışta henüz yok olabilir.
	if mode.SignsTokens() {
		generated, err := crypto.EnsureRSAKeyPair(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath)
		if err != nil {
			return nil, nil, err
		}
		if generated {
			log.Printf("[main] generated RS256 keypair at %s", cfg.Auth.PrivateKeyPath)
		}

		svcs.Verifier, err = services.NewLocalVerifier(cfg.Auth.PublicKeyPath)
		if err != nil {
			return nil, nil, err
		}
	} else {
		svcs.Verifier = services.NewRemoteVerifier(cfg.Auth.HubURL)
		log.Printf("[main] community node, tokens verified against hub %s", cfg.Auth.HubURL)
	}

	// ─── Auth (imzalayan modlar) ───
	if mode.SignsTokens() {
		// Email gönderimi opsiyoneldir: API key yoksa sender nil kalır ve
		// forgot-password yine generic 200 döner, sadece mail çıkmaz.
		var sender email.EmailSender
		if cfg.Email.ResendAPIKey != "" {
			sender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Server.PublicURL)
			log.Printf("[main] password reset emails enabled (from=%s)", cfg.Email.From)
		}

		auth, err := services.NewAuthService(
			repos.User, repos.Server, repos.Member, repos.ResetToken,
			sender, hub, svcs.Verifier, cfg.Auth,
		)
		if err != nil {
			return nil, nil, err
		}
		svcs.Auth = auth

		limiters.Login = ratelimit.NewLoginRateLimiter(5, 2*time.Minute)
	}

	// ─── Chat service'leri (chat taşıyan modlar) ───
	if mode.ServesChat() {
		idGen := snowflake.New(cfg.Server.SnowflakeWorkerID)

		// Hub hem EventPublisher hem SubscriptionManager'dır; presence
		// hem StatusSource hem TypingMarker. Aynı somut tip, farklı yüzler.
		svcs.Server = services.NewServerService(repos.Server, repos.Channel, repos.Member, repos.Role, repos.Ban, hub, hub)
		svcs.Channel = services.NewChannelService(repos.Channel, repos.Member, hub, hub)
		svcs.Message = services.NewMessageService(repos.Message, repos.Channel, repos.Member, repos.Role, repos.Reaction, svcs.Presence, hub, idGen)
		svcs.Member = services.NewMemberService(repos.Member, repos.Server, repos.Channel, repos.Role, repos.Ban, svcs.Presence, hub, hub)
		svcs.Role = services.NewRoleService(repos.Role, repos.Member, svcs.Presence, hub)
		svcs.Reaction = services.NewReactionService(repos.Reaction, repos.Message, repos.Channel, repos.Member, hub)
		svcs.Voice = services.NewVoiceService(repos.Channel, repos.Member, engine, hub, cfg.Voice.PublicEndpoint)

		limiters.Message = ratelimit.NewMessageRateLimiter(5, 5*time.Second, 15*time.Second)
	}

	return svcs, limiters, nil
}
