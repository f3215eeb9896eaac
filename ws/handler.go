package ws

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/candemir/meydan/models"
)

// Gateway'in dışarıya bağımlılıkları küçük interface'ler olarak tanımlanır.
// Somut tipler (services, sfu) bu interface'leri örtük olarak sağlar;
// ws paketi hiçbirini import etmez, döngüsel bağımlılık oluşmaz.

// TokenVerifier, Identify frame'indeki token'ı doğrular.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.TokenClaims, error)
}

// PresenceTracker, kullanıcının çevrimiçi durumunu günceller.
type PresenceTracker interface {
	SetStatus(userID string, status models.UserStatus)
}

// ChannelSource, kullanıcının üyesi olduğu server'ların kanal ID'lerini verir.
// Bağlantı kurulurken toplu abonelik için kullanılır.
type ChannelSource interface {
	ChannelIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// UserSource, Ready event'i için kullanıcının public profilini verir.
type UserSource interface {
	GetPublic(ctx context.Context, userID string) (*models.UserPublic, error)
}

// VoiceRegistry, kopan kullanıcıyı bulunduğu ses kanallarından çıkarır.
// Ayrılış event'lerini kendi yayınlar.
type VoiceRegistry interface {
	LeaveAll(userID string)
}

// SignalRelay, WebRTC sinyallerini SFU'ya iletir ve kopan kullanıcının
// peer bağlantısını kapatır.
type SignalRelay interface {
	HandleSignal(userID, channelID, signalType, payload string) error
	LeaveAll(userID string)
}

// Deps, bir client'ın yaşam döngüsü boyunca ihtiyaç duyduğu bağımlılıklar.
// Wiring aşamasında bir kez doldurulur, tüm client'lar paylaşır.
type Deps struct {
	Verifier TokenVerifier
	Presence PresenceTracker
	Channels ChannelSource
	Users    UserSource
	Voice    VoiceRegistry
	SFU      SignalRelay
}

// Handler, HTTP isteklerini WebSocket bağlantısına yükseltir ve client
// yaşam döngüsünü başlatır.
type Handler struct {
	hub      *Hub
	deps     Deps
	upgrader websocket.Upgrader
}

// NewHandler, yeni bir WebSocket handler'ı oluşturur.
// allowedOrigins, REST tarafındaki CORS listesiyle aynı kaynaktan gelir;
// "*" içeriyorsa tüm origin'ler kabul edilir.
func NewHandler(hub *Hub, deps Deps, allowedOrigins []string) *Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &Handler{
		hub:  hub,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				// Origin header'sız istekler (native client, curl) kabul edilir;
				// CheckOrigin tarayıcı CSRF'ine karşıdır.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// HandleConnection, GET /ws isteğini karşılar.
//
// Kimlik doğrulama upgrade'den SONRA, ilk frame'le yapılır: token URL'de
// taşınmaz, erişim loglarına ve proxy kayıtlarına sızmaz.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		deps: h.deps,
		send: make(chan []byte, sendBufferSize),
	}

	if !client.authenticate() {
		return
	}

	h.hub.register <- client

	if err := client.establish(); err != nil {
		log.Printf("[ws] failed to establish subscriptions for %s: %v", client.username, err)
		h.hub.detach(client)
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
