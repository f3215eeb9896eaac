package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// EventPublisher, service katmanının event broadcast etmek için kullandığı soyutlama.
// Service'ler Hub'ın iç yapısını bilmez — sadece bu interface'i görür.
// Test'lerde mock'lanabilir.
type EventPublisher interface {
	// BroadcastToChannel, event'i kanala abone tüm kullanıcılara iletir.
	BroadcastToChannel(channelID string, event Event)

	// BroadcastToUser, event'i tek bir kullanıcının oturumuna iletir.
	// Kullanıcı bağlı değilse event sessizce düşer.
	BroadcastToUser(userID string, event Event)

	// BroadcastToServer, event'i server'ın tüm üyelerine iletir.
	// Üye listesi MemberResolver callback'i ile çözülür.
	BroadcastToServer(serverID string, event Event)
}

// MemberResolver, bir server'ın üye ID'lerini döndüren callback.
// Hub'ın repository katmanına bağımlılığını kırmak için main'de wire edilir.
type MemberResolver func(ctx context.Context, serverID string) ([]string, error)

// Hub, tüm WebSocket oturumlarını ve kanal aboneliklerini yönetir.
//
// Oturum modeli: kullanıcı başına tek aktif oturum. Aynı kullanıcı
// yeniden bağlanırsa eski oturum kapatılır ve yenisi onun yerini alır —
// eski sekme "kopmuş bağlantı" görür, yeni sekme çalışır.
//
// Abonelik modeli: kanal ID → kullanıcı ID kümesi. Kullanıcı bağlandığında
// üyesi olduğu server'ların tüm kanallarına abone edilir; yeni kanal
// oluştuğunda service katmanı ilgili kullanıcıları ayrıca abone eder.
type Hub struct {
	// sessions: kullanıcı ID → aktif client
	sessions map[string]*Client

	// channelSubs: kanal ID → abone kullanıcı ID kümesi
	channelSubs map[string]map[string]bool

	// mu, sessions ve channelSubs map'lerini korur
	mu sync.RWMutex

	// register/unregister: client yaşam döngüsü kanalları
	register   chan *Client
	unregister chan *Client

	// seq: her outbound event'e atanan monoton artan sayı
	seq atomic.Int64

	// memberResolver, BroadcastToServer için üye listesini çözer.
	// Run çağrılmadan önce SetMemberResolver ile set edilmelidir.
	memberResolver MemberResolver
}

// NewHub, yeni bir Hub oluşturur. Run() ayrıca çağrılmalıdır.
func NewHub() *Hub {
	return &Hub{
		sessions:    make(map[string]*Client),
		channelSubs: make(map[string]map[string]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
	}
}

// SetMemberResolver, server broadcast'leri için üye çözücüyü bağlar.
// Run'dan önce, wiring aşamasında çağrılır.
func (h *Hub) SetMemberResolver(resolver MemberResolver) {
	h.memberResolver = resolver
}

// Run, hub'ın ana döngüsü. Register/unregister isteklerini seri işler.
// Ayrı bir goroutine'de çalıştırılmalıdır: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addSession(client)

		case client := <-h.unregister:
			// Yavaş tüketici kopartma: mailbox'ı dolan client buraya düşer.
			// detach oturumu kaldırır, Close readPump'ı sonlandırıp
			// cleanup zincirini tetikler.
			h.detach(client)
			client.conn.Close()
		}
	}
}

// ─────────────────────────────────────────────
// Oturum Yönetimi
// ─────────────────────────────────────────────

// addSession, client'ı kullanıcının aktif oturumu yapar.
// Aynı kullanıcının eski oturumu varsa kapatılır; eski client'ın
// cleanup'ı replaced bayrağını görüp voice/presence temizliğini atlar —
// kullanıcı hâlâ online, sadece bağlantı tazelendi.
func (h *Hub) addSession(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.sessions[client.userID]; ok && old != client {
		old.replaced.Store(true)
		close(old.send)
		log.Printf("[ws] session replaced for %s", old.username)
	}
	h.sessions[client.userID] = client
	log.Printf("[ws] session opened: %s (total: %d)", client.username, len(h.sessions))
}

// detach, client'ın oturumunu kaldırır ve mailbox'ını kapatır.
// Client artık aktif oturum değilse (yenisi yerini almışsa) no-op.
//
// close(send) yalnızca map'ten silme ile aynı kilit altında yapılır:
// broadcast'ler RLock ile map'te olmayan client'a erişemez, bu yüzden
// kapalı kanala gönderme yaşanmaz.
func (h *Hub) detach(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.sessions[client.userID]; ok && current == client {
		delete(h.sessions, client.userID)
		close(client.send)
		log.Printf("[ws] session closed: %s (total: %d)", client.username, len(h.sessions))
	}
}

// IsOnline, kullanıcının aktif bir oturumu olup olmadığını döndürür.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// OnlineUserIDs, bağlı tüm kullanıcıların ID'lerini döndürür.
func (h *Hub) OnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// SessionCount, aktif oturum sayısını döndürür.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ─────────────────────────────────────────────
// Kanal Abonelikleri
// ─────────────────────────────────────────────

// Subscribe, kullanıcıyı kanalın abone kümesine ekler.
// Küme yapısı sayesinde tekrarlı abonelik doğal olarak teklenir.
func (h *Hub) Subscribe(channelID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channelSubs[channelID]
	if !ok {
		subs = make(map[string]bool)
		h.channelSubs[channelID] = subs
	}
	subs[userID] = true
}

// Unsubscribe, kullanıcıyı kanalın abone kümesinden çıkarır.
func (h *Hub) Unsubscribe(channelID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.channelSubs[channelID]; ok {
		delete(subs, userID)
		if len(subs) == 0 {
			delete(h.channelSubs, channelID)
		}
	}
}

// UnsubscribeAll, kullanıcıyı tüm kanal aboneliklerinden çıkarır.
// Bağlantı kapanışında çağrılır.
func (h *Hub) UnsubscribeAll(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for channelID, subs := range h.channelSubs {
		delete(subs, userID)
		if len(subs) == 0 {
			delete(h.channelSubs, channelID)
		}
	}
}

// RemoveChannel, kanalın abone kümesini tamamen siler.
// Kanal silindiğinde service katmanı çağırır.
func (h *Hub) RemoveChannel(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channelSubs, channelID)
}

// ─────────────────────────────────────────────
// Broadcast Metodları
// ─────────────────────────────────────────────

// BroadcastToChannel, event'i kanala abone tüm bağlı kullanıcılara iletir.
func (h *Hub) BroadcastToChannel(channelID string, event Event) {
	data, ok := h.stamp(&event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID := range h.channelSubs[channelID] {
		if client, online := h.sessions[userID]; online {
			h.deliver(client, data)
		}
	}
}

// BroadcastToUser, event'i kullanıcının aktif oturumuna iletir.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	data, ok := h.stamp(&event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if client, online := h.sessions[userID]; online {
		h.deliver(client, data)
	}
}

// BroadcastToServer, event'i server'ın bağlı tüm üyelerine iletir.
// Üye listesi DB'den çözüldüğü için kanal broadcast'inden pahalıdır —
// server-kapsamlı event'ler (ServerUpdate, MemberJoin) zaten seyrektir.
func (h *Hub) BroadcastToServer(serverID string, event Event) {
	if h.memberResolver == nil {
		log.Printf("[ws] BroadcastToServer: member resolver not wired")
		return
	}

	memberIDs, err := h.memberResolver(context.Background(), serverID)
	if err != nil {
		log.Printf("[ws] failed to resolve members for server %s: %v", serverID, err)
		return
	}

	data, ok := h.stamp(&event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range memberIDs {
		if client, online := h.sessions[userID]; online {
			h.deliver(client, data)
		}
	}
}

// stamp, event'e sıra numarası atar ve bir kez serialize eder.
// Aynı byte dizisi tüm alıcılara gönderilir — N alıcı için N marshal yerine 1.
func (h *Hub) stamp(event *Event) ([]byte, bool) {
	event.Seq = h.seq.Add(1)

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event %s: %v", event.Type, err)
		return nil, false
	}
	return data, true
}

// deliver, serialize edilmiş event'i client'ın mailbox'ına bloklamadan bırakır.
// Mailbox doluysa client yavaş tüketicidir: event düşer ve bağlantı
// koparılır — bloklanan bir broadcast tüm hub'ı kilitler. Caller h.mu tutar.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("[ws] send buffer full, disconnecting %s", client.username)
		go func(c *Client) {
			h.unregister <- c
		}(client)
	}
}

// Shutdown, tüm oturumları kapatır. Graceful shutdown sırasında çağrılır.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.sessions {
		close(client.send)
		delete(h.sessions, userID)
	}
	h.channelSubs = make(map[string]map[string]bool)
	log.Println("[ws] hub shut down, all sessions closed")
}
