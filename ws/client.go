package ws

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/candemir/meydan/models"
)

// Zamanlama sabitleri
const (
	// writeWait: Bir yazma işleminin tamamlanması için maksimum süre
	writeWait = 10 * time.Second

	// pongWait: Client'tan yaşam belirtisi bekleme süresi.
	// Heartbeat frame'i veya pong gelmezse bağlantı ölü kabul edilir.
	pongWait = 90 * time.Second

	// pingPeriod: Sunucunun ping gönderme aralığı.
	// pongWait'ten kısa olmalı ki deadline dolmadan yeni pong şansı doğsun.
	pingPeriod = (pongWait * 9) / 10

	// identifyWait: Bağlantı sonrası ilk Identify frame'ini bekleme süresi.
	// Süre dolarsa bağlantı kimliksiz kabul edilip kapatılır.
	identifyWait = 10 * time.Second

	// maxMessageSize: Client'tan kabul edilen maksimum frame boyutu (byte).
	// Gateway'e inbound sadece Identify/Heartbeat/WebRTCSignal gelir.
	// Trickle ICE kullanılmadığından WebRTCSignal'in SDP'si tüm
	// candidate'ları gömülü taşır ve çok arayüzlü makinelerde birkaç
	// kilobyte'ı rahatça aşar; sınır buna göre geniştir.
	maxMessageSize = 64 * 1024

	// sendBufferSize: Client başına outbound mailbox kapasitesi.
	// Dolarsa client yavaş tüketicidir ve bağlantısı koparılır.
	sendBufferSize = 256
)

// Bağlantı durum makinesi:
//
//	unauth ──Identify──▶ subscribing ──Ready──▶ active ──kopma──▶ cleanup
//	   │ 10s timeout / hatalı frame
//	   ▼
//	close(1000)
//
// Durumlar ayrı goroutine'lere yayılmaz; handler akışı sıralı yürütür.
// active durumunda readPump ve writePump paralel çalışır.

// Client, kimliği doğrulanmış tek bir WebSocket bağlantısını temsil eder.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	deps Deps

	// send: Hub'dan gelen event'lerin mailbox'ı.
	// Hub yazar, writePump okur. Kapatma yetkisi sadece hub'dadır.
	send chan []byte

	userID    string
	username  string
	sessionID string

	// subscriptions: Bağlantı kurulurken abone olunan kanalların yerel kopyası.
	// Kapanışta son PresenceUpdate bu listeyle dağıtılır — hub aboneliği o
	// noktada çoktan silinmiş olacağından liste client'ta tutulur.
	subscriptions []string

	// replaced: Aynı kullanıcının yeni bir oturumu bu client'ın yerini aldıysa
	// true. Cleanup bu bayrağı görünce voice/presence temizliğini atlar.
	replaced atomic.Bool
}

// authenticate, unauth durumunu yürütür: ilk frame'i bekler, Identify ise
// token'ı doğrular. Başarısızlıkta bağlantıyı kapatıp false döner.
func (c *Client) authenticate() bool {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(identifyWait))

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			c.closeWith("No message received")
		} else {
			c.conn.Close()
		}
		return false
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil || event.Type != EventIdentify {
		c.closeWith("Expected Identify")
		return false
	}

	var identify IdentifyData
	if data, err := json.Marshal(event.Data); err == nil {
		json.Unmarshal(data, &identify)
	}

	claims, err := c.deps.Verifier.VerifyToken(context.Background(), identify.Token)
	if err != nil {
		c.closeWith("Invalid token")
		return false
	}

	c.userID = claims.Subject
	c.username = claims.Username
	c.sessionID = uuid.Must(uuid.NewV7()).String()
	return true
}

// establish, subscribing durumunu yürütür: üyesi olunan server'ların
// kanallarına abone olur, kullanıcıyı online işaretler ve Ready gönderir.
func (c *Client) establish() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channelIDs, err := c.deps.Channels.ChannelIDsForUser(ctx, c.userID)
	if err != nil {
		return err
	}

	for _, channelID := range channelIDs {
		c.hub.Subscribe(channelID, c.userID)
	}
	c.subscriptions = channelIDs

	c.deps.Presence.SetStatus(c.userID, models.UserStatusOnline)
	for _, channelID := range channelIDs {
		c.hub.BroadcastToChannel(channelID, Event{
			Type: EventPresenceUpdate,
			Data: PresenceData{UserID: c.userID, Status: string(models.UserStatusOnline)},
		})
	}

	// Ready için tam profil çekilir. Federated bir kullanıcı ilk kez bu
	// node'a bağlanıyorsa lokal kaydı henüz olmayabilir — token'daki
	// bilgiyle idare edilir.
	user, err := c.deps.Users.GetPublic(ctx, c.userID)
	if err != nil {
		user = &models.UserPublic{ID: c.userID, Username: c.username, DisplayName: c.username}
	}

	c.sendEvent(Event{
		Type: EventReady,
		Data: ReadyData{User: *user, SessionID: c.sessionID},
	})
	return nil
}

// ─────────────────────────────────────────────
// Read Pump: Client → Server
// ─────────────────────────────────────────────

// readPump, client'tan gelen frame'leri işler. Bağlantı başına tek
// goroutine'de çalışır; dönüşünde cleanup zinciri tetiklenir.
func (c *Client) readPump() {
	defer func() {
		c.cleanup()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for %s: %v", c.username, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[ws] malformed frame from %s: %v", c.username, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, active durumdaki inbound event'leri yönlendirir.
func (c *Client) handleEvent(event Event) {
	switch event.Type {
	case EventHeartbeat:
		// Uygulama seviyesi heartbeat de yaşam belirtisidir; proxy'lerin
		// pong'u yuttuğu ortamlarda bağlantıyı ayakta tutar.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.sendEvent(Event{Type: EventHeartbeatAck})

	case EventWebRTCSignal:
		var signal WebRTCSignalData
		if !c.parseData(event.Data, &signal) {
			return
		}

		if signal.ToUserID != nil && *signal.ToUserID != "" {
			// Eski istemciler peer-to-peer relay için to_user_id doldururdu.
			// Tüm ses trafiği artık SFU üzerindendir.
			log.Printf("[ws] legacy p2p relay is disabled, dropping signal from %s to %s", c.username, *signal.ToUserID)
			return
		}

		if err := c.deps.SFU.HandleSignal(c.userID, signal.ChannelID, signal.SignalType, signal.Payload); err != nil {
			log.Printf("[ws] sfu signal failed for %s (%s): %v", c.username, signal.SignalType, err)
		}

	case EventIdentify:
		// Zaten kimlik doğrulandı; tekrar gelen Identify yok sayılır.

	default:
		log.Printf("[ws] unknown event type from %s: %s", c.username, event.Type)
	}
}

// parseData, Event.Data'daki any değeri hedef struct'a dönüştürür.
// JSON roundtrip basit ama yeterli: inbound frame'ler küçük ve seyrek.
func (c *Client) parseData(data any, target any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		log.Printf("[ws] failed to decode event payload from %s: %v", c.username, err)
		return false
	}
	return true
}

// cleanup, bağlantı kapanışındaki temizlik zinciri. Sıra önemlidir:
//
//  1. Oturum kaldırılır — yeni event bu bağlantıya akmaz
//  2. SFU peer bağlantısı kapatılır
//  3. Voice registry temizlenir; VoiceStateUpdate'ler abonelikler hâlâ
//     dururken yayınlanır ki kanaldakiler ayrılışı görsün
//  4. Kanal abonelikleri silinir
//  5. Presence offline'a çekilir
//  6. Son PresenceUpdate, yerelde tutulan abonelik listesiyle dağıtılır
//
// Oturum yeni bir bağlantıyla değiştirildiyse (reconnect) zincirin domain
// kısmı atlanır: kullanıcı hâlâ online, ses oturumu da devam ediyor.
func (c *Client) cleanup() {
	c.hub.detach(c)

	if c.replaced.Load() {
		log.Printf("[ws] replaced session closed for %s, cleanup skipped", c.username)
		return
	}

	c.deps.SFU.LeaveAll(c.userID)
	c.deps.Voice.LeaveAll(c.userID)
	c.hub.UnsubscribeAll(c.userID)
	c.deps.Presence.SetStatus(c.userID, models.UserStatusOffline)

	for _, channelID := range c.subscriptions {
		c.hub.BroadcastToChannel(channelID, Event{
			Type: EventPresenceUpdate,
			Data: PresenceData{UserID: c.userID, Status: string(models.UserStatusOffline)},
		})
	}
}

// ─────────────────────────────────────────────
// Write Pump: Server → Client
// ─────────────────────────────────────────────

// writePump, mailbox'taki event'leri bağlantıya yazar ve periyodik ping atar.
// Bağlantı başına tek goroutine'de çalışır — gorilla/websocket'te eşzamanlı
// yazma yasağının güvencesi budur.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub mailbox'ı kapattı: oturum değiştirildi veya shutdown.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendEvent, event'i sıra numarası vererek kendi mailbox'ına bırakır.
// Tek alıcılı gönderimler (Ready, HeartbeatAck) için kullanılır.
//
// Teslim broadcast'lerle aynı kilit altındadır: mailbox'ı kapatma yetkisi
// hub'dadır ve kapatma yalnızca oturum map'ten düşerken yapılır. Oturumu
// yenisiyle değiştirilen client'ın readPump'ı bir süre daha çalışır;
// onun geç kalan gönderimi burada sessizce düşer, kapalı kanala yazılmaz.
func (c *Client) sendEvent(event Event) {
	data, ok := c.hub.stamp(&event)
	if !ok {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if current, ok := c.hub.sessions[c.userID]; !ok || current != c {
		return
	}
	c.hub.deliver(c, data)
}

// closeWith, bağlantıyı 1000 (normal closure) koduyla ve verilen
// açıklamayla kapatır. Kimlik doğrulama hataları client tarafında
// anlamlı gösterilebilsin diye sebep close frame'inde taşınır.
func (c *Client) closeWith(reason string) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
	c.conn.Close()
}
