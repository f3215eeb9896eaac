package ws

// Hub testleri ağ bağlantısı kurmaz: client'lar mailbox'larıyla üretilir,
// broadcast'lerin teslim ettiği frame'ler doğrudan send kanalından okunur.
// Gerçek WebSocket el sıkışması handler testlerindedir.

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(h *Hub, userID string) *Client {
	return &Client{hub: h, userID: userID, username: userID, send: make(chan []byte, 8)}
}

// recvEvent, mailbox'taki ilk frame'i çözer. Teslim senkron olduğundan
// bekleme gerekmez; frame yoksa test anında düşer.
func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	default:
		t.Fatal("mailbox bos: beklenen event teslim edilmedi")
		return Event{}
	}
}

func TestHubSessions(t *testing.T) {
	h := NewHub()

	a := testClient(h, "u-a")
	h.addSession(a)
	assert.True(t, h.IsOnline("u-a"))
	assert.Equal(t, 1, h.SessionCount())

	b := testClient(h, "u-b")
	h.addSession(b)
	assert.ElementsMatch(t, []string{"u-a", "u-b"}, h.OnlineUserIDs())

	h.detach(a)
	assert.False(t, h.IsOnline("u-a"))
	_, open := <-a.send
	assert.False(t, open, "detach mailbox'i kapatmali")

	// Tekrarlanan detach no-op — çifte close paniği yok.
	h.detach(a)
	assert.Equal(t, 1, h.SessionCount())
}

func TestHubSessionReplace(t *testing.T) {
	h := NewHub()

	old := testClient(h, "u-a")
	h.addSession(old)
	fresh := testClient(h, "u-a")
	h.addSession(fresh)

	// Eski oturum kapatılır ve replaced işaretlenir; cleanup bu bayrakla
	// voice/presence temizliğini atlayacak.
	assert.True(t, old.replaced.Load())
	_, open := <-old.send
	assert.False(t, open)
	assert.Equal(t, 1, h.SessionCount())

	// Eski client'ın geç gelen detach'i yeni oturumu düşürmez.
	h.detach(old)
	assert.True(t, h.IsOnline("u-a"))

	h.BroadcastToUser("u-a", Event{Type: EventHeartbeatAck})
	assert.Len(t, fresh.send, 1)
	assert.Empty(t, old.send)
}

func TestHubBroadcastToChannel(t *testing.T) {
	h := NewHub()
	a := testClient(h, "u-a")
	b := testClient(h, "u-b")
	h.addSession(a)
	h.addSession(b)

	h.Subscribe("c1", "u-a")
	h.Subscribe("c1", "u-b")
	h.Subscribe("c1", "u-offline") // abone ama bağlı değil

	h.BroadcastToChannel("c1", Event{Type: EventMessageCreate, Data: map[string]any{"content": "selam"}})

	eventA := recvEvent(t, a)
	eventB := recvEvent(t, b)
	assert.Equal(t, EventMessageCreate, eventA.Type)
	assert.Positive(t, eventA.Seq)
	// Tek stamp tüm alıcılara gider — seq alıcı başına artmaz.
	assert.Equal(t, eventA.Seq, eventB.Seq)

	t.Run("abonesi olmayan kanal kimseye gitmez", func(t *testing.T) {
		h.BroadcastToChannel("c-yok", Event{Type: EventMessageCreate})
		assert.Empty(t, a.send)
		assert.Empty(t, b.send)
	})

	t.Run("unsubscribe teslimi durdurur", func(t *testing.T) {
		h.Unsubscribe("c1", "u-b")
		h.BroadcastToChannel("c1", Event{Type: EventMessageCreate})
		assert.Len(t, a.send, 1)
		assert.Empty(t, b.send)
	})
}

func TestHubBroadcastToUser(t *testing.T) {
	h := NewHub()
	a := testClient(h, "u-a")
	b := testClient(h, "u-b")
	h.addSession(a)
	h.addSession(b)

	h.BroadcastToUser("u-a", Event{Type: EventHeartbeatAck})
	assert.Equal(t, EventHeartbeatAck, recvEvent(t, a).Type)
	assert.Empty(t, b.send)

	// Bağlı olmayan kullanıcı: event sessizce düşer.
	h.BroadcastToUser("u-yok", Event{Type: EventHeartbeatAck})
}

func TestHubBroadcastToServer(t *testing.T) {
	h := NewHub()
	h.SetMemberResolver(func(_ context.Context, serverID string) ([]string, error) {
		if serverID == "s-hata" {
			return nil, fmt.Errorf("uyeler cozulemedi")
		}
		return []string{"u-a", "u-b", "u-offline"}, nil
	})

	a := testClient(h, "u-a")
	b := testClient(h, "u-b")
	h.addSession(a)
	h.addSession(b)

	h.BroadcastToServer("s1", Event{Type: EventServerUpdate})
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)

	t.Run("resolver hatasi teslimi iptal eder", func(t *testing.T) {
		h.BroadcastToServer("s-hata", Event{Type: EventServerUpdate})
		assert.Len(t, a.send, 1)
	})

	t.Run("resolver baglanmamissa no-op", func(t *testing.T) {
		bare := NewHub()
		bare.BroadcastToServer("s1", Event{Type: EventServerUpdate})
	})
}

func TestHubSeqMonoton(t *testing.T) {
	h := NewHub()
	a := testClient(h, "u-a")
	h.addSession(a)
	h.Subscribe("c1", "u-a")

	h.BroadcastToChannel("c1", Event{Type: EventMessageCreate})
	h.BroadcastToUser("u-a", Event{Type: EventTypingStart})

	first := recvEvent(t, a)
	second := recvEvent(t, a)
	assert.Equal(t, first.Seq+1, second.Seq)
}

func TestClientSendEventDegistirilenOturum(t *testing.T) {
	h := NewHub()

	old := testClient(h, "u-a")
	h.addSession(old)
	fresh := testClient(h, "u-a")
	h.addSession(fresh)

	// Eski oturumun readPump'ı mailbox kapatıldıktan sonra bir süre daha
	// frame işleyebilir; geç kalan HeartbeatAck kapalı kanala yazmadan
	// düşmeli.
	assert.NotPanics(t, func() {
		old.sendEvent(Event{Type: EventHeartbeatAck})
	})
	assert.Empty(t, fresh.send, "dusen event yeni oturuma sizmamali")

	// Aktif oturumun gönderimi normal teslim edilir ve sıra numarası alır.
	fresh.sendEvent(Event{Type: EventHeartbeatAck})
	ack := recvEvent(t, fresh)
	assert.Equal(t, EventHeartbeatAck, ack.Type)
	assert.Positive(t, ack.Seq)

	// Hiç oturumu olmayan client da güvenle düşer.
	orphan := testClient(h, "u-yok")
	assert.NotPanics(t, func() {
		orphan.sendEvent(Event{Type: EventReady})
	})
}

func TestHubAbonelikDefteri(t *testing.T) {
	h := NewHub()

	h.Subscribe("c1", "u-a")
	h.Subscribe("c1", "u-a") // tekrarlı abonelik teklenir
	assert.Len(t, h.channelSubs["c1"], 1)

	h.Subscribe("c1", "u-b")
	h.Subscribe("c2", "u-a")

	h.UnsubscribeAll("u-a")
	assert.Len(t, h.channelSubs["c1"], 1)
	_, ok := h.channelSubs["c2"]
	assert.False(t, ok, "bos kalan abone kumesi silinmeli")

	h.RemoveChannel("c1")
	assert.Empty(t, h.channelSubs)
}

func TestHubYavasTuketici(t *testing.T) {
	h := NewHub()
	slow := &Client{hub: h, userID: "u-a", username: "u-a", send: make(chan []byte, 1)}
	h.addSession(slow)
	h.Subscribe("c1", "u-a")

	h.BroadcastToChannel("c1", Event{Type: EventMessageCreate}) // mailbox'a sığar
	h.BroadcastToChannel("c1", Event{Type: EventMessageCreate}) // düşer, kopartma tetiklenir

	select {
	case dropped := <-h.unregister:
		assert.Same(t, slow, dropped)
	case <-time.After(time.Second):
		t.Fatal("dolu mailbox client'i unregister kuyruguna dusurmedi")
	}
	assert.Len(t, slow.send, 1, "tasan event teslim edilmemeli")
}

func TestHubShutdown(t *testing.T) {
	h := NewHub()
	a := testClient(h, "u-a")
	b := testClient(h, "u-b")
	h.addSession(a)
	h.addSession(b)
	h.Subscribe("c1", "u-a")

	h.Shutdown()

	assert.Zero(t, h.SessionCount())
	assert.Empty(t, h.channelSubs)
	_, openA := <-a.send
	_, openB := <-b.send
	assert.False(t, openA)
	assert.False(t, openB)
}
