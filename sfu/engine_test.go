package sfu

// SFU testleri gerçek bir UDP socket ve gerçek SDP müzakeresi kullanır:
// istemci tarafı offer'lar pion'un kendi API'siyle üretilir. Medya akışı
// (RTP) test edilmez — o, canlı bir ICE bağlantısı ister; burada signaling
// ve oturum defteri doğrulanır.

import (
	"sync"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, maxSessions int) *Engine {
	t.Helper()
	engine, err := NewEngine(Config{Host: "127.0.0.1", Port: 0, MaxSessions: maxSessions})
	require.NoError(t, err)
	return engine
}

// clientOffer, istemci tarafı bir audio offer SDP'si üretir.
// ICE candidate beklenmez: answer üretimi için medya satırları yeterlidir.
func clientOffer(t *testing.T) string {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })

	_, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio)
	require.NoError(t, err)

	offer, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, pc.SetLocalDescription(offer))
	return offer.SDP
}

func TestEngineOfferAnswer(t *testing.T) {
	engine := newTestEngine(t, 0)
	assert.Equal(t, DefaultMaxSessions, engine.cfg.MaxSessions)

	answer, err := engine.HandleOffer("c-ses", "u-a", clientOffer(t))
	require.NoError(t, err)
	assert.Contains(t, answer, "opus/48000")
	assert.Equal(t, 1, engine.SessionCount())

	_, err = engine.HandleOffer("c-ses", "u-b", clientOffer(t))
	require.NoError(t, err)
	assert.Len(t, engine.channels["c-ses"].users, 2)
	assert.Equal(t, 1, engine.SessionCount(), "ayni kanal tek oturumdur")

	t.Run("rejoin eski baglantiyi degistirir", func(t *testing.T) {
		userA := engine.channels["c-ses"].users["u-a"]
		old := userA.pc

		// Yayındaki kullanıcının aynası reconnect'te taşınmalı: diğer
		// katılımcıların bağlantısına eklenmiş track objesi aynı kalır,
		// dinleyiciler kopmayı fark etmez.
		mirror, err := webrtc.NewTrackLocalStaticRTP(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			"audio-u-a", "meydan-audio",
		)
		require.NoError(t, err)
		userA.localTrack = mirror
		subscribedB := len(engine.channels["c-ses"].users["u-b"].subscribed)

		_, err = engine.HandleOffer("c-ses", "u-a", clientOffer(t))
		require.NoError(t, err)
		assert.Len(t, engine.channels["c-ses"].users, 2)

		rejoined := engine.channels["c-ses"].users["u-a"]
		assert.NotSame(t, old, rejoined.pc)
		assert.Same(t, mirror, rejoined.localTrack, "ayna track reconnect'te korunmali")
		assert.Len(t, engine.channels["c-ses"].users["u-b"].subscribed, subscribedB,
			"dinleyicinin abonelik defteri degismemeli")
	})

	t.Run("bozuk offer", func(t *testing.T) {
		_, err := engine.HandleOffer("c-ses", "u-c", "bu bir sdp degil")
		assert.Error(t, err)
	})
}

func TestEngineKanalDolu(t *testing.T) {
	engine := newTestEngine(t, 1)

	_, err := engine.HandleOffer("c-ses", "u-a", clientOffer(t))
	require.NoError(t, err)

	_, err = engine.HandleOffer("c-ses", "u-b", clientOffer(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")

	// Rejoin mevcut oturumu yenilediğinden sınırdan muaftır.
	_, err = engine.HandleOffer("c-ses", "u-a", clientOffer(t))
	assert.NoError(t, err)
}

func TestEngineHandleSignal(t *testing.T) {
	engine := newTestEngine(t, 0)

	type pushRec struct {
		userID     string
		channelID  string
		signalType string
		payload    string
	}
	var mu sync.Mutex
	var pushes []pushRec
	engine.SetSignalFunc(func(userID, channelID, signalType, payload string) {
		mu.Lock()
		defer mu.Unlock()
		pushes = append(pushes, pushRec{userID, channelID, signalType, payload})
	})

	require.NoError(t, engine.HandleSignal("u-a", "c-ses", "offer", clientOffer(t)))

	mu.Lock()
	require.Len(t, pushes, 1)
	answer := pushes[0]
	mu.Unlock()
	assert.Equal(t, "u-a", answer.userID)
	assert.Equal(t, "c-ses", answer.channelID)
	assert.Equal(t, "answer", answer.signalType)
	assert.Contains(t, answer.payload, "opus")

	t.Run("bilinmeyen sinyal tipi", func(t *testing.T) {
		assert.Error(t, engine.HandleSignal("u-a", "c-ses", "fax", "x"))
	})

	t.Run("bilinmeyen peer loglanip gecilir", func(t *testing.T) {
		// Candidate'lar offer/answer ile yarışabilir; hata dönmek
		// client'ı sebepsiz düşürür.
		assert.NoError(t, engine.HandleSignal("u-yok", "c-ses", "answer", "sdp"))
		assert.NoError(t, engine.HandleSignal("u-yok", "c-ses", "ice", "{}"))
	})
}

func TestEngineCandidate(t *testing.T) {
	engine := newTestEngine(t, 0)
	_, err := engine.HandleOffer("c-ses", "u-a", clientOffer(t))
	require.NoError(t, err)

	candidate := `{"candidate":"candidate:1 1 udp 2130706431 127.0.0.1 40000 typ host","sdpMid":"0","sdpMLineIndex":0}`
	assert.NoError(t, engine.HandleCandidate("c-ses", "u-a", candidate))

	t.Run("bozuk candidate json", func(t *testing.T) {
		assert.Error(t, engine.HandleCandidate("c-ses", "u-a", "bozuk"))
	})
}

func TestEngineLeave(t *testing.T) {
	engine := newTestEngine(t, 0)
	_, err := engine.HandleOffer("c-1", "u-a", clientOffer(t))
	require.NoError(t, err)
	_, err = engine.HandleOffer("c-1", "u-b", clientOffer(t))
	require.NoError(t, err)
	_, err = engine.HandleOffer("c-2", "u-b", clientOffer(t))
	require.NoError(t, err)
	assert.Equal(t, 2, engine.SessionCount())

	engine.Leave("c-1", "u-a")
	assert.Len(t, engine.channels["c-1"].users, 1)

	// Bilinmeyen kanal/kullanıcı no-op.
	engine.Leave("c-yok", "u-a")
	engine.Leave("c-1", "u-yok")
	engine.Renegotiate("c-yok")

	// Boşalan kanallar silinir.
	engine.LeaveAll("u-b")
	assert.Zero(t, engine.SessionCount())
}

func TestSanitizePacket(t *testing.T) {
	packet := &rtp.Packet{}
	require.NoError(t, packet.SetExtension(1, []byte{0x2a}))
	require.True(t, packet.Extension)

	sanitizePacket(packet)
	assert.False(t, packet.Extension)
	assert.Nil(t, packet.Extensions)
}
