// Package sfu, pion/webrtc üzerine kurulu süreç-içi bir Selective
// Forwarding Unit sağlar.
//
// SFU nedir?
// Her katılımcı ses akışını sunucuya gönderir; sunucu akışı decode
// etmeden aynı kanaldaki diğer katılımcılara yönlendirir. P2P mesh'e
// göre client başına tek uplink yeter: N katılımcılı kanalda client
// N-1 bağlantı yerine 1 bağlantı kurar.
//
// Medya akışı:
//
//	client A ──RTP──▶ TrackRemote ──copy──▶ TrackLocal(A) ──▶ client B, C...
//
// Her kullanıcının tek bir "ayna" track'i vardır (audio-<userID>).
// Diğer kullanıcıların peer bağlantılarına bu ayna eklenir; RTP
// paketleri remote'tan aynaya kopyalanır.
//
// Signaling, WebSocket gateway'i üzerinden WebRTCSignal event'leriyle
// taşınır: client offer gönderir, SFU answer döner; kanala yeni
// katılımcı geldiğinde SFU mevcut katılımcılara renegotiation offer'ı
// push eder.
package sfu

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// gatherTimeout: ICE candidate toplama için üst sınır. Trickle ICE
// kullanılmaz; tüm candidate'lar SDP'ye gömülür. Süre dolarsa eldeki
// local description ile devam edilir.
const gatherTimeout = 3 * time.Second

// DefaultMaxSessions, kanal başına katılımcı üst sınırının varsayılanı.
const DefaultMaxSessions = 64

// Config, SFU'nun ağ ayarları.
type Config struct {
	// Host ve Port: tüm peer'ların paylaştığı tek UDP socket'in adresi.
	// ICEUDPMux sayesinde port aralığı açmak gerekmez — NAT/firewall
	// yapılandırması tek porta iner.
	Host string
	Port int

	// PublicIP: NAT arkasında çalışırken ICE candidate'larında duyurulacak
	// dış IP. Boşsa socket'in kendi adresi kullanılır.
	PublicIP string

	// MaxSessions: kanal başına katılımcı sınırı. 0 ⇒ DefaultMaxSessions.
	MaxSessions int
}

// SignalFunc, SFU'nun bir kullanıcıya sinyal (renegotiation offer, answer)
// iletmek için çağırdığı callback. Gateway'e wiring aşamasında bağlanır;
// sfu paketi ws paketini tanımaz.
type SignalFunc func(userID, channelID, signalType, payload string)

// Engine, tüm ses kanallarının SFU oturumlarını yönetir.
type Engine struct {
	api *webrtc.API
	cfg Config

	mu       sync.Mutex
	channels map[string]*Channel

	signal SignalFunc
}

// NewEngine, tek UDP port üzerinde çalışan bir SFU oluşturur.
// Socket bind burada yapılır: port alınamazsa süreç başlamadan hata verir.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}

	addr := &net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: cfg.Port}
	udpListener, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind voice udp socket %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	settings := webrtc.SettingEngine{}
	settings.SetICEUDPMux(webrtc.NewICEUDPMux(nil, udpListener))
	if cfg.PublicIP != "" {
		settings.SetNAT1To1IPs([]string{cfg.PublicIP}, webrtc.ICECandidateTypeHost)
	}

	// Ses platformuyuz: sadece Opus. Video codec'leri register edilmez,
	// SDP müzakeresi de sade kalır.
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:     webrtc.MimeTypeOpus,
			ClockRate:    48000,
			Channels:     2,
			SDPFmtpLine:  "minptime=10;useinbandfec=1",
			RTCPFeedback: nil,
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("failed to register opus codec: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithSettingEngine(settings),
		webrtc.WithInterceptorRegistry(registry),
	)

	log.Printf("[sfu] listening on udp %s:%d (max %d participants per channel)", cfg.Host, cfg.Port, cfg.MaxSessions)

	return &Engine{
		api:      api,
		cfg:      cfg,
		channels: make(map[string]*Channel),
	}, nil
}

// SetSignalFunc, sinyal push callback'ini bağlar. Run öncesi wiring'de çağrılır.
func (e *Engine) SetSignalFunc(fn SignalFunc) {
	e.signal = fn
}

// HandleSignal, gateway'den gelen bir WebRTC sinyalini türüne göre işler.
// Hatalar sadece ilgili kullanıcıyı etkiler; kanaldaki diğer peer'lar
// yoluna devam eder.
func (e *Engine) HandleSignal(userID, channelID, signalType, payload string) error {
	switch signalType {
	case "offer":
		answer, err := e.HandleOffer(channelID, userID, payload)
		if err != nil {
			return err
		}
		e.push(userID, channelID, "answer", answer)
		return nil

	case "answer":
		// Renegotiation offer'ımıza client'ın yanıtı.
		return e.handleAnswer(channelID, userID, payload)

	case "ice":
		return e.HandleCandidate(channelID, userID, payload)

	default:
		return fmt.Errorf("unknown signal type: %q", signalType)
	}
}

// HandleOffer, kullanıcının SDP offer'ını işleyip answer SDP'si döner.
//
// Aynı kullanıcı tekrar offer gönderirse (reconnect) eski peer bağlantısı
// kapatılır ama ayna track'i korunur: diğer katılımcıların bağlantılarına
// eklenmiş track objesi yaşamaya devam eder, yeni bağlantının RTP'si
// aynı aynaya akar. Dinleyiciler kopmayı fark etmez.
func (e *Engine) HandleOffer(channelID, userID, sdpOffer string) (string, error) {
	e.mu.Lock()

	ch, ok := e.channels[channelID]
	if !ok {
		ch = newChannel(channelID)
		e.channels[channelID] = ch
	}

	user, rejoin := ch.users[userID]
	if !rejoin && len(ch.users) >= e.cfg.MaxSessions {
		e.mu.Unlock()
		return "", fmt.Errorf("voice channel %s is full (%d participants)", channelID, len(ch.users))
	}

	var preservedTrack *webrtc.TrackLocalStaticRTP
	if rejoin {
		user.pc.Close()
		preservedTrack = user.localTrack
		log.Printf("[sfu] reconnect: user %s in channel %s", userID, channelID)
	}

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	user = &User{
		id:         userID,
		pc:         pc,
		localTrack: preservedTrack,
		subscribed: make(map[string]bool),
	}
	ch.users[userID] = user

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		e.onRemoteTrack(ch, user, remote)
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("[sfu] ice state for %s in %s: %s", userID, channelID, state)
	})

	// Promise, SetRemoteDescription'dan ÖNCE alınmalı: pion, gathering
	// durumunu ancak kayıtlı gözlemcilere bildirir.
	gatherComplete := webrtc.GatheringCompletePromise(pc)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdpOffer}
	if err := pc.SetRemoteDescription(offer); err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to apply offer: %w", err)
	}

	// Kanaldaki diğer katılımcıların aynaları yeni bağlantıya eklenir.
	ch.attachMissing(user)

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	e.mu.Unlock()

	select {
	case <-gatherComplete:
	case <-time.After(gatherTimeout):
		log.Printf("[sfu] ice gathering timed out for %s, continuing with partial candidates", userID)
	}

	local := pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("local description missing for %s", userID)
	}
	return local.SDP, nil
}

// handleAnswer, sunucunun push ettiği renegotiation offer'ına client'ın
// verdiği yanıtı peer bağlantısına uygular.
func (e *Engine) handleAnswer(channelID, userID, sdpAnswer string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	user := e.lookupUser(channelID, userID)
	if user == nil {
		log.Printf("[sfu] answer from unknown peer %s in %s", userID, channelID)
		return nil
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdpAnswer}
	if err := user.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to apply answer: %w", err)
	}
	return nil
}

// HandleCandidate, client'tan gelen ICE candidate'ı peer bağlantısına ekler.
// Bilinmeyen peer loglanıp geçilir: candidate'lar offer/answer ile yarışabilir.
func (e *Engine) HandleCandidate(channelID, userID, candidateJSON string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	user := e.lookupUser(channelID, userID)
	if user == nil {
		log.Printf("[sfu] candidate from unknown peer %s in %s", userID, channelID)
		return nil
	}

	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(candidateJSON), &candidate); err != nil {
		return fmt.Errorf("failed to parse candidate: %w", err)
	}
	if err := user.pc.AddICECandidate(candidate); err != nil {
		return fmt.Errorf("failed to add candidate: %w", err)
	}
	return nil
}

// Renegotiate, kanaldaki her katılımcıya eksik kalan aynaları ekler ve
// değişiklik olan bağlantılara taze offer push eder. Yeni bir katılımcının
// sesi yayına başladığında çağrılır.
func (e *Engine) Renegotiate(channelID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[channelID]
	if !ok {
		return
	}

	for userID, user := range ch.users {
		if ch.attachMissing(user) == 0 {
			continue
		}

		offer, err := user.pc.CreateOffer(nil)
		if err != nil {
			log.Printf("[sfu] failed to create renegotiation offer for %s: %v", userID, err)
			continue
		}
		if err := user.pc.SetLocalDescription(offer); err != nil {
			log.Printf("[sfu] failed to set renegotiation description for %s: %v", userID, err)
			continue
		}

		e.push(userID, channelID, "offer", offer.SDP)
	}
}

// Leave, kullanıcının peer bağlantısını kapatıp kanaldan düşürür.
// Boşalan kanal kaydı silinir.
func (e *Engine) Leave(channelID, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, ok := e.channels[channelID]
	if !ok {
		return
	}
	user, ok := ch.users[userID]
	if !ok {
		return
	}

	user.pc.Close()
	delete(ch.users, userID)
	if len(ch.users) == 0 {
		delete(e.channels, channelID)
	}
	log.Printf("[sfu] user %s left channel %s", userID, channelID)
}

// LeaveAll, kullanıcıyı bulunduğu tüm kanallardan düşürür.
// Gateway bağlantısı koptuğunda çağrılır.
func (e *Engine) LeaveAll(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for channelID, ch := range e.channels {
		user, ok := ch.users[userID]
		if !ok {
			continue
		}
		user.pc.Close()
		delete(ch.users, userID)
		if len(ch.users) == 0 {
			delete(e.channels, channelID)
		}
		log.Printf("[sfu] user %s removed from channel %s (disconnect)", userID, channelID)
	}
}

// SessionCount, aktif SFU oturumu olan kanal sayısını döndürür.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}

// lookupUser, kanal+kullanıcı çiftini çözer. Caller e.mu tutar.
func (e *Engine) lookupUser(channelID, userID string) *User {
	ch, ok := e.channels[channelID]
	if !ok {
		return nil
	}
	return ch.users[userID]
}

// push, sinyali gateway callback'i üzerinden kullanıcıya iletir.
func (e *Engine) push(userID, channelID, signalType, payload string) {
	if e.signal == nil {
		log.Printf("[sfu] signal callback not wired, dropping %s", signalType)
		return
	}
	e.signal(userID, channelID, signalType, payload)
}
