package sfu

import (
	"errors"
	"io"
	"log"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Channel, tek bir ses kanalının SFU oturumu.
type Channel struct {
	id    string
	users map[string]*User
}

func newChannel(id string) *Channel {
	return &Channel{id: id, users: make(map[string]*User)}
}

// User, bir katılımcının SFU tarafındaki durumu.
type User struct {
	id string
	pc *webrtc.PeerConnection

	// localTrack: kullanıcının uplink'inin aynası. İlk remote track
	// geldiğinde tembel oluşturulur; reconnect'lerde korunur.
	localTrack *webrtc.TrackLocalStaticRTP

	// subscribed: bu kullanıcının bağlantısına downlink olarak eklenmiş
	// track ID'leri. Renegotiation'da mükerrer AddTrack'i önler.
	subscribed map[string]bool
}

// attachMissing, kanaldaki diğer katılımcıların henüz eklenmemiş
// aynalarını kullanıcının bağlantısına ekler; eklenen sayıyı döner.
// Caller engine kilidini tutar.
func (ch *Channel) attachMissing(user *User) int {
	added := 0
	for otherID, other := range ch.users {
		if otherID == user.id || other.localTrack == nil {
			continue
		}

		trackID := other.localTrack.ID()
		if user.subscribed[trackID] {
			continue
		}

		if _, err := user.pc.AddTrack(other.localTrack); err != nil {
			log.Printf("[sfu] failed to attach track %s → %s: %v", otherID, user.id, err)
			continue
		}
		user.subscribed[trackID] = true
		added++
	}
	return added
}

// onRemoteTrack, kullanıcının uplink'i yayına başladığında çalışır.
// İlk track'te ayna oluşturulur ve kanal renegotiate edilir ki mevcut
// katılımcılar yeni sesi alsın; ardından RTP kopyalama döngüsüne girilir.
//
// pion, OnTrack'i kendi goroutine'inde çağırır — döngü burada bloklayabilir.
func (e *Engine) onRemoteTrack(ch *Channel, user *User, remote *webrtc.TrackRemote) {
	e.mu.Lock()
	local := user.localTrack
	created := false
	if local == nil {
		var err error
		local, err = webrtc.NewTrackLocalStaticRTP(
			remote.Codec().RTPCodecCapability,
			"audio-"+user.id,
			"meydan-audio",
		)
		if err != nil {
			e.mu.Unlock()
			log.Printf("[sfu] failed to create mirror track for %s: %v", user.id, err)
			return
		}
		user.localTrack = local
		created = true
	}
	e.mu.Unlock()

	if created {
		go e.Renegotiate(ch.id)
	}

	for {
		packet, _, err := remote.ReadRTP()
		if err != nil {
			// Bağlantı kapandı veya akış bitti; döngüyle birlikte
			// bu uplink'in ömrü de biter.
			return
		}

		sanitizePacket(packet)

		if err := local.WriteRTP(packet); err != nil {
			if errors.Is(err, io.ErrClosedPipe) {
				// Henüz dinleyici bağlanmadı; paket düşer, akış sürer.
				continue
			}
			return
		}
	}
}

// sanitizePacket, paketi yönlendirmeden önce RTP header extension'larını
// temizler. Client'ın eklediği ses seviyesi gibi extension'lar diğer
// katılımcılara olduğu gibi sızmasın.
func sanitizePacket(p *rtp.Packet) {
	p.Extension = false
	p.Extensions = nil
}
