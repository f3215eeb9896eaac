// Package services — voice (ses) katılımcı registry'si.
//
// VoiceService kimin hangi ses kanalında olduğunu ve mute/deafen
// durumlarını tutar. Ses verisinin kendisi buradan geçmez — RTP akışı
// in-process SFU'nun işidir; burası sadece "kim nerede" kaydıdır.
//
// Neden in-memory (DB değil)?
// Voice state geçicidir: process yeniden başladığında tüm WebSocket ve
// WebRTC bağlantıları düşer, registry'nin sıfırlanması doğru davranıştır.
// sync.RWMutex ile concurrent erişim korunur.
//
// Kayıt akışı:
//  1. Client REST ile join olur → registry'ye eklenir, kanala
//     VoiceStateUpdate{joined:true} yayınlanır, katılımcıya SFU erişim
//     bilgisi (VoiceServerUpdate) gönderilir
//  2. Client WS üzerinden SFU'ya offer gönderir → medya kurulur
//  3. Leave veya WS kopması → SFU peer kapatılır, registry'den düşülür,
//     kanala VoiceStateUpdate{joined:false} yayınlanır
package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// VoiceRelay, medya tarafının katılımcı yaşam döngüsüne bağlanan yüzü.
// sfu.Engine bu interface'i sağlar; service pion detaylarını görmez.
type VoiceRelay interface {
	// Leave, kullanıcının kanaldaki peer bağlantısını kapatır.
	// Peer yoksa no-op'tur.
	Leave(channelID, userID string)
	// LeaveAll, kullanıcının tüm kanallardaki peer bağlantılarını kapatır.
	LeaveAll(userID string)
}

// VoiceService, ses kanalı katılım operasyonları için iş mantığı interface'i.
type VoiceService interface {
	// Join, kullanıcıyı ses kanalına kaydeder ve güncel katılımcı
	// listesini döner. Kullanıcı başka bir kanaldaysa önce oradan
	// (farewell broadcast'i ile) çıkarılır. Aynı kanala tekrar join
	// duplicate kayıt oluşturmaz.
	Join(ctx context.Context, user *models.User, channelID string) ([]models.VoiceParticipant, error)

	// Leave, kullanıcıyı kanaldan çıkarır. Kanalda değilse no-op.
	Leave(ctx context.Context, userID, channelID string) error

	// UpdateState, mute/deafen durumunu günceller ve kanala yayınlar.
	// Kullanıcı kanalda değilse pkg.ErrNotFound.
	UpdateState(ctx context.Context, userID, channelID string, req *models.UpdateVoiceStateRequest) error

	// Participants, kanaldaki katılımcıların anlık listesini döner.
	Participants(channelID string) []models.VoiceParticipant

	// LeaveAll, kullanıcıyı bulunduğu tüm kanallardan çıkarır ve her biri
	// için farewell yayınlar. Gateway disconnect temizliğinde çağrılır;
	// SFU peer'ları o akışta gateway tarafından zaten kapatılmıştır.
	LeaveAll(userID string)
}

type voiceService struct {
	mu sync.RWMutex
	// rooms: channelID → katılımcı listesi. Slice yeterli — kanal başına
	// katılımcı sayısı küçüktür, linear scan map overhead'inden ucuz.
	rooms map[string][]models.VoiceParticipant

	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
	relay       VoiceRelay
	hub         ws.EventPublisher
	endpoint    string
}

// NewVoiceService, voice registry'sini oluşturur.
// endpoint, client'lara VoiceServerUpdate ile duyurulan SFU adresidir.
func NewVoiceService(
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	relay VoiceRelay,
	hub ws.EventPublisher,
	endpoint string,
) VoiceService {
	return &voiceService{
		rooms:       make(map[string][]models.VoiceParticipant),
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
		relay:       relay,
		hub:         hub,
		endpoint:    endpoint,
	}
}

func (s *voiceService) Join(ctx context.Context, user *models.User, channelID string) ([]models.VoiceParticipant, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.Type != models.ChannelTypeVoice {
		return nil, fmt.Errorf("%w: not a voice channel", pkg.ErrBadRequest)
	}

	isMember, err := s.memberRepo.IsMember(ctx, channel.ServerID, user.ID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: you are not a member of this server", pkg.ErrForbidden)
	}

	participant := models.VoiceParticipant{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		AvatarHash:  user.AvatarHash,
	}

	s.mu.Lock()

	// Implicit leave: bir kullanıcı aynı anda tek kanalda olabilir.
	// Önceki kanallardan sessizce değil, farewell broadcast'i ile çıkar —
	// oradaki client'lar listeyi güncelleyebilsin.
	left := s.removeLocked(user.ID, channelID)

	rejoin := false
	room := s.rooms[channelID]
	for i := range room {
		if room[i].UserID == user.ID {
			// Re-join: kayıt zaten var, profil alanlarını tazele.
			room[i] = participant
			rejoin = true
			break
		}
	}
	if !rejoin {
		s.rooms[channelID] = append(room, participant)
	}

	snapshot := s.snapshotLocked(channelID)
	s.mu.Unlock()

	for _, prevChannel := range left {
		s.relay.Leave(prevChannel, user.ID)
		s.broadcastLeave(prevChannel, user.ID)
	}

	// Re-join'de katılım zaten duyurulmuştur; tekrar yayınlamak
	// client'larda hayalet "katıldı" bildirimi üretir.
	if !rejoin {
		s.hub.BroadcastToChannel(channelID, ws.Event{
			Type: ws.EventVoiceStateUpdate,
			Data: ws.VoiceStateData{
				ChannelID: channelID,
				UserID:    user.ID,
				Joined:    true,
				User:      &models.UserPublic{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName, AvatarHash: user.AvatarHash},
			},
		})
	}

	// SFU erişim bilgisi sadece katılan kullanıcıya gider.
	s.hub.BroadcastToUser(user.ID, ws.Event{
		Type: ws.EventVoiceServerUpdate,
		Data: ws.VoiceServerData{Endpoint: s.endpoint},
	})

	log.Printf("[voice] %s joined channel %s (%d participants)", user.Username, channelID, len(snapshot))
	return snapshot, nil
}

func (s *voiceService) Leave(_ context.Context, userID, channelID string) error {
	s.mu.Lock()
	removed := s.removeFromChannelLocked(channelID, userID)
	s.mu.Unlock()

	// SFU peer'ı her durumda kapat: registry ile medya tarafı kısa süreli
	// tutarsız kalmış olabilir (ör. join sonrası REST leave yarışı).
	s.relay.Leave(channelID, userID)

	if removed {
		s.broadcastLeave(channelID, userID)
		log.Printf("[voice] %s left channel %s", userID, channelID)
	}
	return nil
}

func (s *voiceService) UpdateState(_ context.Context, userID, channelID string, req *models.UpdateVoiceStateRequest) error {
	s.mu.Lock()

	room := s.rooms[channelID]
	idx := -1
	for i := range room {
		if room[i].UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: not in this voice channel", pkg.ErrNotFound)
	}

	if req.Muted != nil {
		room[idx].Muted = *req.Muted
	}
	if req.Deafened != nil {
		room[idx].Deafened = *req.Deafened
	}
	updated := room[idx]
	s.mu.Unlock()

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventVoiceStateUpdate,
		Data: ws.VoiceStateData{
			ChannelID: channelID,
			UserID:    userID,
			Joined:    true,
			Muted:     updated.Muted,
			Deafened:  updated.Deafened,
			User:      &models.UserPublic{ID: updated.UserID, Username: updated.Username, DisplayName: updated.DisplayName, AvatarHash: updated.AvatarHash},
		},
	})
	return nil
}

func (s *voiceService) Participants(channelID string) []models.VoiceParticipant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(channelID)
}

func (s *voiceService) LeaveAll(userID string) {
	s.mu.Lock()
	left := s.removeLocked(userID, "")
	s.mu.Unlock()

	for _, channelID := range left {
		s.broadcastLeave(channelID, userID)
		log.Printf("[voice] %s left channel %s (disconnect)", userID, channelID)
	}
}

// removeLocked, kullanıcıyı exceptChannel dışındaki tüm kanallardan
// çıkarır ve çıkarıldığı kanal ID'lerini döner. Caller lock tutmalıdır.
func (s *voiceService) removeLocked(userID, exceptChannel string) []string {
	var left []string
	for channelID := range s.rooms {
		if channelID == exceptChannel {
			continue
		}
		if s.removeFromChannelLocked(channelID, userID) {
			left = append(left, channelID)
		}
	}
	return left
}

// removeFromChannelLocked, kullanıcıyı tek bir kanaldan çıkarır ve boş
// kalan kanal kaydını siler. Kullanıcı kanalda değilse false döner.
func (s *voiceService) removeFromChannelLocked(channelID, userID string) bool {
	room, ok := s.rooms[channelID]
	if !ok {
		return false
	}
	for i := range room {
		if room[i].UserID == userID {
			s.rooms[channelID] = append(room[:i], room[i+1:]...)
			if len(s.rooms[channelID]) == 0 {
				delete(s.rooms, channelID)
			}
			return true
		}
	}
	return false
}

// snapshotLocked, kanalın katılımcı listesinin kopyasını döner.
// Kopya döndürülür ki caller lock dışında slice'ı güvenle kullanabilsin.
func (s *voiceService) snapshotLocked(channelID string) []models.VoiceParticipant {
	room := s.rooms[channelID]
	snapshot := make([]models.VoiceParticipant, len(room))
	copy(snapshot, room)
	return snapshot
}

func (s *voiceService) broadcastLeave(channelID, userID string) {
	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventVoiceStateUpdate,
		Data: ws.VoiceStateData{
			ChannelID: channelID,
			UserID:    userID,
			Joined:    false,
		},
	})
}
