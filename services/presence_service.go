// Package services — presence (çevrimiçi durum) ve typing takibi.
//
// Presence neden in-memory?
// Durum bilgisi WebSocket bağlantısına bağlıdır: process yeniden
// başladığında tüm bağlantılar düşer, herkes offline olur. DB'ye yazmak
// her connect/disconnect'te gereksiz I/O üretir ve restart sonrası
// bayat "online" kayıtları bırakır.
//
// Typing kayıtları kendi kendine eskir: client her tuş vuruşunda değil,
// birkaç saniyede bir typing isteği atar. 8 saniye içinde yenilenmeyen
// kayıt "yazmayı bıraktı" sayılır ve sweeper tarafından süpürülür.
package services

import (
	"sync"
	"time"

	"github.com/candemir/meydan/models"
)

// typingTTL: bir typing kaydının geçerli kaldığı süre. Client'lar
// yazmaya devam ederken bu süreden kısa aralıklarla yeniler.
const typingTTL = 8 * time.Second

// typingSweepInterval: sweeper'ın bayat typing kayıtlarını temizleme sıklığı.
const typingSweepInterval = 10 * time.Second

// PresenceService, kullanıcı durumlarını ve typing göstergelerini yönetir.
//
// Metotlar bloklamaz ve error dönmez: presence best-effort bir bilgidir,
// kaybolan bir durum güncellemesi bir sonraki güncellemeyle düzelir.
type PresenceService interface {
	// SetStatus, kullanıcının durumunu günceller. Gateway connect'te
	// online, disconnect'te offline çağırır.
	SetStatus(userID string, status models.UserStatus)

	// GetStatus, kullanıcının anlık durumunu döner. Bilinmeyen kullanıcı
	// offline'dır.
	GetStatus(userID string) models.UserStatus

	// GetBulk, üye listesi yanıtları için toplu durum sorgusu.
	// Kayıtsız kullanıcılar offline olarak doldurulur.
	GetBulk(userIDs []string) map[string]models.UserStatus

	// SetTyping, kullanıcının kanalda yazmakta olduğunu işaretler.
	SetTyping(channelID, userID string)

	// TypingUsers, kanalda son typingTTL içinde yazan kullanıcı ID'lerini döner.
	TypingUsers(channelID string) []string

	// Close, sweeper goroutine'ini durdurur.
	Close()
}

type presenceService struct {
	mu       sync.RWMutex
	statuses map[string]models.UserStatus
	// typing: channelID → (userID → son typing zamanı)
	typing map[string]map[string]time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewPresenceService, presence registry'sini oluşturur ve sweeper'ı başlatır.
func NewPresenceService() PresenceService {
	s := &presenceService{
		statuses: make(map[string]models.UserStatus),
		typing:   make(map[string]map[string]time.Time),
		done:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *presenceService) SetStatus(userID string, status models.UserStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Offline kayıt tutulmaz — map sadece aktif kullanıcıları içerir,
	// lookup'ta eksik kayıt zaten offline demektir.
	if status == models.UserStatusOffline {
		delete(s.statuses, userID)
		return
	}
	s.statuses[userID] = status
}

func (s *presenceService) GetStatus(userID string) models.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status, ok := s.statuses[userID]; ok {
		return status
	}
	return models.UserStatusOffline
}

func (s *presenceService) GetBulk(userIDs []string) map[string]models.UserStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]models.UserStatus, len(userIDs))
	for _, id := range userIDs {
		if status, ok := s.statuses[id]; ok {
			result[id] = status
		} else {
			result[id] = models.UserStatusOffline
		}
	}
	return result
}

func (s *presenceService) SetTyping(channelID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.typing[channelID]
	if !ok {
		users = make(map[string]time.Time)
		s.typing[channelID] = users
	}
	users[userID] = time.Now()
}

func (s *presenceService) TypingUsers(channelID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, ok := s.typing[channelID]
	if !ok {
		return nil
	}

	cutoff := time.Now().Add(-typingTTL)
	ids := make([]string, 0, len(users))
	for id, at := range users {
		if at.After(cutoff) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func (s *presenceService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *presenceService) sweepLoop() {
	ticker := time.NewTicker(typingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(time.Now())
		case <-s.done:
			return
		}
	}
}

// sweepOnce, now anına göre bayat typing kayıtlarını ve boş kalan kanal
// map'lerini temizler. sweepLoop'tan ayrı tutulur ki zaman enjekte
// edilerek test edilebilsin.
func (s *presenceService) sweepOnce(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-typingTTL)
	for channelID, users := range s.typing {
		for userID, at := range users {
			if !at.After(cutoff) {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(s.typing, channelID)
		}
	}
}
