// Package services — server (topluluk sunucusu) iş mantığı.
//
// Server yaşam döngüsü:
//   - Create: sunucu + #general (text) + Voice (voice) kanalları +
//     @everyone rolü tek akışta kurulur; kurucu owner ve ilk üyedir
//   - Join: ban kontrolü → sahipsiz sunucuyu devralma → üyelik →
//     kanallara hub aboneliği → MemberJoin broadcast
//   - Leave: owner ayrılamaz → üyelik silinir → abonelikler düşer →
//     MemberLeave broadcast
//   - Delete: sadece owner; kanallar/mesajlar/üyelikler/roller FK cascade
//     ile birlikte gider
package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// SubscriptionManager, hub'ın kanal aboneliği yüzeyi. Service katmanı
// üyelik değişimlerinde abonelikleri buradan günceller; EventPublisher
// gibi main'de *ws.Hub ile doldurulur.
type SubscriptionManager interface {
	Subscribe(channelID, userID string)
	Unsubscribe(channelID, userID string)
	RemoveChannel(channelID string)
}

// ServerService, sunucu operasyonları için iş mantığı interface'i.
type ServerService interface {
	// List, kullanıcının üyesi olduğu sunucuları döner.
	List(ctx context.Context, userID string) ([]models.Server, error)

	// Get, tek bir sunucuyu döner.
	Get(ctx context.Context, serverID string) (*models.Server, error)

	// Create, yeni sunucuyu varsayılan kanalları ve @everyone rolüyle kurar.
	Create(ctx context.Context, ownerID string, req *models.CreateServerRequest) (*models.Server, error)

	// Update, sunucu bilgilerini günceller ve ServerUpdate yayınlar.
	Update(ctx context.Context, serverID string, req *models.UpdateServerRequest) (*models.Server, error)

	// Delete, sunucuyu siler. Sadece owner silebilir.
	Delete(ctx context.Context, serverID, actorID string) error

	// Join, kullanıcıyı sunucuya üye yapar. Banlıysa pkg.ErrForbidden.
	// Sahipsiz sunucuya ilk katılan sahipliği devralır.
	Join(ctx context.Context, user *models.User, serverID string) (*models.Server, error)

	// Leave, üyeliği sonlandırır. Owner ayrılamaz (pkg.ErrBadRequest).
	Leave(ctx context.Context, userID, serverID string) error
}

type serverService struct {
	serverRepo  repository.ServerRepository
	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
	roleRepo    repository.RoleRepository
	banRepo     repository.BanRepository
	hub         ws.EventPublisher
	subs        SubscriptionManager
}

// NewServerService, constructor.
func NewServerService(
	serverRepo repository.ServerRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	roleRepo repository.RoleRepository,
	banRepo repository.BanRepository,
	hub ws.EventPublisher,
	subs SubscriptionManager,
) ServerService {
	return &serverService{
		serverRepo:  serverRepo,
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
		roleRepo:    roleRepo,
		banRepo:     banRepo,
		hub:         hub,
		subs:        subs,
	}
}

func (s *serverService) List(ctx context.Context, userID string) ([]models.Server, error) {
	serverIDs, err := s.memberRepo.GetServerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	servers := make([]models.Server, 0, len(serverIDs))
	for _, id := range serverIDs {
		server, err := s.serverRepo.GetByID(ctx, id)
		if err != nil {
			// Yarışta silinen sunucu listeden düşer, istek başarısız olmaz.
			if errors.Is(err, pkg.ErrNotFound) {
				continue
			}
			return nil, err
		}
		servers = append(servers, *server)
	}
	return servers, nil
}

func (s *serverService) Get(ctx context.Context, serverID string) (*models.Server, error) {
	return s.serverRepo.GetByID(ctx, serverID)
}

func (s *serverService) Create(ctx context.Context, ownerID string, req *models.CreateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	server := &models.Server{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Name:    req.Name,
		OwnerID: ownerID,
	}
	if req.E2EEEnabled != nil {
		server.E2EEEnabled = *req.E2EEEnabled
	}

	if err := s.serverRepo.Create(ctx, server); err != nil {
		return nil, err
	}

	if err := s.memberRepo.Add(ctx, &models.Member{ServerID: server.ID, UserID: ownerID}); err != nil {
		return nil, err
	}

	// Varsayılan kanallar: her sunucu bir text + bir voice kanalıyla doğar.
	general := &models.Channel{
		ID:       uuid.Must(uuid.NewV7()).String(),
		ServerID: server.ID,
		Name:     "general",
		Type:     models.ChannelTypeText,
		Position: 0,
	}
	voice := &models.Channel{
		ID:       uuid.Must(uuid.NewV7()).String(),
		ServerID: server.ID,
		Name:     "Voice",
		Type:     models.ChannelTypeVoice,
		Position: 1,
	}
	for _, channel := range []*models.Channel{general, voice} {
		if err := s.channelRepo.Create(ctx, channel); err != nil {
			return nil, err
		}
		s.subs.Subscribe(channel.ID, ownerID)
	}

	everyone := &models.Role{
		ID:          uuid.Must(uuid.NewV7()).String(),
		ServerID:    server.ID,
		Name:        models.EveryoneRoleName,
		Permissions: models.PermSendMessages,
		IsEveryone:  true,
	}
	if err := s.roleRepo.Create(ctx, everyone); err != nil {
		return nil, err
	}

	// Kurucunun açık oturumları yeni sunucuyu anında listesine ekler.
	s.hub.BroadcastToUser(ownerID, ws.Event{
		Type: ws.EventServerCreate,
		Data: ws.ServerCreateData{Server: server.Public()},
	})

	log.Printf("[server] created server %s (%s) by %s", server.Name, server.ID, ownerID)
	return server, nil
}

func (s *serverService) Update(ctx context.Context, serverID string, req *models.UpdateServerRequest) (*models.Server, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		server.Name = *req.Name
	}

	if err := s.serverRepo.Update(ctx, server); err != nil {
		return nil, err
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventServerUpdate,
		Data: ws.ServerUpdateData{Server: server.Public()},
	})
	return server, nil
}

func (s *serverService) Delete(ctx context.Context, serverID, actorID string) error {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server.OwnerID != actorID {
		return fmt.Errorf("%w: only the server owner can delete it", pkg.ErrForbidden)
	}

	// Abonelikler DB silmeden önce düşürülür: kanal listesi cascade ile
	// gidince hub'daki kayıtları bulmanın yolu kalmaz.
	channels, err := s.channelRepo.GetByServerID(ctx, serverID)
	if err == nil {
		for _, channel := range channels {
			s.subs.RemoveChannel(channel.ID)
		}
	}

	if err := s.serverRepo.Delete(ctx, serverID); err != nil {
		return err
	}

	log.Printf("[server] deleted server %s by owner %s", serverID, actorID)
	return nil
}

func (s *serverService) Join(ctx context.Context, user *models.User, serverID string) (*models.Server, error) {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	banned, err := s.banRepo.IsBanned(ctx, serverID, user.ID)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, fmt.Errorf("%w: you are banned from this server", pkg.ErrForbidden)
	}

	// Sahipsiz sunucuya ilk katılan sahipliği devralır. Devralma repo'da
	// koşullu UPDATE ile atomiktir: yarışan iki ilk katılımdan yalnızca biri
	// kazanır, kaybeden sahipliğe dokunmaz ve ServerUpdate yayınlamaz.
	// Broadcast üyelikten önce yapılır ki mevcut üyeler owner değişimini
	// hemen görsün.
	if server.Unclaimed() {
		claimed, err := s.serverRepo.ClaimOwnership(ctx, serverID, user.ID)
		if err != nil {
			return nil, err
		}
		if claimed {
			server.OwnerID = user.ID
			log.Printf("[server] user %s claimed ownership of server %s on join", user.ID, serverID)
			s.hub.BroadcastToServer(serverID, ws.Event{
				Type: ws.EventServerUpdate,
				Data: ws.ServerUpdateData{Server: server.Public()},
			})
		} else if fresh, err := s.serverRepo.GetByID(ctx, serverID); err == nil {
			// Yarışı başka bir katılım kazandı; dönen payload güncel sahibi taşır.
			server = fresh
		}
	}

	err = s.memberRepo.Add(ctx, &models.Member{ServerID: serverID, UserID: user.ID})
	if err != nil {
		// Tekrarlanan join idempotent'tir — broadcast da tekrarlanmaz.
		if errors.Is(err, pkg.ErrAlreadyExists) {
			return server, nil
		}
		return nil, err
	}

	// Üye, bağlıysa sunucunun kanallarını canlı almaya hemen başlar;
	// WS reconnect beklemez.
	channels, err := s.channelRepo.GetByServerID(ctx, serverID)
	if err == nil {
		for _, channel := range channels {
			s.subs.Subscribe(channel.ID, user.ID)
		}
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventMemberJoin,
		Data: ws.MemberJoinData{ServerID: serverID, User: user.Public()},
	})

	// Katılan kullanıcıya sunucu, diğer üyelere MemberJoin gider.
	s.hub.BroadcastToUser(user.ID, ws.Event{
		Type: ws.EventServerCreate,
		Data: ws.ServerCreateData{Server: server.Public()},
	})

	log.Printf("[server] user %s joined server %s", user.ID, serverID)
	return server, nil
}

func (s *serverService) Leave(ctx context.Context, userID, serverID string) error {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server.OwnerID == userID {
		return fmt.Errorf("%w: server owners cannot leave their own server", pkg.ErrBadRequest)
	}

	if err := s.memberRepo.Remove(ctx, serverID, userID); err != nil {
		return err
	}

	channels, err := s.channelRepo.GetByServerID(ctx, serverID)
	if err == nil {
		for _, channel := range channels {
			s.subs.Unsubscribe(channel.ID, userID)
		}
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventMemberLeave,
		Data: ws.MemberLeaveData{ServerID: serverID, UserID: userID},
	})

	log.Printf("[server] user %s left server %s", userID, serverID)
	return nil
}
