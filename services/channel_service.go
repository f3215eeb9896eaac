// Package services — kanal iş mantığı.
package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// ChannelService, kanal operasyonları için iş mantığı interface'i.
type ChannelService interface {
	// List, sunucunun kanallarını position sırasıyla döner.
	List(ctx context.Context, serverID string) ([]models.Channel, error)

	// Create, yeni kanal oluşturur, sunucu üyelerini abone eder ve
	// ChannelCreate yayınlar.
	Create(ctx context.Context, serverID string, req *models.CreateChannelRequest) (*models.Channel, error)

	// Delete, kanalı siler (mesajları cascade ile gider) ve hub
	// aboneliklerini temizler. Kanal başka sunucuya aitse pkg.ErrNotFound.
	Delete(ctx context.Context, serverID, channelID string) error

	// ChannelIDsForUser, kullanıcının üyesi olduğu tüm sunucuların kanal
	// ID'lerini döner. Gateway bağlantı kurulurken toplu abonelik için
	// çağırır.
	ChannelIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type channelService struct {
	channelRepo repository.ChannelRepository
	memberRepo  repository.MemberRepository
	hub         ws.EventPublisher
	subs        SubscriptionManager
}

// NewChannelService, constructor.
func NewChannelService(
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	hub ws.EventPublisher,
	subs SubscriptionManager,
) ChannelService {
	return &channelService{
		channelRepo: channelRepo,
		memberRepo:  memberRepo,
		hub:         hub,
		subs:        subs,
	}
}

func (s *channelService) List(ctx context.Context, serverID string) ([]models.Channel, error) {
	return s.channelRepo.GetByServerID(ctx, serverID)
}

func (s *channelService) Create(ctx context.Context, serverID string, req *models.CreateChannelRequest) (*models.Channel, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	channel := &models.Channel{
		ID:       uuid.Must(uuid.NewV7()).String(),
		ServerID: serverID,
		Name:     req.Name,
		Type:     models.ChannelType(req.Type),
	}

	if req.Position != nil {
		channel.Position = *req.Position
	} else {
		next, err := s.channelRepo.NextPosition(ctx, serverID)
		if err != nil {
			return nil, err
		}
		channel.Position = next
	}

	if err := s.channelRepo.Create(ctx, channel); err != nil {
		return nil, err
	}

	// Üyeler yeni kanala hemen abone edilir: ChannelCreate'i alan client
	// kanalı açtığında mesajlar zaten canlı akıyordur.
	userIDs, err := s.memberRepo.GetUserIDs(ctx, serverID)
	if err == nil {
		for _, userID := range userIDs {
			s.subs.Subscribe(channel.ID, userID)
		}
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventChannelCreate,
		Data: channel,
	})

	log.Printf("[channel] created channel %s (%s) in server %s", channel.Name, channel.ID, serverID)
	return channel, nil
}

func (s *channelService) Delete(ctx context.Context, serverID, channelID string) error {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	// Path'teki sunucu ile kanalın sunucusu eşleşmeli — başka sunucunun
	// kanalı bu route üzerinden silinemez.
	if channel.ServerID != serverID {
		return pkg.ErrNotFound
	}

	if err := s.channelRepo.Delete(ctx, channelID); err != nil {
		return err
	}

	s.subs.RemoveChannel(channelID)

	log.Printf("[channel] deleted channel %s from server %s", channelID, serverID)
	return nil
}

func (s *channelService) ChannelIDsForUser(ctx context.Context, userID string) ([]string, error) {
	channels, err := s.channelRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(channels))
	for _, channel := range channels {
		ids = append(ids, channel.ID)
	}
	return ids, nil
}
