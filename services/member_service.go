// Package services — üyelik ve moderasyon iş mantığı.
//
// Kick ve ban aynı iskeleti paylaşır: owner dokunulmazdır, üyelik
// silinir, kullanıcı sunucu kanallarından unsubscribe edilir ve
// MemberLeave broadcast edilir. Ban ek olarak bans tablosuna kayıt
// düşer; kayıt durduğu sürece join denemeleri reddedilir.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// StatusSource, presence registry'nin üye listesi tarafından kullanılan
// okuma yüzeyi. PresenceService sağlar.
type StatusSource interface {
	GetBulk(userIDs []string) map[string]models.UserStatus
}

// MemberService, üyelik operasyonları için iş mantığı interface'i.
type MemberService interface {
	// List, sunucu üyelerini presence durumlarıyla birlikte döner.
	List(ctx context.Context, serverID string) ([]models.Member, error)

	// Get, tek bir üyeyi presence durumuyla döner. Üye yoksa pkg.ErrNotFound.
	Get(ctx context.Context, serverID, userID string) (*models.Member, error)

	// UpdateNickname, üyenin takma adını değiştirir. Kullanıcı kendi
	// takma adını değiştirebilir; başkasınınki PermManageServer ister.
	UpdateNickname(ctx context.Context, serverID, targetUserID, actorID string, req *models.UpdateMemberRequest) (*models.Member, error)

	// Kick, üyeyi sunucudan atar. Owner atılamaz.
	Kick(ctx context.Context, serverID, targetUserID string) error

	// Ban, kullanıcıyı yasaklar ve üyeyse üyeliğini sonlandırır.
	Ban(ctx context.Context, serverID string, req *models.CreateBanRequest) error

	// Unban, yasağı kaldırır. Kayıt yoksa pkg.ErrNotFound.
	Unban(ctx context.Context, serverID, userID string) error

	// Bans, yasak listesini en yeniden eskiye döner.
	Bans(ctx context.Context, serverID string) ([]models.Ban, error)
}

type memberService struct {
	memberRepo  repository.MemberRepository
	serverRepo  repository.ServerRepository
	channelRepo repository.ChannelRepository
	roleRepo    repository.RoleRepository
	banRepo     repository.BanRepository
	presence    StatusSource
	hub         ws.EventPublisher
	subs        SubscriptionManager
}

// NewMemberService, constructor.
func NewMemberService(
	memberRepo repository.MemberRepository,
	serverRepo repository.ServerRepository,
	channelRepo repository.ChannelRepository,
	roleRepo repository.RoleRepository,
	banRepo repository.BanRepository,
	presence StatusSource,
	hub ws.EventPublisher,
	subs SubscriptionManager,
) MemberService {
	return &memberService{
		memberRepo:  memberRepo,
		serverRepo:  serverRepo,
		channelRepo: channelRepo,
		roleRepo:    roleRepo,
		banRepo:     banRepo,
		presence:    presence,
		hub:         hub,
		subs:        subs,
	}
}

func (s *memberService) List(ctx context.Context, serverID string) ([]models.Member, error) {
	members, err := s.memberRepo.GetByServerID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].UserID)
	}

	statuses := s.presence.GetBulk(ids)
	for i := range members {
		members[i].Status = statuses[members[i].UserID]
	}
	return members, nil
}

func (s *memberService) Get(ctx context.Context, serverID, userID string) (*models.Member, error) {
	member, err := s.memberRepo.Get(ctx, serverID, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: member not found", pkg.ErrNotFound)
		}
		return nil, err
	}
	member.Status = s.presence.GetBulk([]string{userID})[userID]
	return member, nil
}

func (s *memberService) UpdateNickname(ctx context.Context, serverID, targetUserID, actorID string, req *models.UpdateMemberRequest) (*models.Member, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Kendi takma adı serbesttir, başkasınınki sunucu yönetimi ister.
	if actorID != targetUserID {
		perms, err := s.roleRepo.EffectivePermissions(ctx, serverID, actorID)
		if err != nil {
			return nil, err
		}
		if !perms.Has(models.PermManageServer) {
			return nil, fmt.Errorf("%w: you do not have permission to manage members", pkg.ErrForbidden)
		}
	}

	if err := s.memberRepo.UpdateNickname(ctx, serverID, targetUserID, req.Nickname); err != nil {
		return nil, err
	}

	member, err := s.memberRepo.Get(ctx, serverID, targetUserID)
	if err != nil {
		return nil, err
	}
	member.Status = s.presence.GetBulk([]string{targetUserID})[targetUserID]

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventMemberUpdate,
		Data: ws.MemberUpdateData{ServerID: serverID, Member: *member},
	})
	return member, nil
}

func (s *memberService) Kick(ctx context.Context, serverID, targetUserID string) error {
	if err := s.requireNotOwner(ctx, serverID, targetUserID, "kick"); err != nil {
		return err
	}

	if err := s.memberRepo.Remove(ctx, serverID, targetUserID); err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: member not found", pkg.ErrNotFound)
		}
		return err
	}

	s.detach(ctx, serverID, targetUserID)
	return nil
}

func (s *memberService) Ban(ctx context.Context, serverID string, req *models.CreateBanRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if err := s.requireNotOwner(ctx, serverID, req.UserID, "ban"); err != nil {
		return err
	}

	ban := &models.Ban{
		ServerID: serverID,
		UserID:   req.UserID,
		Reason:   req.Reason,
	}
	if err := s.banRepo.Create(ctx, ban); err != nil {
		return err
	}

	// Üye değilse ban yine kalıcıdır; sadece MemberLeave düşmez.
	err := s.memberRepo.Remove(ctx, serverID, req.UserID)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	s.detach(ctx, serverID, req.UserID)
	return nil
}

func (s *memberService) Unban(ctx context.Context, serverID, userID string) error {
	return s.banRepo.Delete(ctx, serverID, userID)
}

func (s *memberService) Bans(ctx context.Context, serverID string) ([]models.Ban, error) {
	return s.banRepo.GetByServerID(ctx, serverID)
}

// requireNotOwner, hedefin sunucu sahibi olmadığını doğrular. Sahip
// moderasyona karşı dokunulmazdır; el değiştirme ayrı bir akıştır.
func (s *memberService) requireNotOwner(ctx context.Context, serverID, targetUserID, action string) error {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return err
	}
	if server.OwnerID == targetUserID {
		return fmt.Errorf("%w: cannot %s the server owner", pkg.ErrForbidden, action)
	}
	return nil
}

// detach, üyeliği biten kullanıcıyı sunucu kanallarının aboneliğinden
// düşürür ve MemberLeave yayınlar. Üyelik zaten silinmiş olmalıdır.
func (s *memberService) detach(ctx context.Context, serverID, userID string) {
	if channels, err := s.channelRepo.GetByServerID(ctx, serverID); err == nil {
		for _, ch := range channels {
			s.subs.Unsubscribe(ch.ID, userID)
		}
	}

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventMemberLeave,
		Data: ws.MemberLeaveData{ServerID: serverID, UserID: userID},
	})
}
