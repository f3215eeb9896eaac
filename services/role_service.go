// Package services — rol iş mantığı.
//
// Roller yetki maskesi taşır; üyenin etkin yetkisi atanmış rollerinin
// ve @everyone rolünün OR'udur. @everyone her sunucuyla birlikte doğar,
// yeniden adlandırılamaz ve silinemez — ama permission maskesi
// düzenlenebilir (sunucunun taban yetkisini belirlemenin yolu budur).
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// RoleService, rol operasyonları için iş mantığı interface'i.
type RoleService interface {
	// List, sunucu rollerini position sırasıyla döner.
	List(ctx context.Context, serverID string) ([]models.Role, error)

	Create(ctx context.Context, serverID string, req *models.CreateRoleRequest) (*models.Role, error)
	Update(ctx context.Context, serverID, roleID string, req *models.UpdateRoleRequest) (*models.Role, error)

	// Delete, rolü siler. @everyone silinemez.
	Delete(ctx context.Context, serverID, roleID string) error

	// Assign, üyeye rol atar ve MemberUpdate yayınlar.
	Assign(ctx context.Context, serverID, userID, roleID string) error

	// Unassign, rol atamasını kaldırır ve MemberUpdate yayınlar.
	Unassign(ctx context.Context, serverID, userID, roleID string) error
}

type roleService struct {
	roleRepo   repository.RoleRepository
	memberRepo repository.MemberRepository
	presence   StatusSource
	hub        ws.EventPublisher
}

// NewRoleService, constructor.
func NewRoleService(roleRepo repository.RoleRepository, memberRepo repository.MemberRepository, presence StatusSource, hub ws.EventPublisher) RoleService {
	return &roleService{
		roleRepo:   roleRepo,
		memberRepo: memberRepo,
		presence:   presence,
		hub:        hub,
	}
}

func (s *roleService) List(ctx context.Context, serverID string) ([]models.Role, error) {
	return s.roleRepo.GetByServerID(ctx, serverID)
}

func (s *roleService) Create(ctx context.Context, serverID string, req *models.CreateRoleRequest) (*models.Role, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	role := &models.Role{
		ID:          uuid.NewString(),
		ServerID:    serverID,
		Name:        req.Name,
		Permissions: req.Permissions,
		Color:       req.Color,
		Position:    req.Position,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) Update(ctx context.Context, serverID, roleID string, req *models.UpdateRoleRequest) (*models.Role, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	role, err := s.getServerRole(ctx, serverID, roleID)
	if err != nil {
		return nil, err
	}
	// @everyone'ın adı sabittir; model Validate zaten "@everyone"a
	// yeniden adlandırmayı engeller, burada ters yönü engelliyoruz.
	if role.IsEveryone && req.Name != nil {
		return nil, fmt.Errorf("%w: the @everyone role cannot be renamed", pkg.ErrBadRequest)
	}

	if req.Name != nil {
		role.Name = *req.Name
	}
	if req.Permissions != nil {
		role.Permissions = *req.Permissions
	}
	if req.Color != nil {
		role.Color = *req.Color
	}
	if req.Position != nil {
		role.Position = *req.Position
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *roleService) Delete(ctx context.Context, serverID, roleID string) error {
	role, err := s.getServerRole(ctx, serverID, roleID)
	if err != nil {
		return err
	}
	if role.IsEveryone {
		return fmt.Errorf("%w: the @everyone role cannot be deleted", pkg.ErrBadRequest)
	}
	return s.roleRepo.Delete(ctx, roleID)
}

func (s *roleService) Assign(ctx context.Context, serverID, userID, roleID string) error {
	role, err := s.getServerRole(ctx, serverID, roleID)
	if err != nil {
		return err
	}
	// @everyone implicit'tir, atanmaz.
	if role.IsEveryone {
		return fmt.Errorf("%w: the @everyone role cannot be assigned", pkg.ErrBadRequest)
	}

	isMember, err := s.memberRepo.IsMember(ctx, serverID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: member not found", pkg.ErrNotFound)
	}

	if err := s.roleRepo.Assign(ctx, serverID, userID, roleID); err != nil {
		return err
	}

	s.broadcastMemberUpdate(ctx, serverID, userID)
	return nil
}

func (s *roleService) Unassign(ctx context.Context, serverID, userID, roleID string) error {
	if _, err := s.getServerRole(ctx, serverID, roleID); err != nil {
		return err
	}

	if err := s.roleRepo.Unassign(ctx, serverID, userID, roleID); err != nil {
		return err
	}

	s.broadcastMemberUpdate(ctx, serverID, userID)
	return nil
}

// getServerRole, rolü yükler ve path'teki sunucuya ait olduğunu
// doğrular. Başka sunucunun rolü bu sunucudan görünmez.
func (s *roleService) getServerRole(ctx context.Context, serverID, roleID string) (*models.Role, error) {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.ServerID != serverID {
		return nil, fmt.Errorf("%w: role not found", pkg.ErrNotFound)
	}
	return role, nil
}

// broadcastMemberUpdate, üyenin güncel halini (roller dahil) sunucuya
// yayınlar. Üye bu arada silindiyse sessizce geçilir.
func (s *roleService) broadcastMemberUpdate(ctx context.Context, serverID, userID string) {
	member, err := s.memberRepo.Get(ctx, serverID, userID)
	if err != nil {
		return
	}
	member.Status = s.presence.GetBulk([]string{userID})[userID]

	s.hub.BroadcastToServer(serverID, ws.Event{
		Type: ws.EventMemberUpdate,
		Data: ws.MemberUpdateData{ServerID: serverID, Member: *member},
	})
}
