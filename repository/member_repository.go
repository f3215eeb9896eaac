package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// MemberRepository, server üyeliği veritabanı işlemleri için interface.
//
// Üyelik (server_id, user_id) çiftiyle temsil edilir. Rol atamaları ayrı
// member_roles tablosundadır ama okuma tarafında üyelikle birlikte döner —
// caller'ın ikinci bir sorguya ihtiyacı olmaz.
type MemberRepository interface {
	// Add, kullanıcıyı server'a üye yapar. Zaten üyeyse pkg.ErrAlreadyExists.
	Add(ctx context.Context, member *models.Member) error
	Remove(ctx context.Context, serverID, userID string) error
	// Get, üyeliği user bilgisi ve rol ID'leriyle döner.
	Get(ctx context.Context, serverID, userID string) (*models.Member, error)
	// GetByServerID, server'ın tüm üyelerini user bilgisi ve rol ID'leriyle döner.
	GetByServerID(ctx context.Context, serverID string) ([]models.Member, error)
	// GetServerIDs, kullanıcının üye olduğu server ID'lerini döner.
	GetServerIDs(ctx context.Context, userID string) ([]string, error)
	// GetUserIDs, server'ın üye user ID'lerini döner (broadcast fan-out için).
	GetUserIDs(ctx context.Context, serverID string) ([]string, error)
	IsMember(ctx context.Context, serverID, userID string) (bool, error)
	UpdateNickname(ctx context.Context, serverID, userID string, nickname *string) error
}
