package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// RoleRepository, rol ve rol atama veritabanı işlemleri için interface.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id string) (*models.Role, error)
	// GetByServerID, rolleri position'a göre (yüksekten alçağa) sıralı döner.
	GetByServerID(ctx context.Context, serverID string) ([]models.Role, error)
	// GetEveryone, server'ın @everyone rolünü döner.
	GetEveryone(ctx context.Context, serverID string) (*models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
	// Assign, üyeye rol atar. Zaten atanmışsa no-op.
	Assign(ctx context.Context, serverID, userID, roleID string) error
	Unassign(ctx context.Context, serverID, userID, roleID string) error
	// EffectivePermissions, üyenin etkin yetki maskesini hesaplar:
	// atanmış rollerin ve @everyone rolünün permission bit'lerinin OR'u.
	EffectivePermissions(ctx context.Context, serverID, userID string) (models.Permission, error)
}
