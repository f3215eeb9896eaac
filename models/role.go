package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Permission, rol yetkilerini bit flag olarak temsil eder.
//
// Her yetki bir bit'tir; tek bir int64 birden fazla yetki taşır.
//
// Kontrol: (permissions & PermSendMessages) != 0 → bu yetki var mı?
// Ekleme:  permissions | PermSendMessages → yetkiyi ekle
// Çıkarma: permissions &^ PermSendMessages → yetkiyi kaldır
//
// Bit değerleri wire contract'ın parçasıdır (client ve DB aynı sayıları
// görür), bu yüzden sıraları asla değişmez.
type Permission int64

const (
	PermManageChannels Permission = 1 << iota // 1
	PermManageServer                          // 2
	PermKickMembers                           // 4
	PermBanMembers                            // 8
	PermSendMessages                          // 16
	PermAdministrator                         // 32
	PermManageMessages                        // 64
)

// PermAll, tüm yetkilerin toplamıdır (127).
const PermAll Permission = (1 << 7) - 1

// Has, belirli bir yetkinin var olup olmadığını kontrol eder.
// Administrator her yetkiyi kapsar.
func (p Permission) Has(perm Permission) bool {
	if p&PermAdministrator != 0 {
		return true
	}
	return p&perm != 0
}

// CombinePermissions, bir üyenin rollerinin bit maskelerini OR'lar.
// Üyenin effective yetkisi: rollerinin birleşimi + @everyone rolü.
// Rolü olmayan üye sadece @everyone yetkilerine sahiptir.
func CombinePermissions(roles []Role) Permission {
	var p Permission
	for _, r := range roles {
		p |= r.Permissions
	}
	return p
}

// EveryoneRoleName, her sunucuda otomatik oluşturulan varsayılan rol.
// Silinemez; yeni sunucularda SendMessages yetkisiyle kurulur.
const EveryoneRoleName = "@everyone"

// Role, bir sunucu rolünü temsil eder.
type Role struct {
	ID          string     `json:"id"`
	ServerID    string     `json:"server_id"`
	Name        string     `json:"name"`
	Permissions Permission `json:"permissions"`
	Color       int        `json:"color"`
	Position    int        `json:"position"`
	IsEveryone  bool       `json:"is_everyone"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateRoleRequest, yeni rol oluşturma isteği.
type CreateRoleRequest struct {
	Name        string     `json:"name"`
	Permissions Permission `json:"permissions"`
	Color       int        `json:"color"`
	Position    int        `json:"position"`
}

// Validate, CreateRoleRequest kontrolü.
func (r *CreateRoleRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 || nameLen > 64 {
		return fmt.Errorf("role name must be between 1 and 64 characters")
	}
	if r.Name == EveryoneRoleName {
		return fmt.Errorf("role name is reserved")
	}
	if r.Permissions < 0 || r.Permissions&^PermAll != 0 {
		return fmt.Errorf("unknown permission bits")
	}
	return nil
}

// UpdateRoleRequest, rol güncelleme isteği.
// Partial update pattern: nil field'lar değiştirilmez.
type UpdateRoleRequest struct {
	Name        *string     `json:"name"`
	Permissions *Permission `json:"permissions"`
	Color       *int        `json:"color"`
	Position    *int        `json:"position"`
}

// Validate, UpdateRoleRequest kontrolü.
func (r *UpdateRoleRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
		nameLen := utf8.RuneCountInString(trimmed)
		if nameLen < 1 || nameLen > 64 {
			return fmt.Errorf("role name must be between 1 and 64 characters")
		}
		if trimmed == EveryoneRoleName {
			return fmt.Errorf("role name is reserved")
		}
	}
	if r.Permissions != nil && (*r.Permissions < 0 || *r.Permissions&^PermAll != 0) {
		return fmt.Errorf("unknown permission bits")
	}
	return nil
}
