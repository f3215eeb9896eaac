// Package models — üyelik domain modeli.
//
// Member, kullanıcı ile sunucu arasındaki üyelik ilişkisidir.
// Bir kullanıcı birden fazla sunucuya üye olabilir.
// DB'deki "members" tablosunun Go karşılığıdır.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Member, bir kullanıcının bir sunucuya üyeliğini temsil eder.
//
// RoleIDs, User ve Status DB kolonları değildir: RoleIDs member_roles
// JOIN'i ile, User users JOIN'i ile, Status presence registry'den
// doldurulur. Üye listesi yanıtlarında ve MemberUpdate event'lerinde
// hepsi dolu gelir.
type Member struct {
	UserID   string      `json:"user_id"`
	ServerID string      `json:"server_id"`
	Nickname *string     `json:"nickname"`
	JoinedAt time.Time   `json:"joined_at"`
	RoleIDs  []string    `json:"roles"`
	User     *UserPublic `json:"user,omitempty"`
	Status   UserStatus  `json:"status,omitempty"`
}

// UpdateMemberRequest, üyelik güncelleme isteği. Şimdilik tek alan:
// takma ad. nil nickname alanı "değiştirme" değil "temizle" demektir —
// PATCH gövdesinde alan yoksa da temizlenir.
type UpdateMemberRequest struct {
	Nickname *string `json:"nickname"`
}

// Validate, UpdateMemberRequest kontrolü. Boşluk kırpılır, boş string
// nil'e normalize edilir.
func (r *UpdateMemberRequest) Validate() error {
	if r.Nickname == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.Nickname)
	if trimmed == "" {
		r.Nickname = nil
		return nil
	}
	if utf8.RuneCountInString(trimmed) > 32 {
		return fmt.Errorf("nickname must be at most 32 characters")
	}
	r.Nickname = &trimmed
	return nil
}
