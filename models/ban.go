// Package models — Ban (yasaklama) domain modeli.
//
// Ban akışı:
// 1. BanMembers yetkili bir üye kullanıcıyı banlar → bans tablosuna kayıt
// 2. Üyelik aynı anda silinir → MemberLeave broadcast edilir
// 3. Banlı kullanıcı sunucuya join denemesi yaparsa → Forbidden
// 4. Unban kaydı siler → kullanıcı tekrar join olabilir
package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Ban, bir sunucudan yasaklanmış kullanıcıyı temsil eder.
type Ban struct {
	ServerID string    `json:"server_id"`
	UserID   string    `json:"user_id"`
	Reason   *string   `json:"reason"`
	BannedAt time.Time `json:"banned_at"`
}

// CreateBanRequest, ban oluşturma isteği.
type CreateBanRequest struct {
	UserID string  `json:"user_id"`
	Reason *string `json:"reason"`
}

// Validate, CreateBanRequest kontrolü.
func (r *CreateBanRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.Reason != nil && utf8.RuneCountInString(*r.Reason) > 512 {
		return fmt.Errorf("ban reason must be at most 512 characters")
	}
	return nil
}
