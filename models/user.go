// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
//
// ID'ler string olarak taşınır: kullanıcı/sunucu/kanal ID'leri UUIDv7,
// mesaj ID'leri snowflake (int64). UUIDv7 zaman sıralıdır, bu yüzden
// created_at index'i olmadan da kayıtlar kronolojik sıralanabilir.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// UserStatus, kullanıcının çevrimiçi durumunu temsil eder.
// Go'da enum yoktur; typed constant kullanılır.
type UserStatus string

const (
	UserStatusOnline  UserStatus = "online"
	UserStatusIdle    UserStatus = "idle"
	UserStatusDND     UserStatus = "dnd"
	UserStatusOffline UserStatus = "offline"
)

// ParseUserStatus, bilinmeyen değerleri offline'a düşürür.
func ParseUserStatus(s string) UserStatus {
	switch UserStatus(s) {
	case UserStatusOnline, UserStatusIdle, UserStatusDND:
		return UserStatus(s)
	default:
		return UserStatusOffline
	}
}

// User, bir kullanıcıyı temsil eder.
// PasswordHash json:"-" ile API response'larından gizlenir.
// DisplayName boş bırakılırsa kayıt sırasında username'e eşitlenir.
type User struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	DisplayName       string    `json:"display_name"`
	Email             *string   `json:"email,omitempty"` // Opsiyonel; sadece şifre sıfırlama için
	AvatarHash        *string   `json:"avatar_hash"`
	IdentityPublicKey *string   `json:"identity_public_key"` // E2EE kimlik anahtarı (base64 Ed25519)
	PasswordHash      string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	LastSeen          time.Time `json:"last_seen"`
}

// Public, API'de başkalarına gösterilen alt kümeyi döner.
func (u *User) Public() UserPublic {
	return UserPublic{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarHash:  u.AvatarHash,
	}
}

// UserPublic, bir kullanıcının herkese açık görünümü.
// Mesaj yazarı, voice katılımcısı gibi yerlerde embed edilir.
type UserPublic struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarHash  *string `json:"avatar_hash"`
}

// RegisterRequest, kayıt isteği. Hash'leme service katmanında yapılır.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"` // Opsiyonel
}

// Validate, RegisterRequest kontrolü:
//   - Username: 3-32 karakter, alfanumerik + alt çizgi
//   - Password: minimum 8 karakter
//   - DisplayName: opsiyonel, max 64 karakter
func (r *RegisterRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	usernameLen := utf8.RuneCountInString(r.Username)
	if usernameLen < 3 || usernameLen > 32 {
		return fmt.Errorf("username must be between 3 and 32 characters")
	}

	for _, ch := range r.Username {
		if !isValidUsernameChar(ch) {
			return fmt.Errorf("username can only contain letters, numbers, and underscores")
		}
	}

	if utf8.RuneCountInString(r.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if utf8.RuneCountInString(r.DisplayName) > 64 {
		return fmt.Errorf("display name must be at most 64 characters")
	}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email != "" && (!strings.Contains(r.Email, "@") || utf8.RuneCountInString(r.Email) > 254) {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

func isValidUsernameChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_'
}

// LoginRequest, giriş isteği.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateUserRequest, profil güncelleme isteği.
// Partial update pattern: nil field'lar değiştirilmez.
type UpdateUserRequest struct {
	DisplayName       *string `json:"display_name"`
	IdentityPublicKey *string `json:"identity_public_key"`
}

// Validate, UpdateUserRequest kontrolü.
func (r *UpdateUserRequest) Validate() error {
	if r.DisplayName != nil {
		trimmed := strings.TrimSpace(*r.DisplayName)
		r.DisplayName = &trimmed
		if utf8.RuneCountInString(trimmed) > 64 {
			return fmt.Errorf("display name must be at most 64 characters")
		}
	}
	return nil
}

// AuthResponse, register ve login yanıtı.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ValidateTokenRequest, hub'a yapılan token doğrulama isteği.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse her zaman 200 döner; geçersiz token'da
// sadece Valid=false olur. Federated node'lar bu endpoint'i
// fallback olarak kullanır.
type ValidateTokenResponse struct {
	Valid       bool    `json:"valid"`
	UserID      *string `json:"user_id,omitempty"`
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarHash  *string `json:"avatar_hash,omitempty"`
}

// PublicKeyResponse, hub'ın RS256 public key dağıtım yanıtı.
// Community node'lar bunu bir kez çekip sonsuza kadar cache'ler.
type PublicKeyResponse struct {
	PublicKeyPEM string `json:"public_key_pem"`
	Algorithm    string `json:"algorithm"`
}
