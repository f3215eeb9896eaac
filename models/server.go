// Package models — Server domain modeli.
//
// Server, Discord'daki "guild" karşılığıdır. Her node birden fazla
// sunucu barındırabilir; seed migration'ı varsayılan bir sunucu kurar.
//
// OwnerID, sunucu kurulurken sentinel (sıfır UUID) olabilir:
// seed ile gelen varsayılan sunucunun henüz sahibi yoktur, ilk katılan
// kullanıcı sahipliği devralır.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SentinelOwnerID, henüz sahiplenilmemiş sunucuları işaretler.
// İlk join/register eden kullanıcı sahipliği devralır.
const SentinelOwnerID = "00000000-0000-0000-0000-000000000000"

// DefaultServerID, seed migration'ın kurduğu varsayılan sunucunun
// deterministik ID'si.
const DefaultServerID = "00000000-0000-7000-8000-000000000001"

// Server, sunucu verisini temsil eder.
type Server struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IconHash    *string   `json:"icon_hash"`
	OwnerID     string    `json:"owner_id"`
	E2EEEnabled bool      `json:"e2ee_enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// Unclaimed, sunucunun hala sentinel sahipte olup olmadığını döner.
func (s *Server) Unclaimed() bool {
	return s.OwnerID == SentinelOwnerID
}

// Public, ServerUpdate event'lerinde taşınan alt küme.
func (s *Server) Public() ServerPublic {
	return ServerPublic{
		ID:       s.ID,
		Name:     s.Name,
		IconHash: s.IconHash,
		OwnerID:  s.OwnerID,
	}
}

// ServerPublic, sunucunun event payload'larındaki görünümü.
type ServerPublic struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	IconHash *string `json:"icon_hash"`
	OwnerID  string  `json:"owner_id"`
}

// CreateServerRequest, yeni sunucu oluşturma isteği.
type CreateServerRequest struct {
	Name        string `json:"name"`
	E2EEEnabled *bool  `json:"e2ee_enabled"`
}

// Validate, CreateServerRequest kontrolü.
func (r *CreateServerRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 || nameLen > 100 {
		return fmt.Errorf("server name must be between 1 and 100 characters")
	}
	return nil
}

// UpdateServerRequest, sunucu güncelleme isteği.
// Partial update pattern: nil field'lar değiştirilmez.
type UpdateServerRequest struct {
	Name *string `json:"name"`
}

// Validate, UpdateServerRequest kontrolü.
func (r *UpdateServerRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
		nameLen := utf8.RuneCountInString(trimmed)
		if nameLen < 1 || nameLen > 100 {
			return fmt.Errorf("server name must be between 1 and 100 characters")
		}
	}
	return nil
}
