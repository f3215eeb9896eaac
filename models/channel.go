package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ChannelType, kanalın türünü temsil eder.
// announcement, sadece yetkili üyelerin yazabildiği text kanalıdır;
// okuma tarafında text ile aynı davranır.
type ChannelType string

const (
	ChannelTypeText         ChannelType = "text"
	ChannelTypeVoice        ChannelType = "voice"
	ChannelTypeAnnouncement ChannelType = "announcement"
)

// ValidChannelType, wire'dan gelen tür değerini kontrol eder.
func ValidChannelType(t string) bool {
	switch ChannelType(t) {
	case ChannelTypeText, ChannelTypeVoice, ChannelTypeAnnouncement:
		return true
	default:
		return false
	}
}

// Channel, bir sunucu kanalını temsil eder.
// DB'deki "channels" tablosunun Go karşılığı.
// Kanal silinince mesajları cascade ile silinir.
type Channel struct {
	ID         string      `json:"id"`
	ServerID   string      `json:"server_id"`
	Name       string      `json:"name"`
	Type       ChannelType `json:"channel_type"`
	Position   int         `json:"position"`
	CategoryID *string     `json:"category_id"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreateChannelRequest, yeni kanal oluşturma isteği.
type CreateChannelRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"channel_type"`
	Position   *int    `json:"position"`
	CategoryID *string `json:"category_id"`
}

// Validate, CreateChannelRequest kontrolü.
func (r *CreateChannelRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 1 || nameLen > 100 {
		return fmt.Errorf("channel name must be between 1 and 100 characters")
	}
	if r.Type == "" {
		r.Type = string(ChannelTypeText)
	}
	if !ValidChannelType(r.Type) {
		return fmt.Errorf("channel type must be 'text', 'voice' or 'announcement'")
	}
	return nil
}
