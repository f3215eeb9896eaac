package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxMessageLength, sanitize sonrası izin verilen maksimum rune sayısı.
const MaxMessageLength = 4000

// Message, bir chat mesajını temsil eder.
// ID bir snowflake'tir (int64): zaman sıralı olduğu için pagination
// doğrudan ID üzerinden yapılır, ayrıca created_at index'i gerekmez.
//
// Author JOIN ile doldurulur; Reactions ve Mentions türetilmiş veridir.
// Silinen mesajlar satır olarak kalır (is_deleted=1), içerik korunur ama
// API listelerinden düşer.
type Message struct {
	ID        int64           `json:"id"`
	ChannelID string          `json:"channel_id"`
	AuthorID  string          `json:"author_id"`
	Content   string          `json:"content"`
	Nonce     *string         `json:"nonce,omitempty"` // E2EE sunucularda client'ın opak nonce'u; core yorumlamaz
	ReplyToID *int64          `json:"reply_to_id"`
	IsDeleted bool            `json:"is_deleted"`
	EditedAt  *time.Time      `json:"edited_at"`
	CreatedAt time.Time       `json:"created_at"`
	Author    *UserPublic     `json:"author,omitempty"`
	Mentions  []Mention       `json:"mentions,omitempty"`
	Reactions []ReactionGroup `json:"reactions,omitempty"`
}

// CreateMessageRequest, yeni mesaj gönderme isteği.
// Content burada sanitize edilir; uzunluk kontrolü sanitize SONRASI yapılır.
type CreateMessageRequest struct {
	Content   string  `json:"content"`
	Nonce     *string `json:"nonce"`
	ReplyToID *int64  `json:"reply_to_id"`
}

// Validate, CreateMessageRequest kontrolü.
func (r *CreateMessageRequest) Validate() error {
	r.Content = SanitizeContent(r.Content)
	return validateContent(r.Content)
}

// UpdateMessageRequest, mesaj düzenleme isteği.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// Validate, UpdateMessageRequest kontrolü.
func (r *UpdateMessageRequest) Validate() error {
	r.Content = SanitizeContent(r.Content)
	return validateContent(r.Content)
}

func validateContent(content string) error {
	if content == "" {
		return fmt.Errorf("message content is required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return fmt.Errorf("message content must be at most %d characters", MaxMessageLength)
	}
	return nil
}

// SanitizeContent, mesaj içeriğini temizler:
//   - \n ve \t dışındaki kontrol karakterleri silinir
//   - baştaki/sondaki whitespace kırpılır
//
// Fonksiyon idempotent'tir: sanitize(sanitize(x)) == sanitize(x).
func SanitizeContent(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	for _, ch := range content {
		if unicode.IsControl(ch) && ch != '\n' && ch != '\t' {
			continue
		}
		b.WriteRune(ch)
	}
	return strings.TrimSpace(b.String())
}

// MentionKind, bir mention'ın türü.
type MentionKind string

const (
	MentionUser    MentionKind = "user"
	MentionRole    MentionKind = "role"
	MentionChannel MentionKind = "channel"
)

// Mention, mesaj içeriğinden parse edilmiş tek bir referans.
type Mention struct {
	Kind MentionKind `json:"kind"`
	ID   string      `json:"id"`
}

// mentionRegex, üç mention kalıbını tek seferde yakalar:
//
//	<@uuid>   — kullanıcı
//	<@&uuid>  — rol
//	<#uuid>   — kanal
//
// Tek regex kullanıyoruz ki eşleşmeler içerikteki sıralarıyla gelsin.
// Grup 1 prefix'i (@, @& veya #), grup 2 UUID adayını yakalar.
var mentionRegex = regexp.MustCompile(`<(@&|@|#)([0-9a-fA-F-]{36})>`)

// ParseMentions, içerikteki mention'ları görünüm sırasıyla döner.
// UUID olarak parse edilemeyen adaylar sessizce atlanır.
func ParseMentions(content string) []Mention {
	matches := mentionRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	mentions := make([]Mention, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m[2])
		if err != nil {
			continue
		}

		var kind MentionKind
		switch m[1] {
		case "@":
			kind = MentionUser
		case "@&":
			kind = MentionRole
		case "#":
			kind = MentionChannel
		}
		mentions = append(mentions, Mention{Kind: kind, ID: id.String()})
	}

	if len(mentions) == 0 {
		return nil
	}
	return mentions
}
