package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// ReactionRepository, mesaj reaksiyonları için interface.
type ReactionRepository interface {
	// Add, reaksiyonu ekler. Aynı kullanıcı aynı emoji'yi tekrar eklerse
	// false döner (idempotent) — caller event yayınlamaz.
	Add(ctx context.Context, messageID int64, userID, emoji string) (bool, error)
	// Remove, reaksiyonu kaldırır. Kayıt yoksa false döner.
	Remove(ctx context.Context, messageID int64, userID, emoji string) (bool, error)
	// GetGroupsByMessageIDs, mesajların reaksiyonlarını emoji bazında
	// gruplar. Mesaj geçmişi dönerken toplu doldurma için tek sorgudur.
	GetGroupsByMessageIDs(ctx context.Context, messageIDs []int64) (map[int64][]models.ReactionGroup, error)
}
