package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// MessageRepository, mesaj veritabanı işlemleri için interface.
//
// Mesaj ID'leri snowflake'tir (int64, zaman sıralı) — pagination cursor'u
// olarak doğrudan ID karşılaştırması yeterlidir, created_at subquery gerekmez.
type MessageRepository interface {
	// Create, mesajı ekler. message.ID caller tarafından üretilmiş snowflake
	// olmalıdır. created_at DB'den okunup doldurulur.
	Create(ctx context.Context, message *models.Message) error
	// GetByID, mesajı yazar bilgisiyle döner. Silinmiş (is_deleted) mesajlar
	// için de döner — yetki kontrolü caller'a aittir.
	GetByID(ctx context.Context, id int64) (*models.Message, error)
	// GetByChannelID, kanal geçmişini en yeniden eskiye döner.
	// beforeID > 0 ise sadece id < beforeID olan mesajlar gelir (exclusive
	// cursor). Silinmiş mesajlar listeye dahil edilmez.
	GetByChannelID(ctx context.Context, channelID string, beforeID int64, limit int) ([]models.Message, error)
	// UpdateContent, içeriği günceller ve edited_at damgası basar.
	UpdateContent(ctx context.Context, message *models.Message) error
	// SoftDelete, is_deleted bayrağını set eder ve içeriği temizler.
	// Satır silinmez — snowflake cursor'ların kararlılığı bozulmaz.
	SoftDelete(ctx context.Context, id int64) error
}
