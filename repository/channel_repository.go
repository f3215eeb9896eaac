package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// ChannelRepository, kanal veritabanı işlemleri için interface.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	// GetByServerID, kanalları position'a göre sıralı döner.
	GetByServerID(ctx context.Context, serverID string) ([]models.Channel, error)
	// GetByUserID, kullanıcının üye olduğu tüm server'lardaki kanalları döner.
	// WebSocket bağlantısında toplu subscribe için kullanılır.
	GetByUserID(ctx context.Context, userID string) ([]models.Channel, error)
	// NextPosition, server'daki en büyük position + 1 değerini döner.
	NextPosition(ctx context.Context, serverID string) (int, error)
	Delete(ctx context.Context, id string) error
}
