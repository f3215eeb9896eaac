package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// BanRepository, server ban kayıtları için interface.
type BanRepository interface {
	Create(ctx context.Context, ban *models.Ban) error
	// Delete, ban'ı kaldırır (unban). Kayıt yoksa pkg.ErrNotFound.
	Delete(ctx context.Context, serverID, userID string) error
	// GetByServerID, ban listesini en yeniden eskiye sıralı döner.
	GetByServerID(ctx context.Context, serverID string) ([]models.Ban, error)
	IsBanned(ctx context.Context, serverID, userID string) (bool, error)
}
