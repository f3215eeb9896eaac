package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// ServerRepository, server (topluluk sunucusu) veritabanı işlemleri için interface.
type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id string) (*models.Server, error)
	GetAll(ctx context.Context) ([]models.Server, error)
	// Update, name ve icon_hash kolonlarını günceller.
	Update(ctx context.Context, server *models.Server) error
	// ClaimUnclaimed, sahipsiz (owner_id = sıfır UUID) tüm server'ların
	// sahipliğini newOwnerID'ye devreder ve etkilenen server ID'lerini döner.
	// İlk kayıt olan kullanıcı seed edilmiş default server'ı bu yolla devralır.
	ClaimUnclaimed(ctx context.Context, newOwnerID string) ([]string, error)
	// ClaimOwnership, sahipsiz tek bir server'ın sahipliğini newOwnerID'ye
	// devretmeyi dener. Güncelleme owner_id koşuluyla atomiktir: yarışan iki
	// ilk katılımdan yalnızca biri true alır. Sahipsiz default server'a ilk
	// join olan kullanıcı bu yolla devralır.
	ClaimOwnership(ctx context.Context, serverID, newOwnerID string) (bool, error)
	// Delete, server'ı siler. Kanallar, mesajlar, üyelikler ve roller
	// foreign key cascade ile birlikte silinir.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
