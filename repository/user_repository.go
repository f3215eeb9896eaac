// Package repository, veritabanı erişim katmanını tanımlar.
//
// Repository Pattern nedir?
// Veritabanı işlemlerini (CRUD) soyutlayan bir tasarım kalıbıdır.
// Service katmanı doğrudan SQL yazmaz — repository interface'i üzerinden çalışır.
//
// Neden interface?
// 1. Test: Mock repository yazarak DB olmadan test edebilirsin
// 2. Esneklik: SQLite'tan PostgreSQL'e geçmek istersen sadece yeni implementasyon yazarsın
// 3. SOLID (Dependency Inversion): Service, concrete struct'a değil interface'e bağımlı
//
// Go'da interface "implicit"tır — bir struct, interface'deki tüm method'ları
// implement ediyorsa otomatik olarak o interface'i sağlar.
package repository

import (
	"context"

	"github.com/candemir/meydan/models"
)

// UserRepository, kullanıcı veritabanı işlemleri için interface.
//
// context.Context nedir?
// Go'da goroutine'ler arası iptal sinyali ve deadline taşıyan bir yapıdır.
// HTTP handler bir request aldığında context oluşturur — client bağlantıyı
// koparırsa context iptal olur ve devam eden DB sorgusu da durur.
type UserRepository interface {
	// Create, yeni kullanıcı ekler. user.ID caller tarafından set edilmiş
	// olmalıdır (UUIDv7). created_at/last_seen DB'den okunup doldurulur.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUsername, case-insensitive arama yapar (kolon COLLATE NOCASE).
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByEmail, şifre sıfırlama akışı için email'e göre kullanıcı arar.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateProfile, display_name ve identity_public_key kolonlarını günceller.
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateAvatar(ctx context.Context, userID, avatarHash string) error
	UpdatePassword(ctx context.Context, userID, newPasswordHash string) error
	UpdateLastSeen(ctx context.Context, userID string) error
	// UpsertFederated, hub tarafından doğrulanmış bir kullanıcıyı lokal
	// users tablosuna yazar. Community node'larda kullanılır: kullanıcı
	// hesabı hub'dadır ama mesaj yazarı JOIN'leri için lokal satır gerekir.
	UpsertFederated(ctx context.Context, id, username string) error
	Count(ctx context.Context) (int, error)
}
