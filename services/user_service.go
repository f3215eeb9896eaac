// Package services — kullanıcı profili ve avatar iş mantığı.
//
// Avatar depolama content-addressed çalışır: dosya adı içeriğin
// SHA-256'sıdır. Aynı görsel tekrar yüklenirse aynı hash çıkar, diskte
// tek kopya durur. Hash değiştiğinde eski dosyalar silinir — kullanıcı
// başına tek avatar tutulur ama URL'ler immutable kalır (hash değişince
// URL de değişir, client cache'i bozulmaz).
package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// UserService, kullanıcı profil operasyonları için iş mantığı interface'i.
type UserService interface {
	// GetPublic, kullanıcının herkese açık profilini döner.
	GetPublic(ctx context.Context, userID string) (*models.UserPublic, error)

	// UpdateProfile, display_name ve identity_public_key alanlarını
	// günceller; UserUpdate ortak sunuculara yayınlanır.
	UpdateProfile(ctx context.Context, user *models.User, req *models.UpdateUserRequest) (*models.User, error)

	// SaveAvatar, görseli doğrulayıp content-addressed kaydeder ve
	// hash'i döner. Önceki avatar dosyaları silinir.
	SaveAvatar(ctx context.Context, user *models.User, data []byte) (string, error)

	// AvatarPath, (userID, hash) çiftini diskteki dosyaya çözer.
	// Uzantı URL'de taşınmaz; dizin hash prefix'iyle taranır.
	AvatarPath(userID, hash string) (string, error)
}

type userService struct {
	userRepo   repository.UserRepository
	memberRepo repository.MemberRepository
	hub        ws.EventPublisher
	dataDir    string
	maxSize    int64
}

// NewUserService, constructor.
func NewUserService(
	userRepo repository.UserRepository,
	memberRepo repository.MemberRepository,
	hub ws.EventPublisher,
	dataDir string,
	maxSize int64,
) UserService {
	return &userService{
		userRepo:   userRepo,
		memberRepo: memberRepo,
		hub:        hub,
		dataDir:    dataDir,
		maxSize:    maxSize,
	}
}

func (s *userService) GetPublic(ctx context.Context, userID string) (*models.UserPublic, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	public := user.Public()
	return &public, nil
}

func (s *userService) UpdateProfile(ctx context.Context, user *models.User, req *models.UpdateUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
		// Boş display name username'e düşer — hiç boş kalmaz.
		if user.DisplayName == "" {
			user.DisplayName = user.Username
		}
	}
	if req.IdentityPublicKey != nil {
		user.IdentityPublicKey = req.IdentityPublicKey
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}

	s.broadcastUserUpdate(ctx, user)
	return user, nil
}

// avatarExtension, görsel türünü magic byte'lardan tanır. Client'ın
// beyan ettiği Content-Type'a güvenilmez.
func avatarExtension(data []byte) (string, bool) {
	switch {
	case len(data) >= 8 && bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png", true
	case len(data) >= 3 && bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpg", true
	case len(data) >= 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return "gif", true
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp", true
	default:
		return "", false
	}
}

func (s *userService) SaveAvatar(ctx context.Context, user *models.User, data []byte) (string, error) {
	if int64(len(data)) > s.maxSize {
		return "", fmt.Errorf("%w: avatar too large (max %d bytes)", pkg.ErrBadRequest, s.maxSize)
	}

	ext, ok := avatarExtension(data)
	if !ok {
		return "", fmt.Errorf("%w: unsupported image format (png, jpg, gif, webp)", pkg.ErrBadRequest)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.dataDir, "avatars", user.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar directory: %w", err)
	}

	// Önce yeni dosya yazılır, sonra eskiler silinir — arada hata
	// olursa en kötü ihtimalle fazladan dosya kalır, avatar kaybolmaz.
	path := filepath.Join(dir, hash+"."+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if !strings.HasPrefix(entry.Name(), hash) {
				os.Remove(filepath.Join(dir, entry.Name()))
			}
		}
	}

	if err := s.userRepo.UpdateAvatar(ctx, user.ID, hash); err != nil {
		return "", err
	}
	user.AvatarHash = &hash

	s.broadcastUserUpdate(ctx, user)
	return hash, nil
}

func (s *userService) AvatarPath(userID, hash string) (string, error) {
	// ID'ler de hash de bizim ürettiğimiz formatlardır ama path'e
	// girecek her şey gibi traversal'a karşı süzülür.
	if !safePathSegment(userID) || !safePathSegment(hash) {
		return "", fmt.Errorf("%w: avatar not found", pkg.ErrNotFound)
	}

	dir := filepath.Join(s.dataDir, "avatars", userID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: avatar not found", pkg.ErrNotFound)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), hash+".") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: avatar not found", pkg.ErrNotFound)
}

func safePathSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}

// broadcastUserUpdate, profil değişikliğini kullanıcının üyesi olduğu
// tüm sunuculara duyurur. Broadcast hatası profili geri almaz.
func (s *userService) broadcastUserUpdate(ctx context.Context, user *models.User) {
	serverIDs, err := s.memberRepo.GetServerIDs(ctx, user.ID)
	if err != nil {
		return
	}

	event := ws.Event{
		Type: ws.EventUserUpdate,
		Data: ws.UserUpdateData{User: user.Public()},
	}
	for _, serverID := range serverIDs {
		s.hub.BroadcastToServer(serverID, event)
	}
}
