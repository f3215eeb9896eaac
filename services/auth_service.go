// Package services — federated auth iş mantığı.
//
// AuthService sadece token İMZALAYAN node'larda (auth_hub / standalone)
// kurulur. Community node'lar kullanıcı hesabı yönetmez; token doğrulama
// için TokenVerifier yeterlidir.
//
// Token modeli:
// RS256 JWT — hub private key ile imzalar, herkes public key ile doğrular.
// Claims: sub (kullanıcı UUID'si), username, iat, exp. Community node'lar
// public key'i hub'dan bir kez çeker, token'ları lokal doğrular.
//
// Şifre hash'leme semaphore arkasındadır: Argon2id bilerek pahalıdır
// (bellek + CPU) ve login fırtınasında sınırsız paralel hash scheduler'ı
// boğar. semaphore.Weighted(NumCPU) aynı anda çalışan hash sayısını sınırlar.
package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/pkg/crypto"
	"github.com/candemir/meydan/pkg/email"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// resetTokenTTL: şifre sıfırlama token'ının geçerlilik süresi.
const resetTokenTTL = time.Hour

// resetRequestCooldown: aynı kullanıcı için iki reset isteği arasındaki
// minimum süre. Email spam'ini engeller; istek yine 200 döner.
const resetRequestCooldown = time.Minute

// AuthService, kayıt/giriş/token operasyonları için iş mantığı interface'i.
type AuthService interface {
	// Register, yeni kullanıcı oluşturur, tüm mevcut server'lara üye yapar
	// ve sahipsiz server'ların sahipliğini devreder.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)

	// Login, kimlik bilgilerini doğrular ve yeni token üretir.
	// Bilinmeyen kullanıcı ve yanlış şifre aynı hatayı döner.
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)

	// Validate, token'ı doğrular. Hata dönmez: geçersiz token'da
	// Valid=false'lu yanıt döner — federated node'lar bu endpoint'i
	// fallback doğrulama olarak kullanır.
	Validate(ctx context.Context, token string) *models.ValidateTokenResponse

	// PublicKeyPEM, node'un RS256 public key'ini PEM olarak döner.
	// Community node'lar bunu bir kez çekip cache'ler.
	PublicKeyPEM() string

	// ForgotPassword, email'e tek kullanımlık reset token'ı gönderir.
	// Kullanıcı bulunamasa da başarılı döner (hesap varlığı sızdırılmaz).
	ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error

	// ResetPassword, reset token'ını tüketip yeni şifreyi kaydeder.
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error
}

type authService struct {
	userRepo   repository.UserRepository
	serverRepo repository.ServerRepository
	memberRepo repository.MemberRepository
	resetRepo  repository.PasswordResetRepository
	sender     email.EmailSender // nil ise reset mail'leri gönderilmez
	hub        ws.EventPublisher
	verifier   TokenVerifier

	privateKey        *rsa.PrivateKey
	publicKeyPEM      string
	tokenTTL          time.Duration
	allowRegistration bool

	// hashSem, eş zamanlı Argon2id hesaplamalarını CPU sayısıyla sınırlar.
	hashSem *semaphore.Weighted
}

// NewAuthService, imzalama anahtarını yükleyerek (yoksa üreterek)
// AuthService oluşturur.
func NewAuthService(
	userRepo repository.UserRepository,
	serverRepo repository.ServerRepository,
	memberRepo repository.MemberRepository,
	resetRepo repository.PasswordResetRepository,
	sender email.EmailSender,
	hub ws.EventPublisher,
	verifier TokenVerifier,
	cfg config.AuthConfig,
) (AuthService, error) {
	generated, err := crypto.EnsureRSAKeyPair(cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ensure keypair: %w", err)
	}
	if generated {
		log.Printf("[auth] generated new RS256 keypair at %s", cfg.PrivateKeyPath)
	}

	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}

	return &authService{
		userRepo:          userRepo,
		serverRepo:        serverRepo,
		memberRepo:        memberRepo,
		resetRepo:         resetRepo,
		sender:            sender,
		hub:               hub,
		verifier:          verifier,
		privateKey:        privateKey,
		publicKeyPEM:      string(publicPEM),
		tokenTTL:          cfg.TokenTTL,
		allowRegistration: cfg.AllowLocalRegistration,
		hashSem:           semaphore.NewWeighted(int64(runtime.NumCPU())),
	}, nil
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if !s.allowRegistration {
		return nil, fmt.Errorf("%w: registration is disabled on this instance", pkg.ErrForbidden)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Uniqueness ön kontrolü: yarışta DB UNIQUE constraint yakalar,
	// bu kontrol sadece daha iyi bir hata mesajı içindir.
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: username is already taken", pkg.ErrAlreadyExists)
	} else if !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := s.hashPassword(ctx, req.Password)
	if err != nil {
		return nil, err
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	user := &models.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Username:     req.Username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.joinAllServers(ctx, user)

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	log.Printf("[auth] registered user %s (%s)", user.Username, user.ID)
	return &models.AuthResponse{Token: token, User: *user}, nil
}

// joinAllServers, yeni kullanıcıyı node'daki tüm server'lara üye yapar ve
// sahipsiz server'ları devralır. Kayıt bu noktada tamamlanmıştır; buradaki
// hatalar loglanır ama kullanıcı kaydını geri almaz.
func (s *authService) joinAllServers(ctx context.Context, user *models.User) {
	servers, err := s.serverRepo.GetAll(ctx)
	if err != nil {
		log.Printf("[auth] failed to list servers for auto-join: %v", err)
		return
	}

	for _, server := range servers {
		err := s.memberRepo.Add(ctx, &models.Member{ServerID: server.ID, UserID: user.ID})
		if err != nil && !errors.Is(err, pkg.ErrAlreadyExists) {
			log.Printf("[auth] auto-join to server %s failed: %v", server.ID, err)
		}
	}

	claimed, err := s.serverRepo.ClaimUnclaimed(ctx, user.ID)
	if err != nil {
		log.Printf("[auth] claim unclaimed servers: %v", err)
		return
	}

	for _, serverID := range claimed {
		log.Printf("[auth] user %s claimed ownership of server %s", user.Username, serverID)
		server, err := s.serverRepo.GetByID(ctx, serverID)
		if err != nil {
			continue
		}
		s.hub.BroadcastToServer(serverID, ws.Event{
			Type: ws.EventServerUpdate,
			Data: ws.ServerUpdateData{Server: server.Public()},
		})
	}
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	// Tek tip hata: kullanıcı adı mı yanlış, şifre mi — söylenmez.
	invalidCreds := fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, invalidCreds
		}
		return nil, err
	}

	// Federated satırlarda password_hash boştur — bu hesaplar bu node'da
	// şifreyle giremez.
	if user.PasswordHash == "" {
		return nil, invalidCreds
	}

	ok, err := s.verifyPassword(ctx, req.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidCreds
	}

	if err := s.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		log.Printf("[auth] update last_seen for %s: %v", user.ID, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *authService) Validate(ctx context.Context, token string) *models.ValidateTokenResponse {
	claims, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		return &models.ValidateTokenResponse{Valid: false}
	}

	userID := claims.Subject
	resp := &models.ValidateTokenResponse{
		Valid:    true,
		UserID:   &userID,
		Username: &claims.Username,
	}

	// Profil alanları best-effort: token geçerliyse kullanıcı satırı
	// bulunamasa bile yanıt Valid=true kalır.
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		resp.DisplayName = &user.DisplayName
		resp.AvatarHash = user.AvatarHash
	}

	return resp
}

func (s *authService) PublicKeyPEM() string {
	return s.publicKeyPEM
}

func (s *authService) ForgotPassword(ctx context.Context, req *models.ForgotPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Fırsat temizliği: süresi geçmiş token'lar her istekte süpürülür,
	// ayrı bir cron gerekmez.
	if err := s.resetRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[auth] cleanup expired reset tokens: %v", err)
	}

	if s.sender == nil {
		log.Printf("[auth] password reset requested but no email sender is configured")
		return nil
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			// Hesabın varlığı sızdırılmaz — istek başarılı görünür.
			return nil
		}
		return err
	}

	if latest, err := s.resetRepo.GetLatestByUserID(ctx, user.ID); err == nil {
		if time.Since(latest.CreatedAt) < resetRequestCooldown {
			log.Printf("[auth] reset request for %s throttled", user.ID)
			return nil
		}
	}

	// Plaintext token mail'e gider; DB'de sadece SHA256 hash'i durur.
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("%w: token generation failed", pkg.ErrInternal)
	}
	plaintext := hex.EncodeToString(raw)
	digest := sha256.Sum256([]byte(plaintext))

	if err := s.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}

	record := &models.PasswordResetToken{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.resetRepo.Create(ctx, record); err != nil {
		return err
	}

	if err := s.sender.SendPasswordReset(ctx, req.Email, plaintext); err != nil {
		log.Printf("[auth] send reset email: %v", err)
		return fmt.Errorf("%w: failed to send reset email", pkg.ErrInternal)
	}

	log.Printf("[auth] password reset email sent for user %s", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	digest := sha256.Sum256([]byte(req.Token))
	record, err := s.resetRepo.GetByTokenHash(ctx, hex.EncodeToString(digest[:]))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrBadRequest)
		}
		return err
	}

	if time.Now().After(record.ExpiresAt) {
		_ = s.resetRepo.DeleteByID(ctx, record.ID)
		return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrBadRequest)
	}

	passwordHash, err := s.hashPassword(ctx, req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(ctx, record.UserID, passwordHash); err != nil {
		return err
	}

	// Token tek kullanımlık — kullanıcının TÜM token'ları geçersizleşir.
	if err := s.resetRepo.DeleteByUserID(ctx, record.UserID); err != nil {
		log.Printf("[auth] cleanup reset tokens for %s: %v", record.UserID, err)
	}

	log.Printf("[auth] password reset completed for user %s", record.UserID)
	return nil
}

// issueToken, kullanıcı için RS256 JWT üretir.
func (s *authService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := models.TokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: token signing failed", pkg.ErrInternal)
	}
	return token, nil
}

func (s *authService) hashPassword(ctx context.Context, password string) (string, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}
	defer s.hashSem.Release(1)

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("%w: password hashing failed", pkg.ErrInternal)
	}
	return hash, nil
}

func (s *authService) verifyPassword(ctx context.Context, password, encoded string) (bool, error) {
	if err := s.hashSem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%w: %v", pkg.ErrInternal, err)
	}
	defer s.hashSem.Release(1)

	ok, err := crypto.VerifyPassword(password, encoded)
	if err != nil {
		return false, fmt.Errorf("%w: password verification failed", pkg.ErrInternal)
	}
	return ok, nil
}
