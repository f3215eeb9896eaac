// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar; her yerde ayrı ayrı
// os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode, node'un federasyon içindeki rolünü belirler.
//
//	auth_hub   — kimlik otoritesi: register/login + token imzalama
//	community  — chat+voice node'u: token'ları hub'ın public key'i ile doğrular
//	standalone — auth_hub + community tek process'te
type Mode string

const (
	ModeAuthHub    Mode = "auth_hub"
	ModeCommunity  Mode = "community"
	ModeStandalone Mode = "standalone"
)

// SignsTokens, bu node'un lokal keypair ile token imzalayıp imzalamadığı.
func (m Mode) SignsTokens() bool {
	return m == ModeAuthHub || m == ModeStandalone
}

// ServesChat, bu node'un sunucu/kanal/mesaj/voice yüzeyini taşıyıp taşımadığı.
func (m Mode) ServesChat() bool {
	return m == ModeCommunity || m == ModeStandalone
}

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct; her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Voice    VoiceConfig
	Upload   UploadConfig
	Email    EmailConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host              string
	Port              int
	Mode              Mode
	PublicURL         string   // Instance info'da "name" olarak döner
	AllowedOrigins    []string // CORS whitelist
	SnowflakeWorkerID int64
	DefaultServerName string // Seed migration'ın kurduğu sunucunun adı
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/meydan.db)
}

// AuthConfig, federated auth ayarları.
//
// hub/standalone: PrivateKeyPath + PublicKeyPath lokal RS256 keypair'i
// gösterir; dosyalar yoksa açılışta yeni bir çift üretilip diske yazılır.
// community: HubURL zorunludur, public key oradan çekilir.
type AuthConfig struct {
	HubURL                 string
	PrivateKeyPath         string
	PublicKeyPath          string
	TokenTTL               time.Duration
	AllowLocalRegistration bool
}

// VoiceConfig, in-process SFU ayarları.
// Tüm peer'lar tek UDP port üzerinden mux'lanır (Host:Port).
type VoiceConfig struct {
	Host           string
	Port           int
	PublicEndpoint string // Client'lara duyurulan adres (VoiceServerUpdate)
	MinBitrate     int
	MaxBitrate     int
	MaxSessions    int // Kanal başına katılımcı limiti
}

// UploadConfig, dosya yükleme ayarları.
type UploadConfig struct {
	DataDir       string // Avatarların kaydedileceği kök dizin
	AvatarMaxSize int64  // Byte cinsinden (varsayılan: 2MB)
}

// EmailConfig, şifre sıfırlama mail'leri için Resend ayarları.
// APIKey boşsa mail gönderilmez; reset endpoint'leri yine 200 döner.
type EmailConfig struct {
	ResendAPIKey string
	From         string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// Dosya yoksa hata vermez, sessizce devam eder.
	// Production'da gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	mode := Mode(getEnv("SERVER_MODE", string(ModeStandalone)))
	switch mode {
	case ModeAuthHub, ModeCommunity, ModeStandalone:
	default:
		return nil, fmt.Errorf("invalid SERVER_MODE: %q (expected auth_hub, community or standalone)", mode)
	}

	hubURL := strings.TrimRight(getEnv("AUTH_HUB_URL", ""), "/")
	if mode == ModeCommunity && hubURL == "" {
		return nil, fmt.Errorf("AUTH_HUB_URL is required in community mode")
	}

	tokenTTLHours, err := strconv.Atoi(getEnv("TOKEN_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: %w", err)
	}

	workerID, err := strconv.ParseInt(getEnv("SNOWFLAKE_WORKER_ID", "1"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SNOWFLAKE_WORKER_ID: %w", err)
	}

	voicePort, err := strconv.Atoi(getEnv("VOICE_PORT", "50000"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_PORT: %w", err)
	}

	minBitrate, err := strconv.Atoi(getEnv("VOICE_MIN_BITRATE", "16000"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_MIN_BITRATE: %w", err)
	}

	maxBitrate, err := strconv.Atoi(getEnv("VOICE_MAX_BITRATE", "64000"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_MAX_BITRATE: %w", err)
	}

	maxSessions, err := strconv.Atoi(getEnv("VOICE_MAX_SESSIONS", "64"))
	if err != nil {
		return nil, fmt.Errorf("invalid VOICE_MAX_SESSIONS: %w", err)
	}

	avatarMaxSize, err := strconv.ParseInt(getEnv("AVATAR_MAX_SIZE", "2097152"), 10, 64) // 2MB
	if err != nil {
		return nil, fmt.Errorf("invalid AVATAR_MAX_SIZE: %w", err)
	}

	host := getEnv("SERVER_HOST", "0.0.0.0")
	publicURL := strings.TrimRight(getEnv("PUBLIC_URL", fmt.Sprintf("http://localhost:%d", port)), "/")

	cfg := &Config{
		Server: ServerConfig{
			Host:              host,
			Port:              port,
			Mode:              mode,
			PublicURL:         publicURL,
			AllowedOrigins:    splitOrigins(getEnv("ALLOWED_ORIGINS", "*")),
			SnowflakeWorkerID: workerID,
			DefaultServerName: getEnv("DEFAULT_SERVER_NAME", "Meydan"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/meydan.db"),
		},
		Auth: AuthConfig{
			HubURL:                 hubURL,
			PrivateKeyPath:         getEnv("JWT_PRIVATE_KEY_PATH", "./data/keys/jwt_private.pem"),
			PublicKeyPath:          getEnv("JWT_PUBLIC_KEY_PATH", "./data/keys/jwt_public.pem"),
			TokenTTL:               time.Duration(tokenTTLHours) * time.Hour,
			AllowLocalRegistration: getEnv("ALLOW_LOCAL_REGISTRATION", "true") == "true",
		},
		Voice: VoiceConfig{
			Host:           getEnv("VOICE_HOST", host),
			Port:           voicePort,
			PublicEndpoint: getEnv("VOICE_PUBLIC_ENDPOINT", fmt.Sprintf("%s:%d", host, voicePort)),
			MinBitrate:     minBitrate,
			MaxBitrate:     maxBitrate,
			MaxSessions:    maxSessions,
		},
		Upload: UploadConfig{
			DataDir:       getEnv("DATA_DIR", "./data"),
			AvatarMaxSize: avatarMaxSize,
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "noreply@meydan.local"),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:8080").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
