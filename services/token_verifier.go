// Package services, iş mantığı katmanını içerir.
//
// Service'ler repository'leri (veri erişimi) ve hub'ı (event dağıtımı)
// birleştirir: handler HTTP'yi çözer, service kuralı uygular, repository
// SQL'i konuşur. Service'ler interface olarak tanımlanır; handler'lar
// somut tipi değil interface'i görür, testlerde mock'lanabilir.
package services

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/pkg/cache"
)

// tokenCacheTTL: doğrulanmış token'ların cache süresi.
// Her istekte RSA imza kontrolü yapmamak için kısa süreli cache tutulur.
// Süre kısa ki token expiry'si cache yüzünden fazla gecikmesin.
const tokenCacheTTL = 60 * time.Second

// hubRequestTimeout: community node'un hub'a yaptığı public key isteği
// için üst sınır.
const hubRequestTimeout = 10 * time.Second

// TokenVerifier, bir JWT'yi doğrulayıp claim'lerini döner.
//
// İki implementasyon vardır:
//   - localVerifier: diskteki public key ile doğrular (auth_hub/standalone)
//   - remoteVerifier: hub'dan bir kez çekilen public key ile doğrular (community)
//
// Hangi hata ne anlama gelir?
//   - pkg.ErrUnauthorized: token geçersiz/süresi dolmuş → 401
//   - pkg.ErrInternal: key'e ulaşılamadı (hub down vb.) → 500
//
// Ayrım önemli: hub'a ulaşılamaması client'ın suçu değildir; 401 dönersek
// client token'ını çöpe atar ve kullanıcı sebepsiz logout olur.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.TokenClaims, error)
}

// ─────────────────────────────────────────────
// Local Verifier (auth_hub / standalone)
// ─────────────────────────────────────────────

type localVerifier struct {
	publicKey *rsa.PublicKey
	cache     *cache.TTLCache[string, *models.TokenClaims]
}

// NewLocalVerifier, diskteki PEM public key ile doğrulayan verifier oluşturur.
// Key startup'ta bir kez parse edilir; okunamıyorsa süreç başlamamalıdır.
func NewLocalVerifier(publicKeyPath string) (TokenVerifier, error) {
	pem, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key %s: %w", publicKeyPath, err)
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("invalid RSA public key %s: %w", publicKeyPath, err)
	}

	return &localVerifier{
		publicKey: key,
		cache:     cache.New[string, *models.TokenClaims](tokenCacheTTL, time.Minute),
	}, nil
}

func (v *localVerifier) VerifyToken(_ context.Context, token string) (*models.TokenClaims, error) {
	if claims, ok := v.cache.Get(token); ok {
		return claims, nil
	}

	claims, err := parseRS256(token, v.publicKey)
	if err != nil {
		return nil, err
	}

	v.cache.Set(token, claims)
	return claims, nil
}

// ─────────────────────────────────────────────
// Remote Verifier (community)
// ─────────────────────────────────────────────

type remoteVerifier struct {
	hubURL string
	client *http.Client
	cache  *cache.TTLCache[string, *models.TokenClaims]

	// mu, publicKey'i korur. Key hub'dan BİR KEZ çekilir ve süresiz
	// saklanır: RSA keypair'i dönmez, hub restart'ı key'i değiştirmez.
	mu        sync.RWMutex
	publicKey *rsa.PublicKey
}

// NewRemoteVerifier, token'ları auth hub'ın public key'i ile doğrulayan
// verifier oluşturur. Key lazy çekilir: hub, community node açılırken
// kapalı olsa bile node başlar; ilk doğrulama isteği key'i getirir.
func NewRemoteVerifier(hubURL string) TokenVerifier {
	return &remoteVerifier{
		hubURL: hubURL,
		client: &http.Client{Timeout: hubRequestTimeout},
		cache:  cache.New[string, *models.TokenClaims](tokenCacheTTL, time.Minute),
	}
}

func (v *remoteVerifier) VerifyToken(ctx context.Context, token string) (*models.TokenClaims, error) {
	if claims, ok := v.cache.Get(token); ok {
		return claims, nil
	}

	key, err := v.ensureKey(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := parseRS256(token, key)
	if err != nil {
		return nil, err
	}

	v.cache.Set(token, claims)
	return claims, nil
}

// publicKeyResponse, hub'ın GET /api/auth/public-key yanıtı.
type publicKeyResponse struct {
	PublicKeyPEM string `json:"public_key_pem"`
	Algorithm    string `json:"algorithm"`
}

// ensureKey, hub'ın public key'ini döner; cache'te yoksa çeker.
// Çekme hatası pkg.ErrInternal'dır: token hakkında hiçbir şey
// söyleyemeyiz, 401 ile client'ı yanıltmayız.
func (v *remoteVerifier) ensureKey(ctx context.Context) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key := v.publicKey
	v.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// Kilit beklerken başka bir goroutine çekmiş olabilir.
	if v.publicKey != nil {
		return v.publicKey, nil
	}

	url := v.hubURL + "/api/auth/public-key"
	log.Printf("[auth] fetching public key from auth hub: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building public key request: %v", pkg.ErrInternal, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: auth hub unreachable: %v", pkg.ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: auth hub returned %d for public key request", pkg.ErrInternal, resp.StatusCode)
	}

	var body publicKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: invalid public key response: %v", pkg.ErrInternal, err)
	}

	parsed, err := jwt.ParseRSAPublicKeyFromPEM([]byte(body.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%w: auth hub sent invalid public key: %v", pkg.ErrInternal, err)
	}

	v.publicKey = parsed
	log.Printf("[auth] public key cached (algorithm=%s)", body.Algorithm)
	return parsed, nil
}

// parseRS256, token'ı verilen public key ile doğrular.
// İmza, algoritma ve expiry kontrolü jwt kütüphanesindedir; her türlü
// doğrulama hatası tek bir ErrUnauthorized'a iner — client'a token'ın
// neden geçersiz olduğu söylenmez.
func parseRS256(token string, key *rsa.PublicKey) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", pkg.ErrUnauthorized)
	}
	return claims, nil
}
