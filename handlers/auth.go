// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/pkg/ratelimit"
	"github.com/candemir/meydan/services"
)

// AuthHandler, auth endpoint'lerini yöneten struct.
// Sadece token imzalayan node'larda (auth_hub / standalone) kurulur.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.LoginRateLimiter
}

// NewAuthHandler, constructor.
// loginLimiter: brute-force koruması. nil ise rate limiting devre dışı kalır.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
	}
}

// Register godoc
// POST /api/auth/register
// İlk kayıt olan kullanıcı sahipsiz server'ların sahipliğini devralır.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		pkg.RateLimited(w, h.loginLimiter.RetryAfterSeconds(ip))
		return
	}

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, resp)
}

// Login godoc
// POST /api/auth/login
//
// Rate limiting: IP bazlı brute-force koruması.
// Limit aşıldığında 429 + Retry-After döner; başarılı giriş sayacı
// sıfırlar, meşru kullanıcı bloke olmaz.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	pkg.JSON(w, http.StatusOK, resp)
}

// Validate godoc
// POST /api/auth/validate
// Body: { "token": "..." }
//
// Federasyon endpoint'i: community node'lar public key cache'leri
// yokken (veya key rotasyonu sonrası) token'ı hub'a sorabilir.
// Her zaman 200 döner; geçersiz token'da valid=false olur.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req models.ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pkg.JSON(w, http.StatusOK, h.authService.Validate(r.Context(), req.Token))
}

// PublicKey godoc
// GET /api/auth/public-key
// Hub'ın RS256 public key'ini dağıtır. Community node'lar açılışta
// bir kez çeker ve token'ları lokal doğrular.
func (h *AuthHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, models.PublicKeyResponse{
		PublicKeyPEM: h.authService.PublicKeyPEM(),
		Algorithm:    "RS256",
	})
}

// ForgotPassword godoc
// POST /api/auth/forgot-password
// Body: { "email": "..." }
//
// Güvenlik: email DB'de yoksa bile aynı success yanıtı döner
// (enumeration koruması). Cooldown'da da aynı yanıt döner.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		pkg.RateLimited(w, h.loginLimiter.RetryAfterSeconds(ip))
		return
	}

	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{
		"message": "if the email exists, a reset link has been sent",
	})
}

// ResetPassword godoc
// POST /api/auth/reset-password
// Body: { "token": "...", "new_password": "..." }
//
// Email'deki token ile şifre sıfırlar. Token tek kullanımlıktır.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset successfully",
	})
}

// contextKey: context.Value() için özel tip.
// String key kullanmak paketler arası çakışmaya neden olabilir;
// özel tip namespace collision'ı önler.
type contextKey string

// UserContextKey, auth middleware'in context'e koyduğu *models.User.
const UserContextKey contextKey = "user"

// ServerIDContextKey, membership middleware'in path'ten okuduğu {serverId}.
const ServerIDContextKey contextKey = "server_id"

// PermissionsContextKey, permission middleware'in hesapladığı effective
// yetki maskesi (models.Permission).
const PermissionsContextKey contextKey = "permissions"
