// Package handlers — UserHandler: profil ve avatar endpoint'leri.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// UserHandler, kullanıcı profil endpoint'lerini yönetir.
type UserHandler struct {
	userService services.UserService
	maxSize     int64
}

// NewUserHandler, constructor.
func NewUserHandler(userService services.UserService, maxSize int64) *UserHandler {
	return &UserHandler{
		userService: userService,
		maxSize:     maxSize,
	}
}

// Me godoc
// GET /api/users/@me
// Auth middleware context'e kullanıcıyı koymuştur; DB'ye gidilmez.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// UpdateMe godoc
// PATCH /api/users/@me
// Body: { "display_name"?, "identity_public_key"? }
// Değişiklik ortak sunuculara UserUpdate olarak yayınlanır.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.userService.UpdateProfile(r.Context(), user, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, updated)
}

// UploadAvatar godoc
// POST /api/users/@me/avatar
// Content-Type: multipart/form-data, "file" alanı.
//
// Görsel türü magic byte'lardan tanınır (png/jpg/gif/webp); client'ın
// beyan ettiği Content-Type yok sayılır. Başarıda {"avatar_hash": "..."}.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	// +1KB form overhead payı; asıl boyut limiti service'te.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1024)
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "failed to read file")
		return
	}

	hash, err := h.userService.SaveAvatar(r.Context(), user, data)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"avatar_hash": hash})
}

// ServeAvatar godoc
// GET /api/avatars/{userId}/{hash}
//
// Avatar dosyaları content-addressed olduğu için sonsuza kadar
// cache'lenebilir: hash değişirse URL de değişir.
func (h *UserHandler) ServeAvatar(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	hash := r.PathValue("hash")

	path, err := h.userService.AvatarPath(userID, hash)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}
