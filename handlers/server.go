// Package handlers — ServerHandler: sunucu CRUD + join/leave endpoint'leri.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// ServerHandler, sunucu endpoint'lerini yönetir.
type ServerHandler struct {
	serverService services.ServerService
}

// NewServerHandler, constructor.
func NewServerHandler(serverService services.ServerService) *ServerHandler {
	return &ServerHandler{serverService: serverService}
}

// List godoc
// GET /api/servers
// Kullanıcının üyesi olduğu sunucuları döner.
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	servers, err := h.serverService.List(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// Create godoc
// POST /api/servers
// Body: { "name": "...", "e2ee_enabled"? }
// Kurucusu owner + üye olur; #general ve Voice kanalları ile @everyone
// rolü otomatik açılır.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	server, err := h.serverService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, server)
}

// Get godoc
// GET /api/servers/{serverId}
// Membership middleware'den geçer — üye olmayan 403 alır.
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	server, err := h.serverService.Get(r.Context(), r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// Update godoc
// PATCH /api/servers/{serverId}
// Body: { "name"?, "icon_hash"? } — ManageServer yetkisi gerektirir.
func (h *ServerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	server, err := h.serverService.Update(r.Context(), r.PathValue("serverId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// Delete godoc
// DELETE /api/servers/{serverId}
// Sadece owner silebilir — kontrol service'tedir, rol yetkisi yetmez.
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.serverService.Delete(r.Context(), r.PathValue("serverId"), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Join godoc
// POST /api/servers/{serverId}/join
// Membership middleware'den GEÇMEZ — henüz üye olmayan çağırır.
// Banlı kullanıcı 403 alır; sahipsiz sunucuya ilk giren sahipliği devralır.
func (h *ServerHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	server, err := h.serverService.Join(r.Context(), user, r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// Leave godoc
// POST /api/servers/{serverId}/leave
// Owner ayrılamaz (400) — önce sahipliği devretmeli ya da sunucuyu silmeli.
func (h *ServerHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.serverService.Leave(r.Context(), user.ID, r.PathValue("serverId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}
