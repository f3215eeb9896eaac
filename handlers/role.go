// Package handlers — RoleHandler: rol CRUD ve atama endpoint'leri.
// Tüm route'lar ManageServer yetkisiyle korunur (middleware).
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// RoleHandler, rol endpoint'lerini yönetir.
type RoleHandler struct {
	roleService services.RoleService
}

// NewRoleHandler, constructor.
func NewRoleHandler(roleService services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// List godoc
// GET /api/servers/{serverId}/roles
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roleService.List(r.Context(), r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, roles)
}

// Create godoc
// POST /api/servers/{serverId}/roles
// Body: { "name": "...", "permissions": 21, "color"?, "position"? }
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roleService.Create(r.Context(), r.PathValue("serverId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, role)
}

// Update godoc
// PATCH /api/servers/{serverId}/roles/{roleId}
// @everyone yeniden adlandırılamaz ama yetkileri düzenlenebilir.
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.roleService.Update(r.Context(), r.PathValue("serverId"), r.PathValue("roleId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, role)
}

// Delete godoc
// DELETE /api/servers/{serverId}/roles/{roleId}
// @everyone silinemez (400).
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roleService.Delete(r.Context(), r.PathValue("serverId"), r.PathValue("roleId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Assign godoc
// PUT /api/servers/{serverId}/members/{userId}/roles/{roleId}
// İdempotent: zaten atanmışsa yine 204. MemberUpdate broadcast edilir.
func (h *RoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	err := h.roleService.Assign(r.Context(), r.PathValue("serverId"), r.PathValue("userId"), r.PathValue("roleId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Unassign godoc
// DELETE /api/servers/{serverId}/members/{userId}/roles/{roleId}
func (h *RoleHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	err := h.roleService.Unassign(r.Context(), r.PathValue("serverId"), r.PathValue("userId"), r.PathValue("roleId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}
