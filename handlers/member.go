// Package handlers — MemberHandler: üye listesi ve moderasyon endpoint'leri.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// MemberHandler, üyelik endpoint'lerini yönetir.
type MemberHandler struct {
	memberService services.MemberService
}

// NewMemberHandler, constructor.
func NewMemberHandler(memberService services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// List godoc
// GET /api/servers/{serverId}/members
// Üyeleri presence durumlarıyla birlikte döner.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.memberService.List(r.Context(), r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, members)
}

// Get godoc
// GET /api/servers/{serverId}/members/{userId}
// Tek bir üyeyi presence durumuyla döner.
func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, err := h.memberService.Get(r.Context(), r.PathValue("serverId"), r.PathValue("userId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, member)
}

// Update godoc
// PATCH /api/servers/{serverId}/members/{userId}
// Body: { "nickname": "..." | null }
// Kullanıcı kendi takma adını değiştirebilir; başkasınınki ManageServer ister.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.memberService.UpdateNickname(r.Context(), r.PathValue("serverId"), r.PathValue("userId"), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, member)
}

// Kick godoc
// DELETE /api/servers/{serverId}/members/{userId}
// KickMembers yetkisi gerektirir. Owner atılamaz (403).
func (h *MemberHandler) Kick(w http.ResponseWriter, r *http.Request) {
	if err := h.memberService.Kick(r.Context(), r.PathValue("serverId"), r.PathValue("userId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Ban godoc
// POST /api/servers/{serverId}/bans
// Body: { "user_id": "...", "reason"? }
// BanMembers yetkisi gerektirir. Owner banlanamaz. Üyeyse atılır.
func (h *MemberHandler) Ban(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.memberService.Ban(r.Context(), r.PathValue("serverId"), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Unban godoc
// DELETE /api/servers/{serverId}/bans/{userId}
// BanMembers yetkisi gerektirir. Kayıt yoksa 404.
func (h *MemberHandler) Unban(w http.ResponseWriter, r *http.Request) {
	if err := h.memberService.Unban(r.Context(), r.PathValue("serverId"), r.PathValue("userId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Bans godoc
// GET /api/servers/{serverId}/bans
// BanMembers yetkisi gerektirir. En yeniden eskiye sıralıdır.
func (h *MemberHandler) Bans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.memberService.Bans(r.Context(), r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, bans)
}
