// Package handlers — VoiceHandler: ses kanalı endpoint'leri.
//
// REST katmanı sadece registry'yi yönetir (kim hangi kanalda); medya
// akışının kendisi WebSocket üzerinden WebRTC signaling ile kurulur.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// VoiceHandler, voice endpoint'lerini yönetir.
type VoiceHandler struct {
	voiceService services.VoiceService
}

// NewVoiceHandler, constructor.
func NewVoiceHandler(voiceService services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voiceService: voiceService}
}

// Join godoc
// POST /api/voice/{channelId}/join
// Kullanıcıyı ses kanalına ekler; başka kanaldaysa oradan çıkarılır.
// Yanıt: güncel katılımcı listesi. Ayrıca joiner'a VoiceServerUpdate,
// kanala VoiceStateUpdate gider.
func (h *VoiceHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	participants, err := h.voiceService.Join(r.Context(), user, r.PathValue("channelId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, participants)
}

// Leave godoc
// POST /api/voice/{channelId}/leave
// İdempotent: kanalda değilse de 204 döner.
func (h *VoiceHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.voiceService.Leave(r.Context(), user.ID, r.PathValue("channelId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// UpdateState godoc
// PATCH /api/voice/{channelId}/state
// Body: { "muted"?, "deafened"? } — kanalda değilse 404.
func (h *VoiceHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateVoiceStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.voiceService.UpdateState(r.Context(), user.ID, r.PathValue("channelId"), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Participants godoc
// GET /api/voice/{channelId}/participants
// Kanaldaki anlık katılımcılar. Boş kanal boş liste döner.
func (h *VoiceHandler) Participants(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.voiceService.Participants(r.PathValue("channelId")))
}
