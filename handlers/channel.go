// Package handlers — ChannelHandler: kanal endpoint'leri.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// ChannelHandler, kanal endpoint'lerini yönetir.
type ChannelHandler struct {
	channelService services.ChannelService
}

// NewChannelHandler, constructor.
func NewChannelHandler(channelService services.ChannelService) *ChannelHandler {
	return &ChannelHandler{channelService: channelService}
}

// List godoc
// GET /api/servers/{serverId}/channels
// Kanalları position sırasıyla döner.
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channelService.List(r.Context(), r.PathValue("serverId"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channels)
}

// Create godoc
// POST /api/servers/{serverId}/channels
// Body: { "name": "...", "type": "text"|"voice", "position"? }
// ManageChannels yetkisi gerektirir. ChannelCreate broadcast edilir.
func (h *ChannelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	channel, err := h.channelService.Create(r.Context(), r.PathValue("serverId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, channel)
}

// Delete godoc
// DELETE /api/servers/{serverId}/channels/{channelId}
// ManageChannels yetkisi gerektirir. Mesajlar cascade ile silinir.
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.channelService.Delete(r.Context(), r.PathValue("serverId"), r.PathValue("channelId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}
