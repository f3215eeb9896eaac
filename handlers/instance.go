// Package handlers — InstanceHandler: node keşif endpoint'leri.
// Bu endpoint'ler auth istemez; client bağlanmadan önce çağırır.
package handlers

import (
	"net/http"

	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// InstanceHandler, instance bilgi endpoint'lerini yönetir.
type InstanceHandler struct {
	instanceService services.InstanceService
}

// NewInstanceHandler, constructor.
func NewInstanceHandler(instanceService services.InstanceService) *InstanceHandler {
	return &InstanceHandler{instanceService: instanceService}
}

// Info godoc
// GET /api/instance/info
// Node'un modu, adı, versiyonu, varsayılan sunucusu ve voice ayarları.
func (h *InstanceHandler) Info(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.instanceService.Info(r.Context()))
}

// Health godoc
// GET /api/health
// Liveness probe — load balancer ve monitoring için.
func (h *InstanceHandler) Health(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": pkg.Version,
	})
}
