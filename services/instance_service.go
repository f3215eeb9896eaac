// Package services — instance keşif bilgisi.
//
// GET /api/instance/info auth istemez: client bağlanmadan önce node'un
// modunu (auth_hub / community / standalone), varsayılan sunucusunu ve
// voice erişim bilgilerini buradan öğrenir.
package services

import (
	"context"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
)

// InstanceService, node keşif bilgisini üretir.
type InstanceService interface {
	Info(ctx context.Context) *models.InstanceInfo
}

type instanceService struct {
	serverRepo repository.ServerRepository
	serverCfg  config.ServerConfig
	voiceCfg   config.VoiceConfig
}

// NewInstanceService, constructor. serverRepo chat taşımayan node'larda
// (auth_hub) nil olabilir.
func NewInstanceService(serverRepo repository.ServerRepository, serverCfg config.ServerConfig, voiceCfg config.VoiceConfig) InstanceService {
	return &instanceService{
		serverRepo: serverRepo,
		serverCfg:  serverCfg,
		voiceCfg:   voiceCfg,
	}
}

func (s *instanceService) Info(ctx context.Context) *models.InstanceInfo {
	info := &models.InstanceInfo{
		Mode:    string(s.serverCfg.Mode),
		Name:    s.serverCfg.PublicURL,
		Version: pkg.Version,
	}

	if !s.serverCfg.Mode.ServesChat() {
		return info
	}

	// Varsayılan sunucu: kuruluş sırasına göre ilki. Client ilk açılışta
	// kullanıcıyı buraya yönlendirir.
	if s.serverRepo != nil {
		if servers, err := s.serverRepo.GetAll(ctx); err == nil && len(servers) > 0 {
			info.DefaultServerID = &servers[0].ID
		}
	}

	info.Voice = &models.InstanceVoice{
		Endpoint:   s.voiceCfg.PublicEndpoint,
		MinBitrate: s.voiceCfg.MinBitrate,
		MaxBitrate: s.voiceCfg.MaxBitrate,
	}
	return info
}
