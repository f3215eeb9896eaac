// Package main — Hub ve SFU callback wire-up.
//
// Hub ws paketinde, SFU sfu paketinde yaşar; ikisi de repository veya
// birbirini import etmez. Katmanları birbirine bağlayan callback'ler
// bu yüzden main'de kurulur (Dependency Inversion).
package main

import (
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/sfu"
	"github.com/candemir/meydan/ws"
)

// registerHubCallbacks, hub'ın üye çözücüsünü ve SFU'nun sinyal push
// callback'ini bağlar. Hub.Run() ve ilk bağlantıdan önce çağrılmalıdır.
//
// engine, chat servis etmeyen modlarda (auth_hub) nil'dir.
func registerHubCallbacks(hub *ws.Hub, engine *sfu.Engine, memberRepo repository.MemberRepository) {
	// BroadcastToServer üye listesini DB'den çözer; hub repository'yi
	// tanımadığı için fonksiyon referansı buradan verilir.
	hub.SetMemberResolver(memberRepo.GetUserIDs)

	if engine == nil {
		return
	}

	// SFU → client yönü: answer ve renegotiation offer'ları gateway'in
	// WebRTCSignal event'i olarak ilgili kullanıcıya push edilir.
	// FromUserID nil kalır — sinyalin kaynağı sunucudur, bir peer değil.
	engine.SetSignalFunc(func(userID, channelID, signalType, payload string) {
		hub.BroadcastToUser(userID, ws.Event{
			Type: ws.EventWebRTCSignal,
			Data: ws.WebRTCSignalData{
				ChannelID:  channelID,
				SignalType: signalType,
				Payload:    payload,
			},
		})
	})
}
