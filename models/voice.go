// Package models — voice (ses) ile ilgili struct tanımları.
//
// VoiceParticipant EPHEMERAL'dır (geçicidir): veritabanına yazılmaz,
// in-memory registry'de tutulur. Server restart'ta tüm WebSocket
// bağlantıları düştüğü için voice state'in sıfırlanması doğaldır.
package models

// VoiceParticipant, bir ses kanalındaki kullanıcının anlık durumu.
// Username/DisplayName/AvatarHash join sırasında denormalize edilir ki
// katılımcı listesi için tekrar tekrar DB'ye gidilmesin.
type VoiceParticipant struct {
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarHash  *string `json:"avatar_hash"`
	Muted       bool    `json:"muted"`
	Deafened    bool    `json:"deafened"`
}

// UpdateVoiceStateRequest, mute/deafen güncelleme isteği.
// nil field değiştirilmez.
type UpdateVoiceStateRequest struct {
	Muted    *bool `json:"muted"`
	Deafened *bool `json:"deafened"`
}
