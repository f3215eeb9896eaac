// Package ws, WebSocket gateway'ini ve gerçek zamanlı event dağıtımını sağlar.
//
// Mimari:
// - Hub: Oturumları (session) ve kanal aboneliklerini yöneten merkezi yapı
// - Client: Tek bir WebSocket bağlantısını ve durum makinesini temsil eder
// - Event: Client-server arası iletilen zarf formatı
//
// Event akışı:
// 1. Kullanıcı mesaj gönderir → HTTP POST → Service → DB kayıt
// 2. Service, Hub'ın BroadcastToChannel metodunu çağırır
// 3. Hub, event'i kanala abone kullanıcıların mailbox'larına dağıtır
// 4. Her client'ın writePump'ı event'i WebSocket'e yazar
package ws

import "github.com/candemir/meydan/models"

// Event, WebSocket üzerinden iletilen bir mesajı temsil eder.
//
// Type: Event türü — "MessageCreate", "Heartbeat" vb. (PascalCase).
// Data: Event'e özgü payload; HeartbeatAck gibi payload'sız event'lerde omit edilir.
// Seq: Her outbound event'e verilen artan sayı. Client eksik event tespiti
// için takip eder: seq 5'ten sonra seq 7 gelirse 6 kaybolmuş demektir.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → Server event türleri
const (
	// EventIdentify, bağlantı sonrası ilk frame olmalıdır — token taşır.
	EventIdentify = "Identify"
	// EventHeartbeat, client'ın periyodik "hâlâ bağlıyım" sinyali.
	EventHeartbeat = "Heartbeat"
)

// Server → Client event türleri
const (
	EventReady             = "Ready"             // Kimlik doğrulandı — kullanıcı + session bilgisi
	EventHeartbeatAck      = "HeartbeatAck"      // Heartbeat yanıtı, payload'sız
	EventMessageCreate     = "MessageCreate"     // Yeni mesaj
	EventMessageUpdate     = "MessageUpdate"     // Mesaj düzenlendi
	EventMessageDelete     = "MessageDelete"     // Mesaj silindi
	EventReactionAdd       = "ReactionAdd"       // Mesaja emoji eklendi
	EventReactionRemove    = "ReactionRemove"    // Emoji kaldırıldı
	EventPresenceUpdate    = "PresenceUpdate"    // Kullanıcı durumu değişti
	EventTypingStart       = "TypingStart"       // Kullanıcı yazıyor
	EventServerCreate      = "ServerCreate"      // Yeni server (üyelere duyurulur)
	EventServerUpdate      = "ServerUpdate"      // Server bilgileri güncellendi
	EventChannelCreate     = "ChannelCreate"     // Yeni kanal
	EventMemberJoin        = "MemberJoin"        // Üye katıldı
	EventMemberLeave       = "MemberLeave"       // Üye ayrıldı (kick/ban/leave)
	EventMemberUpdate      = "MemberUpdate"      // Üye güncellendi (nickname, roller)
	EventUserUpdate        = "UserUpdate"        // Kullanıcı profili güncellendi
	EventVoiceStateUpdate  = "VoiceStateUpdate"  // Ses kanalı join/leave/mute/deafen
	EventVoiceServerUpdate = "VoiceServerUpdate" // Ses sunucusu bağlantı bilgisi
)

// EventWebRTCSignal iki yönlüdür: client SFU'ya offer/answer/ice gönderir,
// SFU renegotiation offer'larını aynı türle client'a iletir.
const EventWebRTCSignal = "WebRTCSignal"

// IdentifyData, Identify frame'inin payload'ı (Client → Server).
type IdentifyData struct {
	Token string `json:"token"`
}

// ReadyData, kimlik doğrulama sonrası gönderilen ilk event'in payload'ı.
// SessionID her bağlantı için üretilen UUIDv7'dir — client reconnect
// loglarında oturum ayırt etmek için kullanır.
type ReadyData struct {
	User      models.UserPublic `json:"user"`
	SessionID string            `json:"session_id"`
}

// MessageDeleteData, message silme event'inin payload'ı.
// IsDeleted her zaman true'dur — client tarafında ayrı bir silinme
// kontrolüne gerek kalmadan mesaj objesiyle aynı şekilde işlenir.
type MessageDeleteData struct {
	ChannelID string `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	IsDeleted bool   `json:"is_deleted"`
}

// ReactionData, ReactionAdd ve ReactionRemove event'lerinin ortak payload'ı.
type ReactionData struct {
	ChannelID string `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// PresenceData, bir kullanıcının durumu değiştiğinde broadcast edilen payload.
type PresenceData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// TypingData, TypingStart event'inin payload'ı.
type TypingData struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

// ServerCreateData, kullanıcının listesine yeni bir server girdiğinde
// (kendi kurduğunda veya katıldığında) sadece o kullanıcıya gönderilir.
type ServerCreateData struct {
	Server models.ServerPublic `json:"server"`
}

// ServerUpdateData, server bilgileri değiştiğinde broadcast edilen payload.
type ServerUpdateData struct {
	Server models.ServerPublic `json:"server"`
}

// MemberJoinData, server'a yeni üye katıldığında broadcast edilen payload.
type MemberJoinData struct {
	ServerID string            `json:"server_id"`
	User     models.UserPublic `json:"user"`
}

// MemberLeaveData, üye ayrıldığında (leave/kick/ban) broadcast edilen payload.
type MemberLeaveData struct {
	ServerID string `json:"server_id"`
	UserID   string `json:"user_id"`
}

// MemberUpdateData, üye bilgileri değiştiğinde broadcast edilen payload.
type MemberUpdateData struct {
	ServerID string        `json:"server_id"`
	Member   models.Member `json:"member"`
}

// UserUpdateData, kullanıcı profili değiştiğinde broadcast edilen payload.
type UserUpdateData struct {
	User models.UserPublic `json:"user"`
}

// VoiceStateData, ses kanalı durumu değiştiğinde broadcast edilen payload.
// Joined=true ise User dolu gelir (katılımcı listesi için); leave'de nil.
type VoiceStateData struct {
	ChannelID string             `json:"channel_id"`
	UserID    string             `json:"user_id"`
	Joined    bool               `json:"joined"`
	Muted     bool               `json:"muted"`
	Deafened  bool               `json:"deafened"`
	User      *models.UserPublic `json:"user"`
}

// VoiceServerData, voice join sonrası client'a gönderilen bağlantı bilgisi.
type VoiceServerData struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
}

// WebRTCSignalData, SFU signaling payload'ı.
//
// Client → Server: ToUserID nil/boş ise sinyal SFU'ya yönlendirilir.
// ToUserID doluysa eski P2P relay istenmiş demektir — desteklenmez, düşürülür.
// Server → Client: SFU'dan gelen renegotiation offer'larında FromUserID nil'dir.
//
// Payload, JSON string olarak taşınır (SDP veya ICE candidate'ın kendisi) —
// iç yapısı gateway'i ilgilendirmez.
type WebRTCSignalData struct {
	FromUserID *string `json:"from_user_id"`
	ToUserID   *string `json:"to_user_id"`
	ChannelID  string  `json:"channel_id"`
	SignalType string  `json:"signal_type"`
	Payload    string  `json:"payload"`
}
