package models

// InstanceInfo, GET /api/instance/info yanıtı.
// Client bir node'a bağlanmadan önce bu endpoint'ten node'un modunu,
// varsayılan sunucusunu ve voice ayarlarını öğrenir.
type InstanceInfo struct {
	Mode            string         `json:"mode"`
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	DefaultServerID *string        `json:"default_server_id,omitempty"`
	Voice           *InstanceVoice `json:"voice,omitempty"`
}

// InstanceVoice, node'un SFU erişim bilgileri.
type InstanceVoice struct {
	Endpoint   string `json:"endpoint"`
	MinBitrate int    `json:"min_bitrate"`
	MaxBitrate int    `json:"max_bitrate"`
}
