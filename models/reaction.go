package models

import "time"

// Reaction, bir kullanıcının bir mesaja verdiği tek bir emoji tepkisi.
// PRIMARY KEY(message_id, user_id, emoji) sayesinde aynı kullanıcı
// aynı mesaja aynı emojiyi bir kez ekleyebilir.
type Reaction struct {
	MessageID int64     `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup, bir mesajdaki aynı emojinin toplu görünümü.
// Mesaj listelerinde emoji başına count + kullanıcı listesi döner;
// client kendi ID'sini listede bulursa tepkiyi "aktif" gösterir.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"user_ids"`
}
