package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/pkg/ratelimit"
	"github.com/candemir/meydan/services"
)

// MessageHandler, mesaj endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
	messageLimiter *ratelimit.MessageRateLimiter
}

// NewMessageHandler, constructor.
// messageLimiter: kullanıcı bazlı spam koruması. nil ise devre dışı.
func NewMessageHandler(messageService services.MessageService, messageLimiter *ratelimit.MessageRateLimiter) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		messageLimiter: messageLimiter,
	}
}

// List godoc
// GET /api/channels/{channelId}/messages?before=ID&limit=50
// Mesajları cursor-based pagination ile, en yeniden eskiye döner.
//
// Query parametreleri:
// - before: bu snowflake ID'den öncekileri getir (exclusive; boşsa en yeniler)
// - limit: sayfa boyutu (default 50, max 100)
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	channelID := r.PathValue("channelId")
	before := r.URL.Query().Get("before")

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	messages, err := h.messageService.List(r.Context(), user.ID, channelID, before, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}

// Create godoc
// POST /api/channels/{channelId}/messages
// Body: { "content": "...", "nonce"?, "reply_to_id"? }
//
// Rate limiting: kullanıcı bazlı window + cooldown. Pencere aşılırsa
// cooldown bitene kadar her istek 429 döner.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if h.messageLimiter != nil && !h.messageLimiter.Allow(user.ID) {
		pkg.RateLimited(w, h.messageLimiter.CooldownSeconds(user.ID))
		return
	}

	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Create(r.Context(), user, r.PathValue("channelId"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, message)
}

// Update godoc
// PATCH /api/channels/{channelId}/messages/{messageId}
// Body: { "content": "..." } — sadece mesaj sahibi düzenleyebilir.
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	messageID, err := parseMessageID(r)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	var req models.UpdateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.messageService.Update(r.Context(), user.ID, r.PathValue("channelId"), messageID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, message)
}

// Delete godoc
// DELETE /api/channels/{channelId}/messages/{messageId}
// Mesaj sahibi VEYA ManageMessages yetkisi olanlar silebilir (soft delete).
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	messageID, err := parseMessageID(r)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if err := h.messageService.Delete(r.Context(), user.ID, r.PathValue("channelId"), messageID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Typing godoc
// POST /api/channels/{channelId}/typing
// Kullanıcıyı kanalda "yazıyor" işaretler; TypingStart broadcast edilir.
// TTL dolunca işaret kendiliğinden düşer, "stop" endpoint'i yoktur.
func (h *MessageHandler) Typing(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.messageService.Typing(r.Context(), user.ID, r.PathValue("channelId")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// parseMessageID, path'teki {messageId} snowflake'ini çözer.
func parseMessageID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("messageId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid message id", pkg.ErrBadRequest)
	}
	return id, nil
}
