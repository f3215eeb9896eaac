// Package handlers — ReactionHandler: mesaj reaksiyonu endpoint'leri.
//
// Emoji path segment'inde taşınır ve URL-encoded gelir ("%F0%9F%91%8D");
// ServeMux PathValue decode edilmiş halini verir.
package handlers

import (
	"net/http"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/services"
)

// ReactionHandler, reaksiyon endpoint'lerini yönetir.
type ReactionHandler struct {
	reactionService services.ReactionService
}

// NewReactionHandler, constructor.
func NewReactionHandler(reactionService services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

// Add godoc
// PUT /api/channels/{channelId}/messages/{messageId}/reactions/{emoji}
// İdempotent: aynı reaksiyon ikinci kez eklenirse 204 döner, event düşmez.
func (h *ReactionHandler) Add(w http.ResponseWriter, r *http.Request) {
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

	err = h.reactionService.Add(r.Context(), user.ID, r.PathValue("channelId"), messageID, r.PathValue("emoji"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}

// Remove godoc
// DELETE /api/channels/{channelId}/messages/{messageId}/reactions/{emoji}
func (h *ReactionHandler) Remove(w http.ResponseWriter, r *http.Request) {
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

	err = h.reactionService.Remove(r.Context(), user.ID, r.PathValue("channelId"), messageID, r.PathValue("emoji"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.NoContent(w)
}
