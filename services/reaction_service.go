// Package services — mesaj reaksiyonları iş mantığı.
package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// maxEmojiLen, tek reaksiyon emojisinin üst sınırı. Birleşik emojiler
// (ZWJ dizileri, ten rengi modifier'ları) birden çok rune tutar.
const maxEmojiLen = 32

// ReactionService, reaksiyon operasyonları için iş mantığı interface'i.
//
// Add ve Remove idempotent'tir: durum zaten istenen haldeyse sessizce
// başarı döner ve event YAYINLANMAZ — client'lar aynı tepkiyi iki kez
// görmez.
type ReactionService interface {
	Add(ctx context.Context, userID, channelID string, messageID int64, emoji string) error
	Remove(ctx context.Context, userID, channelID string, messageID int64, emoji string) error
}

type reactionService struct {
	reactionRepo repository.ReactionRepository
	messageRepo  repository.MessageRepository
	channelRepo  repository.ChannelRepository
	memberRepo   repository.MemberRepository
	hub          ws.EventPublisher
}

// NewReactionService, constructor.
func NewReactionService(
	reactionRepo repository.ReactionRepository,
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	hub ws.EventPublisher,
) ReactionService {
	return &reactionService{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		channelRepo:  channelRepo,
		memberRepo:   memberRepo,
		hub:          hub,
	}
}

func (s *reactionService) Add(ctx context.Context, userID, channelID string, messageID int64, emoji string) error {
	if err := s.authorize(ctx, userID, channelID, messageID, emoji); err != nil {
		return err
	}

	added, err := s.reactionRepo.Add(ctx, messageID, userID, emoji)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventReactionAdd,
		Data: ws.ReactionData{
			ChannelID: channelID,
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		},
	})
	return nil
}

func (s *reactionService) Remove(ctx context.Context, userID, channelID string, messageID int64, emoji string) error {
	if err := s.authorize(ctx, userID, channelID, messageID, emoji); err != nil {
		return err
	}

	removed, err := s.reactionRepo.Remove(ctx, messageID, userID, emoji)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventReactionRemove,
		Data: ws.ReactionData{
			ChannelID: channelID,
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		},
	})
	return nil
}

// authorize, emoji'yi, kanal erişimini ve mesajın bu kanala ait
// olduğunu doğrular. Silinmiş mesaja tepki verilemez.
func (s *reactionService) authorize(ctx context.Context, userID, channelID string, messageID int64, emoji string) error {
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLen {
		return fmt.Errorf("%w: invalid emoji", pkg.ErrBadRequest)
	}

	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return err
	}

	isMember, err := s.memberRepo.IsMember(ctx, channel.ServerID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: you are not a member of this server", pkg.ErrForbidden)
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.ChannelID != channelID || message.IsDeleted {
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return nil
}
