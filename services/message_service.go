// Package services — mesaj iş mantığı.
//
// Mesaj akışı:
//  1. REST POST → içerik sanitize + uzunluk kontrolü
//  2. Snowflake ID üretilir (zaman sıralı, pagination cursor'u)
//  3. DB'ye yazılır
//  4. MessageCreate kanala abone tüm kullanıcılara broadcast edilir
//
// Yetki modeli: kanal erişimi sunucu üyeliğinden gelir; yazma
// PermSendMessages ister; düzenleme sadece yazarın, silme yazarın
// VEYA PermManageMessages sahibinin hakkıdır.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/pkg/snowflake"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// defaultPageSize ve maxPageSize, mesaj geçmişi sayfalama sınırları.
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// TypingMarker, presence tarafının typing yüzeyi. PresenceService sağlar.
type TypingMarker interface {
	SetTyping(channelID, userID string)
}

// MessageService, mesaj operasyonları için iş mantığı interface'i.
type MessageService interface {
	// List, kanal geçmişini en yeniden eskiye döner. before bir snowflake
	// ID'dir (exclusive cursor); boş string son mesajlardan başlar.
	List(ctx context.Context, userID, channelID, before string, limit int) ([]models.Message, error)

	// Create, mesajı kaydeder ve MessageCreate yayınlar.
	Create(ctx context.Context, user *models.User, channelID string, req *models.CreateMessageRequest) (*models.Message, error)

	// Update, mesaj içeriğini değiştirir (sadece yazar) ve MessageUpdate yayınlar.
	Update(ctx context.Context, userID, channelID string, messageID int64, req *models.UpdateMessageRequest) (*models.Message, error)

	// Delete, mesajı soft-delete eder (yazar veya PermManageMessages)
	// ve MessageDelete yayınlar.
	Delete(ctx context.Context, userID, channelID string, messageID int64) error

	// Typing, kullanıcıyı kanalda "yazıyor" işaretler ve TypingStart yayınlar.
	Typing(ctx context.Context, userID, channelID string) error
}

type messageService struct {
	messageRepo  repository.MessageRepository
	channelRepo  repository.ChannelRepository
	memberRepo   repository.MemberRepository
	roleRepo     repository.RoleRepository
	reactionRepo repository.ReactionRepository
	typing       TypingMarker
	hub          ws.EventPublisher
	idGen        *snowflake.Generator
}

// NewMessageService, constructor.
func NewMessageService(
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	memberRepo repository.MemberRepository,
	roleRepo repository.RoleRepository,
	reactionRepo repository.ReactionRepository,
	typing TypingMarker,
	hub ws.EventPublisher,
	idGen *snowflake.Generator,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		channelRepo:  channelRepo,
		memberRepo:   memberRepo,
		roleRepo:     roleRepo,
		reactionRepo: reactionRepo,
		typing:       typing,
		hub:          hub,
		idGen:        idGen,
	}
}

// requireChannelAccess, kanalın varlığını ve kullanıcının kanalın
// sunucusuna üyeliğini doğrular. Mesaj route'ları /api/channels/...
// altında olduğu için sunucu üyelik middleware'inden geçmez — kontrol
// burada yapılır.
func (s *messageService) requireChannelAccess(ctx context.Context, channelID, userID string) (*models.Channel, error) {
	channel, err := s.channelRepo.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.memberRepo.IsMember(ctx, channel.ServerID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: you are not a member of this server", pkg.ErrForbidden)
	}
	return channel, nil
}

func (s *messageService) List(ctx context.Context, userID, channelID, before string, limit int) ([]models.Message, error) {
	if _, err := s.requireChannelAccess(ctx, channelID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeID int64
	if before != "" {
		parsed, err := strconv.ParseInt(before, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%w: invalid before cursor", pkg.ErrBadRequest)
		}
		// Cursor çözümü anchor mesaj üzerinden: id'si verilen mesaj
		// bulunur ve sayfa ondan ÖNCESİYLE (exclusive) sınırlanır.
		// Anchor silinmiş ya da hiç var olmamışsa ham değer kullanılır —
		// snowflake'ler zaman sıralı olduğu için karşılaştırma yine doğrudur.
		beforeID = parsed
		if anchor, err := s.messageRepo.GetByID(ctx, parsed); err == nil && anchor.ChannelID == channelID {
			beforeID = anchor.ID
		}
	}

	messages, err := s.messageRepo.GetByChannelID(ctx, channelID, beforeID, limit)
	if err != nil {
		return nil, err
	}

	s.decorate(ctx, messages)
	return messages, nil
}

// decorate, mesaj listesine türetilmiş alanları doldurur: mention'lar
// içerikten parse edilir, reaksiyon grupları tek sorguyla toplanır.
func (s *messageService) decorate(ctx context.Context, messages []models.Message) {
	if len(messages) == 0 {
		return
	}

	ids := make([]int64, 0, len(messages))
	for i := range messages {
		messages[i].Mentions = models.ParseMentions(messages[i].Content)
		ids = append(ids, messages[i].ID)
	}

	groups, err := s.reactionRepo.GetGroupsByMessageIDs(ctx, ids)
	if err != nil {
		// Reaksiyonlar süs verisidir — hata mesaj listesini düşürmez.
		return
	}
	for i := range messages {
		messages[i].Reactions = groups[messages[i].ID]
	}
}

func (s *messageService) Create(ctx context.Context, user *models.User, channelID string, req *models.CreateMessageRequest) (*models.Message, error) {
	channel, err := s.requireChannelAccess(ctx, channelID, user.ID)
	if err != nil {
		return nil, err
	}

	perms, err := s.roleRepo.EffectivePermissions(ctx, channel.ServerID, user.ID)
	if err != nil {
		return nil, err
	}
	if !perms.Has(models.PermSendMessages) {
		return nil, fmt.Errorf("%w: you do not have permission to send messages", pkg.ErrForbidden)
	}
	// Announcement kanallarına sadece kanal yöneticileri yazabilir.
	if channel.Type == models.ChannelTypeAnnouncement && !perms.Has(models.PermManageChannels) {
		return nil, fmt.Errorf("%w: only moderators can post in announcement channels", pkg.ErrForbidden)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	message := &models.Message{
		ID:        s.idGen.Next(),
		ChannelID: channelID,
		AuthorID:  user.ID,
		Content:   req.Content,
		Nonce:     req.Nonce,
		ReplyToID: req.ReplyToID,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	author := user.Public()
	message.Author = &author
	message.Mentions = models.ParseMentions(message.Content)

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventMessageCreate,
		Data: message,
	})
	return message, nil
}

func (s *messageService) Update(ctx context.Context, userID, channelID string, messageID int64, req *models.UpdateMessageRequest) (*models.Message, error) {
	if _, err := s.requireChannelAccess(ctx, channelID, userID); err != nil {
		return nil, err
	}

	message, err := s.getChannelMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	if message.AuthorID != userID {
		return nil, fmt.Errorf("%w: only the author can edit a message", pkg.ErrForbidden)
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	message.Content = req.Content
	if err := s.messageRepo.UpdateContent(ctx, message); err != nil {
		return nil, err
	}
	message.Mentions = models.ParseMentions(message.Content)

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventMessageUpdate,
		Data: message,
	})
	return message, nil
}

func (s *messageService) Delete(ctx context.Context, userID, channelID string, messageID int64) error {
	channel, err := s.requireChannelAccess(ctx, channelID, userID)
	if err != nil {
		return err
	}

	message, err := s.getChannelMessage(ctx, channelID, messageID)
	if err != nil {
		return err
	}

	// Yazar kendi mesajını siler; diğerleri PermManageMessages ister.
	if message.AuthorID != userID {
		perms, err := s.roleRepo.EffectivePermissions(ctx, channel.ServerID, userID)
		if err != nil {
			return err
		}
		if !perms.Has(models.PermManageMessages) {
			return fmt.Errorf("%w: you do not have permission to delete this message", pkg.ErrForbidden)
		}
	}

	if err := s.messageRepo.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	// IsDeleted wire'da her zaman true'dur — client tombstone'u mesaj
	// objesiyle aynı yoldan işler.
	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventMessageDelete,
		Data: ws.MessageDeleteData{
			ChannelID: channelID,
			MessageID: messageID,
			IsDeleted: true,
		},
	})
	return nil
}

func (s *messageService) Typing(ctx context.Context, userID, channelID string) error {
	if _, err := s.requireChannelAccess(ctx, channelID, userID); err != nil {
		return err
	}

	s.typing.SetTyping(channelID, userID)

	s.hub.BroadcastToChannel(channelID, ws.Event{
		Type: ws.EventTypingStart,
		Data: ws.TypingData{ChannelID: channelID, UserID: userID},
	})
	return nil
}

// getChannelMessage, mesajı yükler ve kanal eşleşmesini doğrular.
// Silinmiş mesajlar dışarıya var olmayan mesaj gibi görünür.
func (s *messageService) getChannelMessage(ctx context.Context, channelID string, messageID int64) (*models.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
		}
		return nil, err
	}
	if message.ChannelID != channelID || message.IsDeleted {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return message, nil
}
