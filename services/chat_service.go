//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chatchat/attachment"
	"chatchat/contract"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"chatchat/moderation"
	"chatchat/observability"
	"chatchat/repositories"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	DefaultJoinHistoryLimit = 50
	defaultImageName        = "image"
)

// IChatService validates, persists then broadcasts message mutations.
type IChatService interface {
	PostMessage(ctx context.Context, identity chat.Identity, cmd chat.PostMessageCommand) (chat.Message, error)
	EditMessage(ctx context.Context, identity chat.Identity, cmd chat.EditMessageCommand) (chat.Message, error)
	DeleteMessage(ctx context.Context, identity chat.Identity, cmd chat.DeleteMessageCommand) (chat.Message, error)
	GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) ([]chat.Message, *string, error)
	JoinRoom(ctx context.Context, sessionID string, room chat.RoomKey) ([]chat.Message, error)
	LeaveRoom(sessionID string, room chat.RoomKey)
}

// ITextModerator censors text before it is stored.
type ITextModerator interface {
	Moderate(text string) moderation.Verdict
}

type ChatConfig struct {
	Image            attachment.Options
	JoinHistoryLimit int
}

type ChatService struct {
	repository repositories.IMessageRepository
	registry   contract.IRegistry
	moderator  ITextModerator
	config     ChatConfig
	log        *slog.Logger
	now        func() time.Time
}

// NewChatService builds the mutation engine. moderator may be nil.
func NewChatService(
	repository repositories.IMessageRepository,
	registry contract.IRegistry,
	moderator ITextModerator,
	config ChatConfig,
	log *slog.Logger,
) *ChatService {
	if config.JoinHistoryLimit <= 0 {
		config.JoinHistoryLimit = DefaultJoinHistoryLimit
	}
	return &ChatService{
		repository: repository,
		registry:   registry,
		moderator:  moderator,
		config:     config,
		log:        log,
		now:        time.Now,
	}
}

// PostMessage stores a new message then broadcasts it to its room, or to everyone when it has none.
func (s *ChatService) PostMessage(ctx context.Context, identity chat.Identity, cmd chat.PostMessageCommand) (chat.Message, error) {
	text := strings.TrimSpace(cmd.Text)
	hasImage := strings.TrimSpace(cmd.Image) != ""
	if text == "" && !hasImage {
		s.count("create", errors.ErrEmptyMessage)
		return chat.Message{}, errors.ErrEmptyMessage
	}

	message := chat.Message{
		AuthorID:    identity.UserID,
		DisplayName: identity.AuthorName(),
		Text:        s.moderate(text),
		Room:        chat.NewRoomKey(string(cmd.Room)),
	}

	if hasImage {
		decoded, err := attachment.Decode(cmd.Image, cmd.ImageSize, s.config.Image)
		if err != nil {
			s.count("create", err)
			return chat.Message{}, err
		}
		message.Image = &chat.Image{
			MimeType:       string(decoded.MimeType),
			RawBytesLength: decoded.RawBytesLength,
			FileName:       lo.CoalesceOrEmpty(strings.TrimSpace(cmd.ImageFileName), defaultImageName+"."+decoded.MimeType.Extension()),
			EncodedPayload: decoded.EncodedPayload,
		}
		if message.Text == "" {
			message.Text = chat.ImagePlaceholderText
		}
	}

	start := time.Now()
	saved, err := s.repository.Create(ctx, message)
	observability.StoreLatency.WithLabelValues("create").Observe(time.Since(start).Seconds())
	s.count("create", err)
	if err != nil {
		return chat.Message{}, err
	}

	e := event.Created(saved)
	var delivered int
	if saved.Room.IsGlobal() {
		delivered = s.registry.BroadcastToAll(ctx, e)
	} else {
		delivered = s.registry.BroadcastToRoom(ctx, saved.Room, e)
	}
	observability.Broadcasts.WithLabelValues(string(e.Event)).Add(float64(delivered))
	s.log.Debug("Message created", "id", saved.ID, "room", saved.Room.String(), "image", saved.HasImage(), "delivered", delivered)
	return saved, nil
}

// EditMessage replaces the text of a live message owned by identity and broadcasts it to everyone.
func (s *ChatService) EditMessage(ctx context.Context, identity chat.Identity, cmd chat.EditMessageCommand) (chat.Message, error) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		s.count("edit", errors.ErrEmptyText)
		return chat.Message{}, errors.ErrEmptyText
	}
	text = s.moderate(text)

	now := s.timestamp()
	start := time.Now()
	updated, err := s.repository.UpdateOne(ctx, s.ownedBy(identity, cmd.MessageID), repositories.MessageUpdate{
		Text:      &text,
		IsEdited:  lo.ToPtr(true),
		UpdatedAt: &now,
	})
	observability.StoreLatency.WithLabelValues("edit").Observe(time.Since(start).Seconds())
	s.count("edit", err)
	if err != nil {
		return chat.Message{}, err
	}

	delivered := s.registry.BroadcastToAll(ctx, event.Edited(updated))
	observability.Broadcasts.WithLabelValues(string(event.MessageEdited)).Add(float64(delivered))
	s.log.Debug("Message edited", "id", updated.ID, "delivered", delivered)
	return updated, nil
}

// DeleteMessage soft deletes a live message owned by identity. Only the first delete broadcasts.
func (s *ChatService) DeleteMessage(ctx context.Context, identity chat.Identity, cmd chat.DeleteMessageCommand) (chat.Message, error) {
	now := s.timestamp()
	start := time.Now()
	deleted, err := s.repository.UpdateOne(ctx, s.ownedBy(identity, cmd.MessageID), repositories.MessageUpdate{
		IsDeleted: lo.ToPtr(true),
		DeletedAt: &now,
	})
	observability.StoreLatency.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	s.count("delete", err)
	if err != nil {
		return chat.Message{}, err
	}

	delivered := s.registry.BroadcastToAll(ctx, event.Deleted(deleted))
	observability.Broadcasts.WithLabelValues(string(event.MessageDeleted)).Add(float64(delivered))
	s.log.Debug("Message deleted", "id", deleted.ID, "delivered", delivered)
	return deleted, nil
}

// GetMessages returns live messages of one scope in chronological order.
func (s *ChatService) GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) ([]chat.Message, *string, error) {
	if cmd.Limit < 0 {
		return nil, nil, fmt.Errorf("%w: negative limit", errors.ErrInvalidPayload)
	}
	room := chat.NewRoomKey(string(cmd.Room))
	start := time.Now()
	defer func() {
		observability.StoreLatency.WithLabelValues("find").Observe(time.Since(start).Seconds())
	}()
	return s.repository.Find(ctx, repositories.MessageFilter{
		Room:      &room,
		IsDeleted: lo.ToPtr(false),
	}, repositories.FindOptions{Limit: cmd.Limit, Before: cmd.Before})
}

// JoinRoom adds the session to the room and returns the recent history the joiner should see.
// The membership stands even when the history cannot be read.
func (s *ChatService) JoinRoom(ctx context.Context, sessionID string, room chat.RoomKey) ([]chat.Message, error) {
	if err := s.registry.Join(sessionID, room); err != nil {
		return nil, err
	}
	messages, _, err := s.GetMessages(ctx, chat.GetMessagesCommand{Room: room, Limit: s.config.JoinHistoryLimit})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *ChatService) LeaveRoom(sessionID string, room chat.RoomKey) {
	s.registry.Leave(sessionID, room)
}

// ownedBy is the single conditional filter guarding edit and delete.
func (s *ChatService) ownedBy(identity chat.Identity, messageID string) repositories.MessageFilter {
	return repositories.MessageFilter{
		ID:        lo.ToPtr(messageID),
		AuthorID:  lo.ToPtr(identity.UserID),
		IsDeleted: lo.ToPtr(false),
	}
}

func (s *ChatService) moderate(text string) string {
	if s.moderator == nil || text == "" {
		return text
	}
	return s.moderator.Moderate(text).Text
}

// timestamp has the precision of stored documents.
func (s *ChatService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *ChatService) count(operation string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrValidation):
		outcome = "invalid"
	case errors.Is(err, errors.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "failed"
	}
	observability.MessageMutations.WithLabelValues(operation, outcome).Inc()
}
