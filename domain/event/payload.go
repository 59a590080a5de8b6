package event

import (
	"chatchat/domain/chat"
	"time"

	"github.com/samber/lo"
)

// JoinRoomPayload is also used for room:leave.
type JoinRoomPayload struct {
	Room string `json:"room" validate:"required,max=128"`
}

type SendMessagePayload struct {
	Text          string `json:"text" validate:"max=10000"`
	Image         string `json:"image"`
	ImageFileName string `json:"imageFileName" validate:"max=255"`
	ImageSize     int64  `json:"imageSize" validate:"gte=0"`
	Room          string `json:"room" validate:"max=128"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId" validate:"required,max=128"`
	Text      string `json:"text" validate:"max=10000"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId" validate:"required,max=128"`
}

// MessagePayload is the wire shape of a message, flat as the web client expects it.
type MessagePayload struct {
	ID              string     `json:"_id"`
	UserID          string     `json:"userId"`
	DisplayName     string     `json:"displayName"`
	Text            string     `json:"text"`
	Room            string     `json:"room,omitempty"`
	HasImage        bool       `json:"hasImage"`
	ImageData       *string    `json:"imageData,omitempty"`
	ImageFileName   *string    `json:"imageFileName,omitempty"`
	ImageSize       *int64     `json:"imageSize,omitempty"`
	ImageMimeType   *string    `json:"imageMimeType,omitempty"`
	ImageUploadedAt *time.Time `json:"imageUploadedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
	IsEdited        bool       `json:"isEdited"`
	IsDeleted       bool       `json:"isDeleted"`
}

// DeletedPayload never carries the body of the deleted message.
type DeletedPayload struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	DeletedAt time.Time `json:"deletedAt"`
}

type MemberJoinedPayload struct {
	Room        string `json:"room"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type HistoryPayload struct {
	Room     string           `json:"room"`
	Messages []MessagePayload `json:"messages"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func ToMessagePayload(m chat.Message) MessagePayload {
	payload := MessagePayload{
		ID:          m.ID,
		UserID:      m.AuthorID,
		DisplayName: m.DisplayName,
		Text:        m.Text,
		Room:        string(m.Room),
		HasImage:    m.HasImage(),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
	}
	if img := m.Image; img != nil {
		payload.ImageData = lo.ToPtr(img.EncodedPayload)
		payload.ImageFileName = lo.ToPtr(img.FileName)
		payload.ImageSize = lo.ToPtr(img.RawBytesLength)
		payload.ImageMimeType = lo.ToPtr(img.MimeType)
		payload.ImageUploadedAt = lo.ToPtr(img.UploadedAt)
	}
	return payload
}

func ToMessagePayloads(messages []chat.Message) []MessagePayload {
	return lo.Map(messages, func(item chat.Message, _ int) MessagePayload {
		return ToMessagePayload(item)
	})
}

func Created(m chat.Message) Envelope {
	return New(MessageCreated, ToMessagePayload(m))
}

func Edited(m chat.Message) Envelope {
	return New(MessageEdited, ToMessagePayload(m))
}

func Deleted(m chat.Message) Envelope {
	deletedAt := m.CreatedAt
	if m.DeletedAt != nil {
		deletedAt = *m.DeletedAt
	}
	return New(MessageDeleted, DeletedPayload{ID: m.ID, UserID: m.AuthorID, DeletedAt: deletedAt})
}

func Joined(room chat.RoomKey, identity chat.Identity) Envelope {
	return New(MemberJoined, MemberJoinedPayload{
		Room:        string(room),
		UserID:      identity.UserID,
		DisplayName: identity.AuthorName(),
	})
}

func History(room chat.RoomKey, messages []chat.Message) Envelope {
	return New(RoomHistory, HistoryPayload{Room: string(room), Messages: ToMessagePayloads(messages)})
}

func Failure(message, code string) Envelope {
	return New(Error, ErrorPayload{Message: message, Code: code})
}
