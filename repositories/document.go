package repositories

import (
	"chatchat/domain/chat"
	"time"
)

// messageDocument is the BSON shape of a message, shared by both backends.
type messageDocument struct {
	ID          string         `bson:"_id"`
	AuthorID    string         `bson:"userId"`
	DisplayName string         `bson:"displayName"`
	Text        string         `bson:"text"`
	Room        string         `bson:"room"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   *time.Time     `bson:"updatedAt,omitempty"`
	IsEdited    bool           `bson:"isEdited"`
	IsDeleted   bool           `bson:"isDeleted"`
	DeletedAt   *time.Time     `bson:"deletedAt,omitempty"`
	HasImage    bool           `bson:"hasImage"`
	Image       *imageDocument `bson:"image,omitempty"`
}

type imageDocument struct {
	MimeType       string    `bson:"mimeType"`
	RawBytesLength int64     `bson:"size"`
	FileName       string    `bson:"fileName"`
	EncodedPayload string    `bson:"data"`
	UploadedAt     time.Time `bson:"uploadedAt"`
}

type profileDocument struct {
	UserID      string    `bson:"_id"`
	Email       string    `bson:"email,omitempty"`
	DisplayName string    `bson:"displayName,omitempty"`
	IsOnline    bool      `bson:"isOnline"`
	LastSeen    time.Time `bson:"lastSeen"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

func fromMessage(m chat.Message) messageDocument {
	doc := messageDocument{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		DisplayName: m.DisplayName,
		Text:        m.Text,
		Room:        string(m.Room),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
		DeletedAt:   m.DeletedAt,
		HasImage:    m.HasImage(),
	}
	if img := m.Image; img != nil {
		doc.Image = &imageDocument{
			MimeType:       img.MimeType,
			RawBytesLength: img.RawBytesLength,
			FileName:       img.FileName,
			EncodedPayload: img.EncodedPayload,
			UploadedAt:     img.UploadedAt,
		}
	}
	return doc
}

func toMessage(doc messageDocument) chat.Message {
	m := chat.Message{
		ID:          doc.ID,
		AuthorID:    doc.AuthorID,
		DisplayName: doc.DisplayName,
		Text:        doc.Text,
		Room:        chat.RoomKey(doc.Room),
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   utc(doc.UpdatedAt),
		IsEdited:    doc.IsEdited,
		IsDeleted:   doc.IsDeleted,
		DeletedAt:   utc(doc.DeletedAt),
	}
	if img := doc.Image; img != nil {
		m.Image = &chat.Image{
			MimeType:       img.MimeType,
			RawBytesLength: img.RawBytesLength,
			FileName:       img.FileName,
			EncodedPayload: img.EncodedPayload,
			UploadedAt:     img.UploadedAt.UTC(),
		}
	}
	return m
}

func fromProfile(p chat.Profile) profileDocument {
	return profileDocument{
		UserID:      p.UserID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		IsOnline:    p.IsOnline,
		LastSeen:    p.LastSeen,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProfile(doc profileDocument) chat.Profile {
	return chat.Profile{
		UserID:      doc.UserID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		IsOnline:    doc.IsOnline,
		LastSeen:    doc.LastSeen.UTC(),
		CreatedAt:   doc.CreatedAt.UTC(),
		UpdatedAt:   doc.UpdatedAt.UTC(),
	}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
