package chat

import "time"

const (
	// MaxImageBytes is the largest decoded image accepted on a message.
	MaxImageBytes int64 = 5 * 1024 * 1024
	// ImagePlaceholderText is stored as text for messages carrying only an image.
	ImagePlaceholderText = "📷 Image"
)

// Message is the persisted chat record. ID, AuthorID and CreatedAt are assigned once by the store.
type Message struct {
	ID          string
	AuthorID    string
	DisplayName string
	Text        string
	Room        RoomKey
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	IsEdited    bool
	IsDeleted   bool
	DeletedAt   *time.Time
	Image       *Image
}

// Image is an inline attachment. EncodedPayload is kept verbatim for exact round-trip.
type Image struct {
	MimeType       string
	RawBytesLength int64
	FileName       string
	EncodedPayload string
	UploadedAt     time.Time
}

func (m Message) HasImage() bool {
	return m.Image != nil
}
