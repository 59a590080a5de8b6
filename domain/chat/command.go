package chat

import (
	"time"
)

// PostMessageCommand carries a create request. ImageSize is trusted when > 0.
type PostMessageCommand struct {
	Text          string
	Image         string
	ImageFileName string
	ImageSize     int64
	Room          RoomKey
}

type EditMessageCommand struct {
	MessageID string
	Text      string
}

type DeleteMessageCommand struct {
	MessageID string
}

// GetMessagesCommand reads history of one scope. Before is an opaque cursor
// returned by a previous page.
type GetMessagesCommand struct {
	Room   RoomKey
	Before *string
	Limit  int
}

// Profile is the bookkeeping record kept for every authenticated user.
type Profile struct {
	UserID      string    `json:"uid"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	IsOnline    bool      `json:"isOnline"`
	LastSeen    time.Time `json:"lastSeen"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
