//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// IMessageRepository is the durable message store.
// Find returns messages in chronological order with a cursor to the previous page, nil when exhausted.
// UpdateOne applies update only when the stored message matches every field of filter, atomically.
type IMessageRepository interface {
	Create(ctx context.Context, message chat.Message) (chat.Message, error)
	Find(ctx context.Context, filter MessageFilter, opts FindOptions) ([]chat.Message, *string, error)
	UpdateOne(ctx context.Context, filter MessageFilter, update MessageUpdate) (chat.Message, error)
}

// MessageFilter is a conjunction of equalities. Nil fields are ignored.
type MessageFilter struct {
	ID        *string
	AuthorID  *string
	Room      *chat.RoomKey
	IsDeleted *bool
	HasImage  *bool
}

type FindOptions struct {
	// Limit caps the page size, 0 means unbounded.
	Limit  int
	Before *string
}

type MessageUpdate struct {
	Text      *string
	IsEdited  *bool
	UpdatedAt *time.Time
	IsDeleted *bool
	DeletedAt *time.Time
}

func (f MessageFilter) matches(m chat.Message) bool {
	switch {
	case f.ID != nil && *f.ID != m.ID:
		return false
	case f.AuthorID != nil && *f.AuthorID != m.AuthorID:
		return false
	case f.Room != nil && *f.Room != m.Room:
		return false
	case f.IsDeleted != nil && *f.IsDeleted != m.IsDeleted:
		return false
	case f.HasImage != nil && *f.HasImage != m.HasImage():
		return false
	}
	return true
}

func (u MessageUpdate) apply(m *chat.Message) {
	if u.Text != nil {
		m.Text = *u.Text
	}
	if u.IsEdited != nil {
		m.IsEdited = *u.IsEdited
	}
	if u.UpdatedAt != nil {
		m.UpdatedAt = u.UpdatedAt
	}
	if u.IsDeleted != nil {
		m.IsDeleted = *u.IsDeleted
	}
	if u.DeletedAt != nil {
		m.DeletedAt = u.DeletedAt
	}
}

// encodeCursor is also the key suffix of a message in the badger layout:
// a 19 digits zero padded timestamp then the id, so that cursors sort like keys.
func encodeCursor(m chat.Message) string {
	return fmt.Sprintf("%019d:%s", m.CreatedAt.UnixNano(), m.ID)
}

func decodeCursor(cursor string) (time.Time, string, error) {
	at, id, found := strings.Cut(cursor, ":")
	if !found || len(at) != 19 || id == "" {
		return time.Time{}, "", errors.ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return time.Time{}, "", errors.ErrInvalidCursor
	}
	return time.Unix(0, nanos).UTC(), id, nil
}

// monotonicClock hands out strictly increasing creation times.
// Documents keep millisecond precision, so ties are broken one millisecond apart.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{now: time.Now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}

// Seed makes the clock start after at, used when reopening an existing store.
func (c *monotonicClock) Seed(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.After(c.last) {
		c.last = at.UTC()
	}
}

// prepare assigns the store owned fields of a new message.
func prepare(message chat.Message, id string, at time.Time) chat.Message {
	message.ID = id
	message.CreatedAt = at
	message.UpdatedAt = nil
	message.IsEdited = false
	message.IsDeleted = false
	message.DeletedAt = nil
	if message.Image != nil {
		img := *message.Image
		img.UploadedAt = at
		message.Image = &img
	}
	return message
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", errors.ErrStore, op, err)
}
