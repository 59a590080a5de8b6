package repositories

import (
	"chatchat/domain/chat"
	"chatchat/errors"
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestBadgerProfileRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	repository := NewBadgerProfileRepository(db)
	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	// Given an unknown user
	_, err = repository.Get(ctx, "u1")
	req.ErrorIs(err, errors.ErrProfileNotFound)
	req.NoError(repository.SetOffline(ctx, "u1", first))
	_, err = repository.Get(ctx, "u1")
	req.ErrorIs(err, errors.ErrProfileNotFound)

	// When the user is seen for the first time
	profile, err := repository.Upsert(ctx, chat.Identity{UserID: "u1", Email: "a@x.io"}, first)
	req.NoError(err)
	req.True(profile.IsOnline)
	req.Equal("a@x.io", profile.DisplayName)
	req.Equal(first, profile.CreatedAt)

	// When seen again then logged out
	_, err = repository.Upsert(ctx, chat.Identity{UserID: "u1", DisplayName: "Alice", Email: "a@x.io"}, later)
	req.NoError(err)
	req.NoError(repository.SetOffline(ctx, "u1", later))

	// Then
	stored, err := repository.Get(ctx, "u1")
	req.NoError(err)
	req.False(stored.IsOnline)
	req.Equal("Alice", stored.DisplayName)
	req.Equal(first, stored.CreatedAt)
	req.Equal(later, stored.LastSeen)
}
