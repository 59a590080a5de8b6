package repositories

import (
	"chatchat/domain/chat"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func Test_MessageHistory_Performance(t *testing.T) {
	if testing.Short() {
		t.Skip("seeding is slow")
	}
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	defer db.Close()

	totalMessages := 100_000
	targetRoom := chat.NewRoomKey("room-42")

	// --- Phase 1: SEEDING ---
	// Documents are written with the same key layout and codec as the repository
	startSeed := time.Now()
	wb := db.NewWriteBatch()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < totalMessages; i++ {
		message := chat.Message{
			ID:          uuid.NewString(),
			AuthorID:    fmt.Sprintf("user_%d", i%500),
			DisplayName: fmt.Sprintf("User %d", i%500),
			Text:        "Hello world, this is a performance test for chatchat!",
			Room:        chat.NewRoomKey(fmt.Sprintf("room-%d", i%100)),
			CreatedAt:   base.Add(time.Duration(i) * time.Millisecond),
		}
		bytes, err := bson.Marshal(fromMessage(message))
		req.NoError(err)
		req.NoError(wb.Set(messageKey(message), bytes))
		req.NoError(wb.Set(pointerKey(message.ID), messageKey(message)))
	}
	req.NoError(wb.Flush())
	t.Logf("Seeded %d messages in %v", totalMessages, time.Since(startSeed))

	repository, err := NewBadgerMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelInfo))
	req.NoError(err)

	// --- RECOVERY OF 50 MESSAGES IN ONE ROOM ---
	startGet := time.Now()
	messages, next, err := repository.Find(context.Background(),
		MessageFilter{Room: &targetRoom, IsDeleted: lo.ToPtr(false)}, FindOptions{Limit: 50})
	req.NoError(err)
	t.Logf("Retrieved %d messages for %s in %v", len(messages), targetRoom, time.Since(startGet))

	// --- VERIFICATION ---
	req.Len(messages, 50)
	req.NotNil(next)
	for i := 1; i < len(messages); i++ {
		req.True(messages[i].CreatedAt.After(messages[i-1].CreatedAt))
	}

	// The clock continues after the seeded history
	created, err := repository.Create(context.Background(), chat.Message{AuthorID: "u", Text: "late", Room: targetRoom})
	req.NoError(err)
	req.True(created.CreatedAt.After(messages[len(messages)-1].CreatedAt))
}

// ============================================================================
// CONCURRENCY TESTS
// ============================================================================

// Test_ConcurrentCreates validates thread-safety when multiple
// goroutines write to the same room simultaneously.
func Test_ConcurrentCreates(t *testing.T) {
	req, ctx, repository := initBadger(t)
	room := chat.NewRoomKey("concurrent-room")

	const (
		numGoroutines    = 10
		writesPerRoutine = 50
		totalWrites      = numGoroutines * writesPerRoutine
	)

	var wg sync.WaitGroup
	var errorCount atomic.Int32
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(routineID int) {
			defer wg.Done()
			for j := 0; j < writesPerRoutine; j++ {
				content := fmt.Sprintf("Routine %d - Message %d", routineID, j)
				if _, err := repository.Create(ctx, chat.Message{AuthorID: "u", Text: content, Room: room}); err != nil {
					errorCount.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	req.Zero(errorCount.Load())
	messages, _, err := repository.Find(ctx, MessageFilter{Room: &room}, FindOptions{})
	req.NoError(err)
	req.Len(messages, totalWrites)
	ids := lo.Uniq(lo.Map(messages, func(m chat.Message, _ int) string { return m.ID }))
	req.Len(ids, totalWrites)
}

// Test_ConcurrentDeletes_Same_Message validates that only one of many
// concurrent conditional updates matches a live message.
func Test_ConcurrentDeletes_Same_Message(t *testing.T) {
	req, ctx, repository := initBadger(t)
	created, err := repository.Create(ctx, chat.Message{AuthorID: "alice", Text: "race me"})
	req.NoError(err)

	const numGoroutines = 20
	var wg sync.WaitGroup
	var successCount atomic.Int32
	filter := MessageFilter{ID: &created.ID, AuthorID: lo.ToPtr("alice"), IsDeleted: lo.ToPtr(false)}
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			if _, err := repository.UpdateOne(ctx, filter, MessageUpdate{IsDeleted: lo.ToPtr(true), DeletedAt: &now}); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	req.Equal(int32(1), successCount.Load())
}
