package e2e

import (
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testChatSuite struct {
	BaseSuite
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, &testChatSuite{})
}

func (s *testChatSuite) TestRoomConversation() {
	run := uuid.NewString()[:8]
	room := fmt.Sprintf("e2e-%s", run)
	alice := s.Connect(chat.Identity{UserID: "alice-" + run, DisplayName: "Alice"})
	defer alice.Close()
	bob := s.Connect(chat.Identity{UserID: "bob-" + run, DisplayName: "Bob"})
	defer bob.Close()

	var created event.MessagePayload

	s.Run("Step 1: Both join a fresh room", func() {
		var history event.HistoryPayload
		alice.Send(event.JoinRoom, event.JoinRoomPayload{Room: room})
		alice.Expect(event.RoomHistory, &history)
		s.Require().Empty(history.Messages)

		bob.Send(event.JoinRoom, event.JoinRoomPayload{Room: room})
		bob.Expect(event.RoomHistory, &history)
	})

	s.Run("Step 2: Alice posts, Bob receives", func() {
		alice.Send(event.SendMessage, event.SendMessagePayload{Text: "hello", Room: room})
		bob.Expect(event.MessageCreated, &created)
		s.Require().Equal("hello", created.Text)
		s.Require().Equal("Alice", created.DisplayName)
	})

	s.Run("Step 3: Alice edits, Bob sees the edit", func() {
		var edited event.MessagePayload
		alice.Send(event.EditMessage, event.EditMessagePayload{MessageID: created.ID, Text: "hello there"})
		bob.Expect(event.MessageEdited, &edited)
		s.Require().True(edited.IsEdited)
		s.Require().Equal("hello there", edited.Text)
	})

	s.Run("Step 4: Alice deletes, Bob sees the deletion", func() {
		var deleted event.DeletedPayload
		alice.Send(event.DeleteMessage, event.DeleteMessagePayload{MessageID: created.ID})
		bob.Expect(event.MessageDeleted, &deleted)
		s.Require().Equal(created.ID, deleted.ID)
	})
}
