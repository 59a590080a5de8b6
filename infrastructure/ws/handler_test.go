package ws

import (
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"chatchat/infrastructure/api"
	"chatchat/mocks"
	"chatchat/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type harness struct {
	server   *httptest.Server
	handler  *Handler
	registry *runtime.Registry
	chat     *mocks.MockIChatService
	profiles *mocks.MockIProfileService
}

func newHarness(t *testing.T, cfg Config) harness {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	verifier := mocks.NewMockIVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, token string) (chat.Identity, error) {
		if uid, ok := strings.CutPrefix(token, "valid-"); ok {
			return chat.Identity{UserID: uid, DisplayName: strings.ToUpper(uid)}, nil
		}
		return chat.Identity{}, errors.ErrInvalidCredential
	}).AnyTimes()

	h := harness{
		registry: runtime.NewRegistry(log),
		chat:     mocks.NewMockIChatService(ctrl),
		profiles: mocks.NewMockIProfileService(ctrl),
	}
	h.handler = NewHandler(auth.NewGate(verifier, log), h.registry, h.chat, h.profiles, cfg, log)
	h.server = httptest.NewServer(h.handler)
	t.Cleanup(h.server.Close)
	return h
}

func (h harness) url(token string) string {
	u := "ws" + strings.TrimPrefix(h.server.URL, "http")
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (h harness) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	h.profiles.EXPECT().Connected(gomock.Any(), gomock.Any()).Return(chat.Profile{UserID: uid}, nil)
	disconnected := make(chan struct{})
	h.profiles.EXPECT().Disconnected(gomock.Any(), uid).DoAndReturn(func(context.Context, string) error {
		close(disconnected)
		return nil
	})
	conn, resp, err := websocket.DefaultDialer.Dial(h.url("valid-"+uid), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() {
		_ = conn.Close()
		select {
		case <-disconnected:
		case <-time.After(2 * time.Second):
			t.Error("connection was not cleaned up")
		}
	})
	require.Eventually(t, func() bool { return h.registry.SessionsOf(uid) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, name event.Name, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(event.Inbound{Event: name, Data: raw}))
}

type received struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var r received
	require.NoError(t, conn.ReadJSON(&r))
	return r
}

func failure(t *testing.T, r received) event.ErrorPayload {
	t.Helper()
	require.Equal(t, event.Error, r.Event)
	var payload event.ErrorPayload
	require.NoError(t, json.Unmarshal(r.Data, &payload))
	return payload
}

func TestHandler_Refuses_Before_Upgrade(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     http.Header
		wantStatus int
		wantCode   string
	}{
		{"Missing credential", "", nil, http.StatusUnauthorized, "missing_credential"},
		{"Invalid credential", "forged", nil, http.StatusUnauthorized, "invalid_credential"},
		{"Disallowed origin", "valid-alice", http.Header{"Origin": {"http://evil.example"}}, http.StatusForbidden, "forbidden_origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

			_, resp, err := websocket.DefaultDialer.Dial(h.url(tt.token), tt.header)

			req.ErrorIs(err, websocket.ErrBadHandshake)
			req.Equal(tt.wantStatus, resp.StatusCode)
			var body api.ErrorBody
			req.NoError(json.NewDecoder(resp.Body).Decode(&body))
			req.Equal(tt.wantCode, body.Code)
			sessions, _ := h.registry.Stats()
			req.Zero(sessions)
		})
	}
}

func TestHandler_Verifier_Unavailable(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	handler := NewHandler(auth.NewGate(nil, log), runtime.NewRegistry(log), nil, nil, Config{}, log)
	server := httptest.NewServer(handler)
	defer server.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"?token=abc", nil)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_Join_Sends_History_To_Joiner(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	room := chat.RoomKey("general")
	h.chat.EXPECT().JoinRoom(gomock.Any(), gomock.Any(), room).Return([]chat.Message{{ID: "m-1", AuthorID: "bob", Text: "earlier", Room: room}}, nil)

	conn := h.dial(t, "alice")

	// When alice joins
	send(t, conn, event.JoinRoom, event.JoinRoomPayload{Room: "general"})

	// Then she receives the history of the room
	r := next(t, conn)
	req.Equal(event.RoomHistory, r.Event)
	var history event.HistoryPayload
	req.NoError(json.Unmarshal(r.Data, &history))
	req.Equal("general", history.Room)
	req.Len(history.Messages, 1)
	req.Equal("earlier", history.Messages[0].Text)
}

func TestHandler_Error_Policy(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	conn := h.dial(t, "alice")

	// Given a validation failure, only the sender is told
	h.chat.EXPECT().PostMessage(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(chat.Message{}, fmt.Errorf("%w (max 5MB)", errors.ErrImageTooLarge))
	send(t, conn, event.SendMessage, event.SendMessagePayload{Image: "data:image/png;base64,AAAA", ImageSize: 6_291_456})
	payload := failure(t, next(t, conn))
	req.Equal("Image too large (max 5MB)", payload.Message)
	req.Equal("image_too_large", payload.Code)

	// Given an edit of someone else's message, nothing is sent back
	h.chat.EXPECT().EditMessage(gomock.Any(), gomock.Any(), chat.EditMessageCommand{MessageID: "m-1", Text: "x"}).
		Return(chat.Message{}, errors.ErrMessageUnavailable)
	send(t, conn, event.EditMessage, event.EditMessagePayload{MessageID: "m-1", Text: "x"})

	// Given a store failure on create, the sender gets a generic message
	h.chat.EXPECT().PostMessage(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(chat.Message{}, fmt.Errorf("%w: disk", errors.ErrStore))
	send(t, conn, event.SendMessage, event.SendMessagePayload{Text: "hello"})

	// Then the next frame is the store failure, proving the edit was silent
	payload = failure(t, next(t, conn))
	req.Equal(failedToSend, payload.Message)
	req.Equal("internal", payload.Code)

	// Given an unknown event and a malformed frame
	send(t, conn, "message:shout", struct{}{})
	req.Equal("unknown_event", failure(t, next(t, conn)).Code)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	req.Equal("invalid_request", failure(t, next(t, conn)).Code)

	// Given a payload failing validation tags on send
	send(t, conn, event.SendMessage, map[string]any{"imageSize": -1})
	req.Equal("invalid_request", failure(t, next(t, conn)).Code)
}

func TestHandler_Rejected_Edits_And_Deletes_Are_Silent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	conn := h.dial(t, "alice")

	// Given an edit with blank text
	h.chat.EXPECT().EditMessage(gomock.Any(), gomock.Any(), chat.EditMessageCommand{MessageID: "m-1", Text: "   "}).
		Return(chat.Message{}, errors.ErrEmptyText)
	send(t, conn, event.EditMessage, event.EditMessagePayload{MessageID: "m-1", Text: "   "})

	// And a delete and an edit without message id
	send(t, conn, event.DeleteMessage, event.DeleteMessagePayload{})
	send(t, conn, event.EditMessage, event.EditMessagePayload{Text: "x"})

	// When a message is sent afterwards
	h.chat.EXPECT().PostMessage(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, identity chat.Identity, cmd chat.PostMessageCommand) (chat.Message, error) {
			m := chat.Message{ID: "m-2", AuthorID: identity.UserID, Text: cmd.Text}
			h.registry.BroadcastToAll(ctx, event.Created(m))
			return m, nil
		})
	send(t, conn, event.SendMessage, event.SendMessagePayload{Text: "later"})

	// Then the next frame is that message, nothing was answered before
	r := next(t, conn)
	req.Equal(event.MessageCreated, r.Event)
	var created event.MessagePayload
	req.NoError(json.Unmarshal(r.Data, &created))
	req.Equal("m-2", created.ID)
}

func TestHandler_Disconnect_Cleans_Up(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	conn := h.dial(t, "alice")
	h.chat.EXPECT().JoinRoom(gomock.Any(), gomock.Any(), chat.RoomKey("general")).
		DoAndReturn(func(_ context.Context, sessionID string, room chat.RoomKey) ([]chat.Message, error) {
			return nil, h.registry.Join(sessionID, room)
		})
	send(t, conn, event.JoinRoom, event.JoinRoomPayload{Room: "general"})
	req.Equal(event.RoomHistory, next(t, conn).Event)

	// When the client goes away
	req.NoError(conn.Close())

	// Then the session and its rooms are gone
	req.Eventually(func() bool {
		sessions, rooms := h.registry.Stats()
		return sessions == 0 && rooms == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_Shutdown_Closes_Connections(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	conn := h.dial(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req.NoError(h.handler.Shutdown(ctx))

	// Then the client observes the close and no session remains
	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	req.Zero(h.registry.SessionsOf("alice"))
}
