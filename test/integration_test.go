package test

import (
	"chatchat/attachment"
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/infrastructure/api"
	"chatchat/infrastructure/ws"
	"chatchat/repositories"
	"chatchat/runtime"
	"chatchat/services"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const secret = "integration-secret"

type app struct {
	server   *httptest.Server
	registry *runtime.Registry
	profiles repositories.IProfileRepository
}

// newApp wires the real stack on a temporary badger database.
func newApp(t *testing.T) app {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	stores, err := repositories.NewBadgerStores(db, log)
	req.NoError(err)

	registry := runtime.NewRegistry(log)
	chatService := services.NewChatService(stores.Messages, registry, nil, services.ChatConfig{
		Image: attachment.Options{MaxBytes: chat.MaxImageBytes},
	}, log)
	profileService := services.NewProfileService(stores.Profiles, registry, log)

	verifier, err := auth.NewJWTVerifier(auth.VerifierConfig{HMACSecret: secret})
	req.NoError(err)
	gate := auth.NewGate(verifier, log)

	wsHandler := ws.NewHandler(gate, registry, chatService, profileService, ws.DefaultConfig(), log)
	router := api.NewRouter(api.Dependencies{
		Gate:        gate,
		Chat:        chatService,
		Profiles:    profileService,
		Messages:    stores.Messages,
		Registry:    registry,
		LiveChannel: wsHandler,
	}, api.RouterConfig{}, log)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = wsHandler.Shutdown(ctx)
		_ = stores.Close(ctx)
	})
	return app{server: server, registry: registry, profiles: stores.Profiles}
}

func token(t *testing.T, uid, name string) string {
	t.Helper()
	signed, err := auth.GenerateToken(secret, chat.Identity{UserID: uid, DisplayName: name}, time.Hour)
	require.NoError(t, err)
	return signed
}

func (a app) connect(t *testing.T, uid, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws?token=" + token(t, uid, name)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return a.registry.SessionsOf(uid) == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func (a app) call(t *testing.T, method, path, uid string, body any) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	r, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token(t, uid, strings.ToUpper(uid)))
	r.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

type frame struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func send(t *testing.T, conn *websocket.Conn, name event.Name, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(event.Inbound{Event: name, Data: raw}))
}

func next(t *testing.T, conn *websocket.Conn, want event.Name, into any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	require.Equal(t, want, f.Event, "payload %s", string(f.Data))
	if into != nil {
		require.NoError(t, json.Unmarshal(f.Data, into))
	}
}

func Test_Scenario_Hello_Is_Delivered_And_Stored(t *testing.T) {
	req := require.New(t)
	a := newApp(t)

	// Given Alice and Bob connected
	alice := a.connect(t, "alice", "Alice")
	bob := a.connect(t, "bob", "Bob")

	req.Eventually(func() bool {
		profile, err := a.profiles.Get(context.Background(), "alice")
		return err == nil && profile.IsOnline
	}, time.Second, 5*time.Millisecond)

	// When Alice says hello without a room
	send(t, alice, event.SendMessage, event.SendMessagePayload{Text: "  hello  "})

	// Then both receive the trimmed message
	var onAlice, onBob event.MessagePayload
	next(t, alice, event.MessageCreated, &onAlice)
	next(t, bob, event.MessageCreated, &onBob)
	req.Equal("hello", onBob.Text)
	req.Equal("Alice", onBob.DisplayName)
	req.Equal("alice", onBob.UserID)
	req.Equal(onAlice.ID, onBob.ID)
	req.False(onBob.HasImage)

	// And the global history returns it
	resp := a.call(t, http.MethodGet, "/messages", "bob", nil)
	req.Equal(http.StatusOK, resp.StatusCode)
	var history []event.MessagePayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Len(history, 1)
	req.Equal(onBob.ID, history[0].ID)
}

func Test_Scenario_Oversized_Image_Only_Reaches_Sender(t *testing.T) {
	req := require.New(t)
	a := newApp(t)
	alice := a.connect(t, "alice", "Alice")
	bob := a.connect(t, "bob", "Bob")

	// When Alice declares a 6MB image
	send(t, alice, event.SendMessage, event.SendMessagePayload{
		Image:     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")),
		ImageSize: 6_291_456,
	})

	// Then only Alice is told
	var failure event.ErrorPayload
	next(t, alice, event.Error, &failure)
	req.Equal("Image too large (max 5MB)", failure.Message)
	req.Equal("image_too_large", failure.Code)

	// And the next frame Bob sees is his own message
	send(t, bob, event.SendMessage, event.SendMessagePayload{Text: "still here"})
	var onBob event.MessagePayload
	next(t, bob, event.MessageCreated, &onBob)
	req.Equal("still here", onBob.Text)

	// And a valid image only message gets the placeholder text
	send(t, alice, event.SendMessage, event.SendMessagePayload{
		Image:         "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png")),
		ImageFileName: "cat.png",
	})
	var onAlice event.MessagePayload
	next(t, alice, event.MessageCreated, &onAlice) // Bob's "still here"
	next(t, alice, event.MessageCreated, &onAlice)
	req.True(onAlice.HasImage)
	req.Equal(chat.ImagePlaceholderText, onAlice.Text)
	req.Equal("cat.png", *onAlice.ImageFileName)
}

func Test_Scenario_Only_The_Author_Edits_And_Deletes(t *testing.T) {
	req := require.New(t)
	a := newApp(t)
	alice := a.connect(t, "alice", "Alice")
	bob := a.connect(t, "bob", "Bob")

	send(t, alice, event.SendMessage, event.SendMessagePayload{Text: "first draft"})
	var created event.MessagePayload
	next(t, alice, event.MessageCreated, &created)
	next(t, bob, event.MessageCreated, nil)

	// When Bob tries to edit Alice's message, nothing is broadcast
	send(t, bob, event.EditMessage, event.EditMessagePayload{MessageID: created.ID, Text: "hijacked"})

	// When Alice edits it
	send(t, alice, event.EditMessage, event.EditMessagePayload{MessageID: created.ID, Text: "final"})

	// Then the first frame both see is Alice's edit
	var onBob event.MessagePayload
	next(t, bob, event.MessageEdited, &onBob)
	next(t, alice, event.MessageEdited, nil)
	req.Equal("final", onBob.Text)
	req.True(onBob.IsEdited)
	req.NotNil(onBob.UpdatedAt)

	// When Bob deletes it over HTTP, it is not found for him
	resp := a.call(t, http.MethodDelete, "/messages/"+created.ID, "bob", nil)
	req.Equal(http.StatusNotFound, resp.StatusCode)

	// When Alice deletes it
	resp = a.call(t, http.MethodDelete, "/messages/"+created.ID, "alice", nil)
	req.Equal(http.StatusOK, resp.StatusCode)

	var deleted event.DeletedPayload
	next(t, bob, event.MessageDeleted, &deleted)
	req.Equal(created.ID, deleted.ID)
	req.Equal("alice", deleted.UserID)

	// Then history no longer has it
	resp = a.call(t, http.MethodGet, "/messages", "bob", nil)
	var history []event.MessagePayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&history))
	req.Empty(history)
}

func Test_Scenario_Room_Messages_Stay_In_Their_Room(t *testing.T) {
	req := require.New(t)
	a := newApp(t)
	alice := a.connect(t, "alice", "Alice")
	bob := a.connect(t, "bob", "Bob")

	// Given Alice in the "general" room
	send(t, alice, event.JoinRoom, event.JoinRoomPayload{Room: "general"})
	var history event.HistoryPayload
	next(t, alice, event.RoomHistory, &history)
	req.Equal("general", history.Room)
	req.Empty(history.Messages)

	// When Bob posts to the room without joining it
	send(t, bob, event.SendMessage, event.SendMessagePayload{Text: "hi room", Room: "general"})

	// Then Alice receives it
	var onAlice event.MessagePayload
	next(t, alice, event.MessageCreated, &onAlice)
	req.Equal("general", onAlice.Room)

	// And it is listed in the room history, not in the global one
	resp := a.call(t, http.MethodGet, "/api/chat/messages/general", "bob", nil)
	var room []event.MessagePayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&room))
	req.Len(room, 1)

	resp = a.call(t, http.MethodGet, "/messages", "bob", nil)
	var global []event.MessagePayload
	req.NoError(json.NewDecoder(resp.Body).Decode(&global))
	req.Empty(global)
}

func Test_Scenario_Disconnect_Marks_Profile_Offline(t *testing.T) {
	req := require.New(t)
	a := newApp(t)
	alice := a.connect(t, "alice", "Alice")

	req.NoError(alice.Close())

	req.Eventually(func() bool {
		profile, err := a.profiles.Get(context.Background(), "alice")
		return err == nil && !profile.IsOnline
	}, 2*time.Second, 10*time.Millisecond)
}
