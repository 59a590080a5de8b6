package ws

import (
	"chatchat/auth"
	"chatchat/contract"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"chatchat/infrastructure/api"
	"chatchat/observability"
	"chatchat/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const failedToSend = "Failed to send message"

// Handler upgrades authenticated requests and runs one Connection per session.
type Handler struct {
	gate     *auth.Gate
	registry contract.IRegistry
	chat     services.IChatService
	profiles services.IProfileService
	origins  *OriginPolicy
	upgrader websocket.Upgrader
	cfg      Config
	log      *slog.Logger

	mu          sync.Mutex
	connections map[string]*Connection
	wg          sync.WaitGroup
}

func NewHandler(
	gate *auth.Gate,
	registry contract.IRegistry,
	chat services.IChatService,
	profiles services.IProfileService,
	cfg Config,
	log *slog.Logger,
) *Handler {
	cfg = cfg.sanitize()
	h := &Handler{
		gate:        gate,
		registry:    registry,
		chat:        chat,
		profiles:    profiles,
		origins:     NewOriginPolicy(cfg.AllowedOrigins, log),
		cfg:         cfg,
		log:         log,
		connections: make(map[string]*Connection),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.origins.Allow,
	}
	return h
}

// ServeHTTP authenticates before upgrading: a refused request never gets a session.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.origins.Allow(r) {
		observability.ConnectionsRefused.WithLabelValues("origin").Inc()
		api.WriteJSON(w, http.StatusForbidden, api.ErrorBody{Error: "Origin not allowed", Code: "forbidden_origin"})
		return
	}

	identity, err := h.gate.AuthenticateRequest(r, h.cfg.AllowQueryParameter)
	if err != nil {
		observability.ConnectionsRefused.WithLabelValues(errors.Code(err)).Inc()
		api.WriteError(w, err)
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	session := chat.NewSession(uuid.NewString())
	if err := session.Authenticate(identity); err != nil {
		h.log.Error("Session refused a verified identity", "error", err)
		_ = socket.Close()
		return
	}
	c := newConnection(socket, session, identity, h.cfg, h.log)

	if !h.track(c) {
		_ = socket.Close()
		return
	}
	defer h.untrack(c)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	h.registry.Register(c.ID(), identity, c)
	observability.ConnectionsOpened.Inc()
	if _, err := h.profiles.Connected(ctx, identity); err != nil {
		h.log.Warn("Profile upsert failed", "uid", identity.UserID, "error", err)
	}
	c.log.Info("Connection authenticated", "name", identity.AuthorName())

	go c.writeLoop()
	c.readLoop(func(in event.Inbound) {
		h.dispatch(ctx, c, in)
	})

	c.Close()
	h.registry.Drop(c.ID())
	if err := h.profiles.Disconnected(ctx, identity.UserID); err != nil {
		h.log.Warn("Profile offline update failed", "uid", identity.UserID, "error", err)
	}
	c.log.Info("Connection closed")
}

// Shutdown closes every live connection and waits for their cleanup.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for _, c := range h.connections {
		c.Close()
	}
	h.connections = nil
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections == nil {
		return false
	}
	h.connections[c.ID()] = c
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(c *Connection) {
	h.mu.Lock()
	if h.connections != nil {
		delete(h.connections, c.ID())
	}
	h.mu.Unlock()
	h.wg.Done()
}

// dispatch handles one inbound event. Events of a connection are processed in arrival order.
func (h *Handler) dispatch(ctx context.Context, c *Connection, in event.Inbound) {
	observability.EventsReceived.WithLabelValues(string(in.Event)).Inc()

	switch in.Event {
	case event.JoinRoom:
		var payload event.JoinRoomPayload
		if err := decode(in.Data, &payload); err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		room := chat.NewRoomKey(payload.Room)
		history, err := h.chat.JoinRoom(ctx, c.ID(), room)
		if err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		_ = c.Consume(ctx, event.History(room, history))

	case event.LeaveRoom:
		var payload event.JoinRoomPayload
		if err := decode(in.Data, &payload); err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		h.chat.LeaveRoom(c.ID(), chat.NewRoomKey(payload.Room))

	case event.SendMessage:
		var payload event.SendMessagePayload
		if err := decode(in.Data, &payload); err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		_, err := h.chat.PostMessage(ctx, c.identity, chat.PostMessageCommand{
			Text:          payload.Text,
			Image:         payload.Image,
			ImageFileName: payload.ImageFileName,
			ImageSize:     payload.ImageSize,
			Room:          chat.NewRoomKey(payload.Room),
		})
		h.report(ctx, c, in.Event, err)

	case event.EditMessage:
		var payload event.EditMessagePayload
		if err := decode(in.Data, &payload); err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		_, err := h.chat.EditMessage(ctx, c.identity, chat.EditMessageCommand{MessageID: payload.MessageID, Text: payload.Text})
		h.report(ctx, c, in.Event, err)

	case event.DeleteMessage:
		var payload event.DeleteMessagePayload
		if err := decode(in.Data, &payload); err != nil {
			h.report(ctx, c, in.Event, err)
			return
		}
		_, err := h.chat.DeleteMessage(ctx, c.identity, chat.DeleteMessageCommand{MessageID: payload.MessageID})
		h.report(ctx, c, in.Event, err)

	default:
		h.report(ctx, c, in.Event, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, in.Event))
	}
}

// report applies the error policy of the live channel. Only the offending connection is told.
func (h *Handler) report(ctx context.Context, c *Connection, name event.Name, err error) {
	switch {
	case err == nil:
	case (name == event.EditMessage || name == event.DeleteMessage) && !errors.Is(err, errors.ErrStore):
		// Edits and deletes never answer, whatever the rejection.
		c.log.Debug("Event dropped", "event", name, "error", err)
	case errors.Is(err, errors.ErrValidation):
		c.log.Debug("Event rejected", "event", name, "error", err)
		_ = c.Consume(ctx, event.Failure(errors.PublicMessage(err), errors.Code(err)))
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrAuthorization):
		c.log.Debug("Event dropped", "event", name, "error", err)
	case errors.Is(err, errors.ErrUnknownSession):
		c.log.Debug("Event for a dropped session", "event", name)
	default:
		c.log.Error("Event failed", "event", name, "error", err)
		if name == event.SendMessage {
			_ = c.Consume(ctx, event.Failure(failedToSend, errors.Code(err)))
		}
	}
}

func decode(data json.RawMessage, payload any) error {
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return auth.Validate(payload)
}
