package api

import (
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"chatchat/errors"
	"chatchat/observability"
	"chatchat/repositories"
	"chatchat/services"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const (
	NextCursorHeader = "X-Next-Cursor"
	debugImageCount  = 10
	previewLength    = 50
)

// StatsProvider is implemented by the room registry.
type StatsProvider interface {
	Stats() (sessions int, rooms int)
}

type Handler struct {
	chat       services.IChatService
	profiles   services.IProfileService
	messages   repositories.IMessageRepository
	registry   StatsProvider
	monitoring *observability.MonitoringManager
	cfg        RouterConfig
	log        *slog.Logger
}

func NewHandler(deps Dependencies, cfg RouterConfig, log *slog.Logger) *Handler {
	return &Handler{
		chat:       deps.Chat,
		profiles:   deps.Profiles,
		messages:   deps.Messages,
		registry:   deps.Registry,
		monitoring: deps.Monitoring,
		cfg:        cfg,
		log:        log,
	}
}

type editRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

type deleteResponse struct {
	Success   bool      `json:"success"`
	DeletedAt time.Time `json:"deletedAt"`
}

type debugImage struct {
	ID               string    `json:"_id"`
	FileName         string    `json:"fileName"`
	ImageSize        int64     `json:"imageSize"`
	MimeType         string    `json:"mimeType"`
	HasImageData     bool      `json:"hasImageData"`
	ImageDataLength  int       `json:"imageDataLength"`
	ImageDataPreview string    `json:"imageDataPreview"`
	IsValidBase64    bool      `json:"isValidBase64"`
	IsDeleted        bool      `json:"isDeleted"`
	CreatedAt        time.Time `json:"createdAt"`
}

type debugImagesResponse struct {
	Count    int          `json:"count"`
	Messages []debugImage `json:"messages"`
}

type debugStatsResponse struct {
	Sessions int                            `json:"sessions"`
	Rooms    int                            `json:"rooms"`
	Process  *observability.MonitoringStats `json:"process,omitempty"`
}

func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"name": "chatchat_server", "status": "ok"})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMessages is the global history.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, chat.Global, h.cfg.HistoryLimit)
}

func (h *Handler) GetRoomMessages(w http.ResponseWriter, r *http.Request) {
	room := chat.NewRoomKey(chi.URLParam(r, "room"))
	if room.IsGlobal() {
		WriteError(w, fmt.Errorf("%w: room is required", errors.ErrInvalidPayload))
		return
	}
	h.history(w, r, room, h.cfg.RoomHistoryLimit)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, room chat.RoomKey, defaultLimit int) {
	limit, err := queryLimit(r, defaultLimit)
	if err != nil {
		WriteError(w, err)
		return
	}
	var before *string
	if cursor := r.URL.Query().Get("before"); cursor != "" {
		before = &cursor
	}

	messages, next, err := h.chat.GetMessages(r.Context(), chat.GetMessagesCommand{Room: room, Before: before, Limit: limit})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if next != nil {
		w.Header().Set(NextCursorHeader, *next)
	}
	WriteJSON(w, http.StatusOK, event.ToMessagePayloads(messages))
}

func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var body editRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err))
		return
	}
	if err := auth.Validate(body); err != nil {
		WriteError(w, err)
		return
	}

	message, err := h.chat.EditMessage(r.Context(), identity, chat.EditMessageCommand{
		MessageID: chi.URLParam(r, "id"),
		Text:      body.Text,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, event.ToMessagePayload(message))
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	message, err := h.chat.DeleteMessage(r.Context(), identity, chat.DeleteMessageCommand{MessageID: chi.URLParam(r, "id")})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, deleteResponse{Success: true, DeletedAt: lo.FromPtr(message.DeletedAt)})
}

// Me refreshes the profile of the caller and returns it.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	profile, err := h.profiles.Connected(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	if err := h.profiles.Logout(r.Context(), identity.UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DebugImages summarizes the latest image messages, newest first, deleted ones included.
func (h *Handler) DebugImages(w http.ResponseWriter, r *http.Request) {
	messages, _, err := h.messages.Find(r.Context(), repositories.MessageFilter{HasImage: lo.ToPtr(true)}, repositories.FindOptions{Limit: debugImageCount})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slices.Reverse(messages)

	summaries := lo.Map(messages, func(m chat.Message, _ int) debugImage {
		img := lo.FromPtr(m.Image)
		preview := img.EncodedPayload
		if len(preview) > previewLength {
			preview = preview[:previewLength]
		}
		return debugImage{
			ID:               m.ID,
			FileName:         img.FileName,
			ImageSize:        img.RawBytesLength,
			MimeType:         img.MimeType,
			HasImageData:     img.EncodedPayload != "",
			ImageDataLength:  len(img.EncodedPayload),
			ImageDataPreview: preview + "...",
			IsValidBase64:    strings.HasPrefix(img.EncodedPayload, "data:image/"),
			IsDeleted:        m.IsDeleted,
			CreatedAt:        m.CreatedAt,
		}
	})
	WriteJSON(w, http.StatusOK, debugImagesResponse{Count: len(summaries), Messages: summaries})
}

func (h *Handler) DebugStats(w http.ResponseWriter, _ *http.Request) {
	var response debugStatsResponse
	if h.registry != nil {
		response.Sessions, response.Rooms = h.registry.Stats()
	}
	if h.monitoring != nil {
		if latest := h.monitoring.GetLatest(); !latest.SampledAt.IsZero() {
			response.Process = &latest
		}
	}
	WriteJSON(w, http.StatusOK, response)
}

// fail logs what the client is not told.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteError(w, err)
}

func queryLimit(r *http.Request, defaultLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", errors.ErrInvalidPayload)
	}
	return limit, nil
}
