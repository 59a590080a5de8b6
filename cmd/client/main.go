package main

import (
	"bufio"
	"chatchat/auth"
	"chatchat/domain/chat"
	"chatchat/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=ws://localhost:3000/ws"`
	Room          string `env:"CHAT_ROOM"`
	Token         string `env:"CHAT_TOKEN"`
	Secret        string `env:"JWT_HMAC_SECRET"`
	UserID        string `env:"CHAT_USER_ID,default=cli"`
	DisplayName   string `env:"CHAT_DISPLAY_NAME,default=Terminal"`
	LogLevel      string `env:"LOG_LEVEL,default=INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the live channel, prints every event and sends each stdin line as a message.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	token := config.Token
	if token == "" {
		if config.Secret == "" {
			return exitConfig, fmt.Errorf("CHAT_TOKEN or JWT_HMAC_SECRET is required")
		}
		signed, err := auth.GenerateToken(config.Secret, chat.Identity{UserID: config.UserID, DisplayName: config.DisplayName}, 24*time.Hour)
		if err != nil {
			return exitConfig, err
		}
		token = signed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerAddress, http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if config.Room != "" {
		if err := write(conn, event.JoinRoom, event.JoinRoomPayload{Room: config.Room}); err != nil {
			return exitRuntime, err
		}
	}
	log.Info("Connected (Ctrl+C to quit)", "server", config.ServerAddress, "room", chat.NewRoomKey(config.Room).String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- receive(conn, log)
	}()
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if err := write(conn, event.SendMessage, event.SendMessagePayload{Text: text, Room: config.Room}); err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return exitOK, nil
	case err := <-errChan:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, err
	}
}

func write(conn *websocket.Conn, name event.Name, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(event.Inbound{Event: name, Data: raw})
}

func receive(conn *websocket.Conn, log *slog.Logger) error {
	for {
		var frame event.Inbound
		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		switch frame.Event {
		case event.MessageCreated, event.MessageEdited:
			var m event.MessagePayload
			if err := json.Unmarshal(frame.Data, &m); err != nil {
				return err
			}
			suffix := ""
			if m.IsEdited {
				suffix = " (edited)"
			}
			log.Info(fmt.Sprintf("[%s] %s: %s%s", m.CreatedAt.Local().Format(time.TimeOnly), m.DisplayName, m.Text, suffix))
		case event.RoomHistory:
			var h event.HistoryPayload
			if err := json.Unmarshal(frame.Data, &h); err != nil {
				return err
			}
			for _, m := range h.Messages {
				log.Info(fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format(time.TimeOnly), m.DisplayName, m.Text))
			}
		default:
			log.Info(string(frame.Event), "data", string(frame.Data))
		}
	}
}
