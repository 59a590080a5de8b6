package internal

import (
	"chatchat/domain/chat"
	"chatchat/repositories"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               int           `env:"PORT,default=3000"`
	GRPCPort           int           `env:"GRPC_PORT,default=0"`
	LogLevel           string        `env:"LOG_LEVEL,default=INFO"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	HeartbeatInterval  time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	DebugEndpoints     bool          `env:"DEBUG_ENDPOINTS,default=false"`
	DebugInspectorPort int           `env:"DEBUG_INSPECTOR_PORT,default=8081"`

	StoreDriver    string `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
	MongoURI       string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGO_DATABASE,default=chatchat"`

	JWTHMACSecret    string `env:"JWT_HMAC_SECRET"`
	JWTPublicKeyFile string `env:"JWT_PUBLIC_KEY_FILE"`
	JWTIssuer        string `env:"JWT_ISSUER"`
	JWTAudience      string `env:"JWT_AUDIENCE"`

	// AllowedOrigins is a comma separated list, "*" allows every origin.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	MaxImageBytes     int64 `env:"MAX_IMAGE_BYTES,default=5242880"`
	ImageSniffContent bool  `env:"IMAGE_SNIFF_CONTENT,default=false"`

	MaxFrameBytes           int64         `env:"MAX_FRAME_BYTES,default=8388608"`
	SendBufferSize          int           `env:"SEND_BUFFER_SIZE,default=256"`
	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=20"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`

	HistoryLimit     int `env:"HISTORY_LIMIT,default=200"`
	RoomHistoryLimit int `env:"ROOM_HISTORY_LIMIT,default=100"`
	JoinHistoryLimit int `env:"JOIN_HISTORY_LIMIT,default=50"`

	ModerationEnabled bool   `env:"MODERATION_ENABLED,default=false"`
	CensorCharacter   string `env:"CENSOR_CHARACTER,default=*"`
}

// Load reads an optional .env file then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	switch {
	case c.StoreDriver != repositories.DriverBadger && c.StoreDriver != repositories.DriverMongo:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", repositories.DriverBadger, repositories.DriverMongo, c.StoreDriver)
	case c.MaxImageBytes <= 0 || c.MaxImageBytes > chat.MaxImageBytes:
		return fmt.Errorf("MAX_IMAGE_BYTES must be within 1 and %d, got %d", chat.MaxImageBytes, c.MaxImageBytes)
	case c.MaxFrameBytes < MinFrameBytes(c.MaxImageBytes):
		return fmt.Errorf("MAX_FRAME_BYTES (%d) must hold a base64 image of MAX_IMAGE_BYTES (%d), at least %d", c.MaxFrameBytes, c.MaxImageBytes, MinFrameBytes(c.MaxImageBytes))
	case c.HistoryLimit <= 0 || c.RoomHistoryLimit <= 0 || c.JoinHistoryLimit <= 0:
		return fmt.Errorf("history limits must be positive")
	}
	if _, err := CharacterRune(c.CensorCharacter); err != nil {
		return err
	}
	return nil
}

// frameHeadroom covers the data URL prefix, the envelope and the other message fields.
const frameHeadroom = 64 * 1024

// MinFrameBytes is the smallest frame able to carry an image of imageBytes once base64 encoded.
func MinFrameBytes(imageBytes int64) int64 {
	return (imageBytes+2)/3*4 + frameHeadroom
}

// Origins splits AllowedOrigins.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func (c Config) StoreConfig() repositories.StoreConfig {
	return repositories.StoreConfig{
		Driver:        c.StoreDriver,
		BadgerPath:    c.BadgerFilepath,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
