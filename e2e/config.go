package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR is the base url of a running server, e.g. http://localhost:3000
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	// JWT_HMAC_SECRET must be the secret the server verifies tokens with
	Secret string `envconfig:"JWT_HMAC_SECRET"`
	// E2E_DEBUG_JSON dumps every received frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
