package longchat

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultURL is the production chat endpoint.
const DefaultURL = "wss://chat.longapp.site/chat/chat"

// Config controls how the SDK connects.
type Config struct {
	URL              string        `envconfig:"URL" default:"wss://chat.longapp.site/chat/chat"`
	HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"10s"`
	// ReadTimeout defaults to 0: the chat connection idles between frames
	// and must not time out waiting for the next one.
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"0"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`

	// ReconnectDelay is the fixed pause before each reconnect attempt; there
	// is no backoff and no jitter.
	ReconnectDelay       time.Duration `envconfig:"RECONNECT_DELAY" default:"3s"`
	MaxReconnectAttempts int           `envconfig:"MAX_RECONNECT_ATTEMPTS" default:"5"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  DefaultURL,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
		ReconnectDelay:       3 * time.Second,
		MaxReconnectAttempts: 5,
	}
}

// LoadConfig reads configuration from LONGCHAT_-prefixed environment
// variables, falling back to the defaults above.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("longchat", &cfg); err != nil {
		return Config{}, WrapError(ErrorInvalidConfig, "load config", err)
	}
	return cfg, nil
}
