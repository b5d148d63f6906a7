package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WebSocket timing parameters shared by the stream handler and the client.
const (
	// WriteWait is the time allowed to write a frame to the peer.
	WriteWait = 10 * time.Second

	// PongWait is the time allowed to read the next pong from the peer.
	PongWait = 60 * time.Second

	// PingPeriod is the interval between pings. Must be less than PongWait.
	PingPeriod = (PongWait * 9) / 10

	// MaxMessageSize is the maximum frame size accepted from the peer.
	MaxMessageSize = 4096
)

// NATS subjects used by the change notifier bridge.
const (
	StreamName  = "CHAT_EVENTS"
	SubjectName = "chats.events"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Addr      string `envconfig:"ADDR" default:":3000"`
	DBPath    string `envconfig:"DB_PATH" default:"chat.db"`
	NatsURL   string `envconfig:"NATS_URL"` // empty = in-process notifier only
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	LogFile   string `envconfig:"LOG_FILE" default:"chat.log"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
