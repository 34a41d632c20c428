package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`
	StoragePath  string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	// IdleTimeoutSec is how long an idle voice session stays connected
	// before the bot disconnects, in seconds.
	IdleTimeoutSec int `env:"IDLE_TIMEOUT_SEC" envDefault:"300"`

	YTDLPPath string `env:"YTDLP_PATH"`
	ProxyURL  string `env:"PROXY_URL"`

	// Soundboard HTTP server. Signed sound URLs are minted against
	// SoundPublicURL and expire after SoundURLTTLSec seconds.
	SoundDir       string `env:"SOUND_DIR" envDefault:"sounds"`
	SoundBindAddr  string `env:"SOUND_BIND_ADDR" envDefault:":8099"`
	SoundPublicURL string `env:"SOUND_PUBLIC_URL" envDefault:"http://localhost:8099"`
	SoundSecret    string `env:"SOUND_SECRET"`
	SoundURLTTLSec int    `env:"SOUND_URL_TTL_SEC" envDefault:"60"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSec) * time.Second
}

func (c *Config) SoundURLTTL() time.Duration {
	return time.Duration(c.SoundURLTTLSec) * time.Second
}
