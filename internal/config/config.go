// Package config loads service configuration from an optional yaml file with
// environment overrides. A .env file in the working directory is honored.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultPath is the config file location checked when none is given.
const DefaultPath = "./config/config.yaml"

type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http-server"`
	Downloads  Downloads  `yaml:"downloads"`
	Sessions   Sessions   `yaml:"sessions"`
	Sweep      Sweep      `yaml:"sweep"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8000"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-default:"*"`
}

type Downloads struct {
	OutputDir string        `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"outputs"`
	Workers   int           `yaml:"workers" env:"DOWNLOAD_WORKERS" env-default:"10"`
	Timeout   time.Duration `yaml:"timeout" env:"DOWNLOAD_TIMEOUT" env-default:"30m"`
	Binary    string        `yaml:"ytdlp_binary" env:"YTDLP_BINARY" env-default:"yt-dlp"`
}

type Sessions struct {
	MaxEntries int           `yaml:"max_entries" env:"SESSION_MAX_ENTRIES" env-default:"1000"`
	TTL        time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"1h"`
}

// Sweep controls the background removal of stale artifacts whose jobs were
// never fetched or cleaned up.
type Sweep struct {
	MaxAge   time.Duration `yaml:"max_age" env:"SWEEP_MAX_AGE" env-default:"1h"`
	Interval time.Duration `yaml:"interval" env:"SWEEP_INTERVAL" env-default:"15m"`
}

// Load reads configuration from path (falling back to environment-only when
// the file does not exist). Values from a .env file are loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}
