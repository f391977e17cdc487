package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Audio source variants
const (
	SourceSamples  = "samples"  // raw float32 blocks
	SourceRecorder = "recorder" // WAV blobs at a fixed timeslice
)

// Config holds all configuration for the transcriber client
type Config struct {
	// Transcription endpoint, e.g. ws://localhost:8000/listen
	Endpoint string `envconfig:"TRANSCRIBER_ENDPOINT" required:"true"`

	// Audio capture configuration
	Source     string `envconfig:"AUDIO_SOURCE" default:"samples"` // samples or recorder
	SampleRate int    `envconfig:"SAMPLE_RATE" default:"16000"`    // Hz
	ChunkSize  int    `envconfig:"CHUNK_SIZE" default:"1024"`      // Samples per block

	// Health/metrics listener
	Port string `envconfig:"PORT" default:"9090"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Serve /metrics, /health and /ready
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field ranges and the endpoint scheme
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("TRANSCRIBER_ENDPOINT is required")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid TRANSCRIBER_ENDPOINT: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("TRANSCRIBER_ENDPOINT must use ws or wss scheme, got %q", u.Scheme)
	}

	c.Source = strings.ToLower(c.Source)
	if c.Source != SourceSamples && c.Source != SourceRecorder {
		return fmt.Errorf("AUDIO_SOURCE must be %q or %q, got %q", SourceSamples, SourceRecorder, c.Source)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("SAMPLE_RATE must be positive, got %d", c.SampleRate)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}

	return nil
}
