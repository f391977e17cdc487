package config

import (
	"testing"
)

func TestLoad(t *testing.T) {
	t.Setenv("TRANSCRIBER_ENDPOINT", "ws://localhost:8000/listen")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Endpoint != "ws://localhost:8000/listen" {
		t.Errorf("Expected Endpoint 'ws://localhost:8000/listen', got '%s'", cfg.Endpoint)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TRANSCRIBER_ENDPOINT", "")

	_, err := LoadFromEnv()
	if err == nil {
		t.Error("Expected error when TRANSCRIBER_ENDPOINT is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRANSCRIBER_ENDPOINT", "wss://stt.example.com/stream")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Source != SourceSamples {
		t.Errorf("Expected default Source '%s', got '%s'", SourceSamples, cfg.Source)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("Expected default SampleRate 16000, got %d", cfg.SampleRate)
	}
	if cfg.ChunkSize != 1024 {
		t.Errorf("Expected default ChunkSize 1024, got %d", cfg.ChunkSize)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected default Port '9090', got '%s'", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogPretty {
		t.Error("Expected default LogPretty false")
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("TRANSCRIBER_ENDPOINT", "ws://10.0.0.5:9000")
	t.Setenv("AUDIO_SOURCE", "Recorder")
	t.Setenv("SAMPLE_RATE", "48000")
	t.Setenv("CHUNK_SIZE", "2048")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Source != SourceRecorder {
		t.Errorf("Expected Source '%s', got '%s'", SourceRecorder, cfg.Source)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("Expected SampleRate 48000, got %d", cfg.SampleRate)
	}
	if cfg.ChunkSize != 2048 {
		t.Errorf("Expected ChunkSize 2048, got %d", cfg.ChunkSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel 'debug', got '%s'", cfg.LogLevel)
	}
	if cfg.MetricsEnabled {
		t.Error("Expected MetricsEnabled false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Endpoint:   "ws://localhost:8000",
			Source:     SourceSamples,
			SampleRate: 16000,
			ChunkSize:  1024,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"http scheme", func(c *Config) { c.Endpoint = "http://localhost:8000" }, false},
		{"unknown source", func(c *Config) { c.Source = "mp3" }, false},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, false},
		{"negative chunk size", func(c *Config) { c.ChunkSize = -1 }, false},
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Expected valid config, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
