package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexiqai/live-transcriber/internal/audio"
	"github.com/lexiqai/live-transcriber/internal/capture"
	"github.com/lexiqai/live-transcriber/internal/config"
	"github.com/lexiqai/live-transcriber/internal/observability"
	"github.com/lexiqai/live-transcriber/internal/session"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("audio_source", cfg.Source).
		Int("sample_rate", cfg.SampleRate).
		Int("chunk_size", cfg.ChunkSize).
		Dur("chunk_cadence", audio.Cadence(cfg.SampleRate, cfg.ChunkSize)).
		Msg("Live transcriber starting")

	console := session.NewConsoleNotifier(os.Stdout, os.Stderr)
	mic := capture.NewPortAudioMicrophone(cfg.SampleRate, cfg.ChunkSize)

	sess, err := session.New(cfg, mic,
		session.WithLogger(logger),
		session.WithNotifier(console),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session")
	}
	sess.OnTranscript(console.Transcript)
	logger.Info().Str("session_id", sess.ID()).Msg("Session created")

	var server *http.Server
	if cfg.MetricsEnabled {
		server = startObservabilityServer(cfg, sess)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed connection is reported and leaves recording disabled; the client keeps running
	if err := sess.Mount(ctx); err == nil {
		console.Status("Connected to %s", cfg.Endpoint)
	}
	console.Transcript(sess.Display())
	console.Status("Press Enter to start/stop recording, q to quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok || line == "q" {
				break loop
			}
			if line == "s" {
				console.Status("connection: %s, capture: %s", sess.ConnectionState(), sess.CaptureState())
				console.Transcript(sess.Display())
				continue
			}
			if err := sess.Toggle(ctx); err == nil {
				if sess.CaptureState() == capture.StateRecording {
					console.Status("Recording... press Enter to stop")
				} else {
					console.Status("Recording stopped")
				}
			}
		}
	}

	// Release the stdin reader if it is waiting to hand over a line
	stop()

	logger.Info().Msg("Shutting down...")

	if err := sess.Teardown(); err != nil {
		logger.Error().Err(err).Msg("Session teardown failed")
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Observability server forced to shutdown")
		}
	}

	logger.Info().Msg("Live transcriber exited")
}

// startObservabilityServer serves /health, /ready and /metrics
func startObservabilityServer(cfg *config.Config, sess *session.Session) *http.Server {
	logger := observability.GetLogger()

	connectionCheck := func(ctx context.Context) (bool, error) {
		if !sess.Connected() {
			return false, fmt.Errorf("connection is %s", sess.ConnectionState())
		}
		return true, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler(version))
	mux.HandleFunc("/ready", observability.ReadinessHandler(version, map[string]observability.HealthCheckFunc{
		"connection": connectionCheck,
	}))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Observability server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Observability server failed")
		}
	}()

	return server
}
