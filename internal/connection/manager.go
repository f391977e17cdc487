package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lexiqai/live-transcriber/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	closeWait      = 1 * time.Second
	maxMessageSize = 64 * 1024
)

var (
	// ErrAlreadyConnected is returned by a second Connect on the same Manager
	ErrAlreadyConnected = errors.New("connection: already connected")

	// ErrClosed is returned when Connect races with Close
	ErrClosed = errors.New("connection: manager closed")
)

// ConnectionError is a handshake or transport failure
type ConnectionError struct {
	Op       string // "dial", "read" or "write"
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// MessageHandler receives one inbound text message
type MessageHandler func(text string)

// StateHandler observes state transitions
type StateHandler func(state State)

// Manager owns a single streaming connection to the transcription endpoint.
// Inbound messages are delivered in arrival order from one reader goroutine;
// outbound writes are serialized and only happen while the state is Open.
// There is no reconnection: once Closed, the Manager stays Closed.
type Manager struct {
	dialer  *websocket.Dialer
	logger  zerolog.Logger
	metrics *observability.Metrics
	onError func(error)

	mu            sync.RWMutex
	state         State
	endpoint      string
	conn          *websocket.Conn
	started       bool
	closed        bool
	readDone      chan struct{}
	handlers      []MessageHandler
	stateHandlers []StateHandler

	writeMu sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithDialer replaces the websocket dialer
func WithDialer(dialer *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = dialer }
}

// WithMetrics attaches session metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithErrorHandler sets the callback that surfaces transport errors to the user
func WithErrorHandler(fn func(error)) Option {
	return func(m *Manager) { m.onError = fn }
}

// NewManager creates a Manager in the Connecting state. Nothing is dialed until Connect.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		// HandshakeTimeout 0: a handshake that never completes leaves the manager Connecting
		dialer: &websocket.Dialer{
			Proxy:           websocket.DefaultDialer.Proxy,
			ReadBufferSize:  4096,
			WriteBufferSize: 8192,
		},
		logger: zerolog.Nop(),
		state:  StateConnecting,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials the endpoint and starts delivering inbound messages.
// On failure the manager passes through Errored to Closed and the error is returned.
func (m *Manager) Connect(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.started = true
	m.endpoint = endpoint
	m.mu.Unlock()

	m.logger.Info().Str("endpoint", endpoint).Msg("Connecting to transcription endpoint")

	conn, resp, err := m.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		cerr := &ConnectionError{Op: "dial", Endpoint: endpoint, Err: err}
		m.fail(cerr)
		return cerr
	}
	conn.SetReadLimit(maxMessageSize)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	m.conn = conn
	m.readDone = make(chan struct{})
	readDone := m.readDone
	m.mu.Unlock()

	m.setState(StateOpen)
	m.logger.Info().Str("endpoint", endpoint).Msg("Connected to transcription endpoint")

	go m.readLoop(conn, readDone)
	return nil
}

// OnMessage registers a handler for inbound text messages
func (m *Manager) OnMessage(handler MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// OnStateChange registers a handler for state transitions
func (m *Manager) OnStateChange(handler StateHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateHandlers = append(m.stateHandlers, handler)
}

// State returns the current connection state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Connected reports whether the connection is Open
func (m *Manager) Connected() bool {
	return m.State() == StateOpen
}

// Send writes data as one binary frame. It is a silent no-op (false) unless the connection is Open.
func (m *Manager) Send(data []byte) bool {
	m.writeMu.Lock()

	m.mu.RLock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.RUnlock()

	if !open || conn == nil {
		m.writeMu.Unlock()
		return false
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err := conn.WriteMessage(websocket.BinaryMessage, data)
	m.writeMu.Unlock()

	if err != nil {
		m.fail(&ConnectionError{Op: "write", Endpoint: m.endpoint, Err: err})
		return false
	}
	return true
}

// Close sends a normal closure frame and releases the socket. It is idempotent.
// It does not wait for an in-flight Send; closing the socket fails that write.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conn := m.conn
	readDone := m.readDone
	m.mu.Unlock()

	m.setState(StateClosed)

	if conn == nil {
		return nil
	}

	// WriteControl and Close are safe alongside a concurrent WriteMessage
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait),
	)
	err := conn.Close()

	<-readDone
	m.logger.Info().Msg("Connection closed")

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (m *Manager) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if m.isClosed() {
				return
			}

			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				m.logger.Info().
					Int("code", closeErr.Code).
					Str("reason", closeErr.Text).
					Msg("Transcription endpoint closed the connection")
				m.setState(StateClosed)
			} else {
				m.fail(&ConnectionError{Op: "read", Endpoint: m.endpoint, Err: err})
			}
			conn.Close()
			return
		}

		if m.metrics != nil {
			m.metrics.RecordMessage()
		}

		m.mu.RLock()
		handlers := append([]MessageHandler(nil), m.handlers...)
		m.mu.RUnlock()

		text := string(message)
		for _, h := range handlers {
			h(text)
		}
	}
}

// fail moves a live manager through Errored to Closed and surfaces err
func (m *Manager) fail(err error) {
	if !m.setState(StateErrored) {
		return
	}

	m.logger.Error().Err(err).Msg("Connection error")
	if m.metrics != nil {
		m.metrics.RecordError("connection", "connection")
	}
	if m.onError != nil {
		m.onError(err)
	}

	m.setState(StateClosed)
}

// setState applies a transition unless the manager is already Closed.
// Errored is not reachable once Close has been called.
// It reports whether the transition happened.
func (m *Manager) setState(next State) bool {
	m.mu.Lock()
	if m.state == next || m.state == StateClosed || (next == StateErrored && m.closed) {
		m.mu.Unlock()
		return false
	}
	m.state = next
	handlers := append([]StateHandler(nil), m.stateHandlers...)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetConnectionState(int(next))
	}
	m.logger.Debug().Str("state", next.String()).Msg("Connection state changed")

	for _, h := range handlers {
		h(next)
	}
	return true
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
