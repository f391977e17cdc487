// Package connectiontest provides an in-process transcription endpoint for tests.
package connectiontest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Frame is one message received from the client
type Frame struct {
	Type int
	Data []byte
}

// Endpoint accepts a single client and records every frame it sends
type Endpoint struct {
	URL      string
	Received chan Frame

	server *httptest.Server
	conns  chan *websocket.Conn
}

// NewEndpoint starts an endpoint that is shut down when the test ends
func NewEndpoint(t *testing.T) *Endpoint {
	t.Helper()

	e := &Endpoint{
		Received: make(chan Frame, 256),
		conns:    make(chan *websocket.Conn, 1),
	}
	e.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		e.conns <- conn
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			e.Received <- Frame{Type: mt, Data: data}
		}
	}))
	t.Cleanup(e.server.Close)

	e.URL = "ws" + strings.TrimPrefix(e.server.URL, "http")
	return e
}

// NewRejectingEndpoint returns the URL of a server that refuses the websocket handshake
func NewRejectingEndpoint(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// NewStalledEndpoint returns the URL of a server that accepts the websocket
// handshake and then never reads, so client writes eventually block.
func NewStalledEndpoint(t *testing.T) string {
	t.Helper()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// Conn waits for the client to connect and returns the server side of the socket
func (e *Endpoint) Conn(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case c := <-e.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for client connection")
		return nil
	}
}

// Next waits for the next frame from the client
func (e *Endpoint) Next(t *testing.T) Frame {
	t.Helper()

	select {
	case f := <-e.Received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for frame")
		return Frame{}
	}
}
