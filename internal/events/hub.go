// Package events publishes peripheral events to WebSocket clients as JSON.
package events

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// Config configures the event feed.
type Config struct {
	Addr         string        `help:"WebSocket event feed listen address, empty disables the feed" default:"" env:"BLEMOUSE_EVENTS_ADDR"`
	WriteTimeout time.Duration `help:"Per message write deadline for event clients" default:"100ms" env:"BLEMOUSE_EVENTS_WRITE_TIMEOUT"`
}

const clientBuffer = 32

// Hub fans peripheral events out to connected WebSocket clients. Notify never
// blocks: a client that falls behind loses events and is dropped once a
// write fails.
type Hub struct {
	logger       *slog.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan peripheral.Event
}

var _ peripheral.Notifier = (*Hub)(nil)

func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 100 * time.Millisecond
	}
	return &Hub{
		logger:       logger,
		writeTimeout: cfg.WriteTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan peripheral.Event),
	}
}

// Notify queues ev for every client.
func (h *Hub) Notify(ev peripheral.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			h.logger.Debug("event client too slow, dropping event", "remote", conn.RemoteAddr(), "type", ev.Type)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	ch := make(chan peripheral.Event, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	h.logger.Info("Event client connected", "remote", conn.RemoteAddr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Clients only listen; reading detects the close frame.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	defer h.remove(conn)
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Debug("event write failed", "remote", conn.RemoteAddr(), "error", err)
				return
			}
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
		h.logger.Info("Event client disconnected", "remote", conn.RemoteAddr())
	}
}

// ListenAndServe serves the feed on addr at /events until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	h.logger.Info("Event feed listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		h.closeAll()
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.remove(c)
	}
}
