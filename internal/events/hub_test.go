package events_test

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/events"
	"github.com/Alia5/blemouse/internal/peripheral"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := events.NewHub(events.Config{WriteTimeout: time.Second}, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	passkey := uint32(123456)
	hub.Notify(peripheral.Event{
		Type:    peripheral.EventPasskeyConfirm,
		Time:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Addr:    "AA:BB:CC:DD:EE:FF",
		Link:    3,
		Passkey: &passkey,
	})

	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(time.Second))
		var got map[string]any
		require.NoError(t, c.ReadJSON(&got))
		assert.Equal(t, "passkey_confirm", got["type"])
		assert.Equal(t, "AA:BB:CC:DD:EE:FF", got["addr"])
		assert.Equal(t, float64(123456), got["passkey"])
		assert.Equal(t, float64(3), got["link"])
		assert.NotContains(t, got, "bonded")
	}
}

func TestHub_RemovesClosedClients(t *testing.T) {
	hub := events.NewHub(events.Config{}, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	c := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = c.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_NotifyWithoutClients(t *testing.T) {
	hub := events.NewHub(events.Config{}, slog.New(slog.DiscardHandler))
	assert.NotPanics(t, func() {
		hub.Notify(peripheral.Event{Type: peripheral.EventConnected})
	})
}
