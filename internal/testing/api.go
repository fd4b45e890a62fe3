package testing

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/peripheral"
	"github.com/Alia5/blemouse/internal/server/api"
)

// StartAPIServer starts an API server on a free port and calls register to allow
// the caller to register the handlers needed for the test. Returns the address
// and a function to call when done.
func StartAPIServer(t *testing.T, cfg api.ServerConfig, register func(r *api.Router, apiSrv *api.Server)) (addr string, done func()) {
	t.Helper()
	apiSrv := api.New("127.0.0.1:0", cfg, DiscardLogger())
	if register != nil {
		register(apiSrv.Router(), apiSrv)
	}
	require.NoError(t, apiSrv.Start(), "api start failed")
	return apiSrv.Addr(), apiSrv.Close
}

// StartPeripheral runs a peripheral on tr until the test ends.
func StartPeripheral(t *testing.T, cfg peripheral.Config, tr *Transport) (*peripheral.Peripheral, *Notifier) {
	t.Helper()
	n := &Notifier{}
	p := peripheral.New(cfg, tr, DiscardLogger(), nil, n)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})
	return p, n
}

// ExecCmd dials the API server, sends cmd and reads the full response.
// The command should not include a trailing newline. Returns the response
// without the trailing newline.
func ExecCmd(t *testing.T, addr string, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err, "dial failed")
	defer c.Close()

	// Send command with null terminator (\x00), matching the API server framing
	_, _ = fmt.Fprintf(c, "%s\x00", cmd)

	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		t.Fatalf("read failed: %v", err)
	}

	result := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(result, "\r")
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }
