package api_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/apiclient"
	"github.com/Alia5/blemouse/internal/server/api"
	th "github.com/Alia5/blemouse/internal/testing"
)

func echo(req *api.Request, res *api.Response, _ *slog.Logger) error {
	res.JSON = fmt.Sprintf(`{"payload":%q,"name":%q}`, req.Payload, req.Params["name"])
	return nil
}

func TestAPIServer_Requests(t *testing.T) {
	addr, done := th.StartAPIServer(t, api.ServerConfig{}, func(r *api.Router, _ *api.Server) {
		r.Register("echo/{name}", echo)
		r.Register("fail", func(*api.Request, *api.Response, *slog.Logger) error {
			return errors.New("boom")
		})
		r.Register("conflict", func(*api.Request, *api.Response, *slog.Logger) error {
			return api.ErrConflict("taken")
		})
		r.Register("empty", func(*api.Request, *api.Response, *slog.Logger) error { return nil })
	})
	defer done()

	tests := []struct {
		name string
		cmd  string
		want string
	}{
		{name: "params and payload", cmd: "echo/Bob hello world", want: `{"payload":"hello world","name":"bob"}`},
		{name: "path is case insensitive", cmd: "ECHO/x", want: `{"payload":"","name":"x"}`},
		{name: "multi line payload", cmd: "echo/x {\n\"a\":1\n}", want: `{"payload":"{\n\"a\":1\n}","name":"x"}`},
		{name: "plain error", cmd: "fail", want: `{"status":500,"title":"Internal Server Error","detail":"boom"}`},
		{name: "api error", cmd: "conflict", want: `{"status":409,"title":"Conflict","detail":"taken"}`},
		{name: "unknown path", cmd: "nope", want: `{"status":404,"title":"Not Found","detail":"unknown path: nope"}`},
		{name: "empty request", cmd: "", want: `{"status":400,"title":"Bad Request","detail":"empty request"}`},
		{name: "empty success", cmd: "empty", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, th.ExecCmd(t, addr, tt.cmd))
		})
	}
}

func TestAPIServer_StreamGetsBufferedBytes(t *testing.T) {
	got := make(chan []byte, 1)
	addr, done := th.StartAPIServer(t, api.ServerConfig{}, func(r *api.Router, _ *api.Server) {
		r.RegisterStream("stream", func(req *api.Request, conn net.Conn, _ *slog.Logger) error {
			defer conn.Close()
			b, err := io.ReadAll(conn)
			got <- b
			return err
		})
	})
	defer done()

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	// request line and the first stream bytes in one write
	_, err = c.Write([]byte("stream\x00\x01\x02\x03"))
	require.NoError(t, err)
	_, err = c.Write([]byte{0x04})
	require.NoError(t, err)
	require.NoError(t, c.(*net.TCPConn).CloseWrite())

	select {
	case b := <-got:
		assert.Equal(t, []byte{1, 2, 3, 4}, b)
	case <-time.After(2 * time.Second):
		t.Fatal("stream handler did not finish")
	}
	_ = c.Close()
}

func TestAPIServer_StreamHandlerError_ClosesConn(t *testing.T) {
	addr, done := th.StartAPIServer(t, api.ServerConfig{}, func(r *api.Router, _ *api.Server) {
		r.RegisterStream("stream", func(*api.Request, net.Conn, *slog.Logger) error {
			return errors.New("boom")
		})
	})
	defer done()

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = fmt.Fprint(c, "stream\x00")
	require.NoError(t, err)

	buf := make([]byte, 1)
	_ = c.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, readErr := c.Read(buf)
	require.ErrorIs(t, readErr, io.EOF)
	_ = c.Close()
}

func TestAPIServer_CloseEndsStreams(t *testing.T) {
	ended := make(chan struct{})
	addr, done := th.StartAPIServer(t, api.ServerConfig{}, func(r *api.Router, _ *api.Server) {
		r.RegisterStream("stream", func(req *api.Request, conn net.Conn, _ *slog.Logger) error {
			defer close(ended)
			<-req.Ctx.Done()
			return conn.Close()
		})
	})

	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	_, err = fmt.Fprint(c, "stream\x00")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	done()
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not cancelled on Close")
	}
}

func TestAPIServer_Auth(t *testing.T) {
	cfg := api.ServerConfig{RequireAuth: true, Password: "s3cret", ConnectionTimeout: time.Second}
	addr, done := th.StartAPIServer(t, cfg, func(r *api.Router, _ *api.Server) {
		r.Register("echo/{name}", echo)
	})
	defer done()

	t.Run("plain client rejected", func(t *testing.T) {
		assert.Equal(t,
			`{"status":401,"title":"Unauthorized","detail":"authentication required"}`,
			th.ExecCmd(t, addr, "echo/x hi"))
	})

	t.Run("correct password", func(t *testing.T) {
		out, err := apiclient.NewTransportWithPassword(addr, "s3cret").Do("echo/{name}", "hi", map[string]string{"name": "x"})
		require.NoError(t, err)
		assert.Equal(t, `{"payload":"hi","name":"x"}`, out)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := apiclient.NewTransportWithPassword(addr, "nope").Do("echo/{name}", "hi", map[string]string{"name": "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401 Unauthorized: invalid password")
	})
}

func TestAPIServer_AuthWithoutPassword(t *testing.T) {
	srv := api.New("127.0.0.1:0", api.ServerConfig{RequireAuth: true}, slog.New(slog.DiscardHandler))
	require.Error(t, srv.Start())
}
