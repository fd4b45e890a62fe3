package auth_test

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/apitypes"
	"github.com/Alia5/blemouse/internal/server/api/auth"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

const helloLen = len(auth.HandshakeMagic) + 2*auth.NonceSize

func mustKey(t *testing.T, password string) []byte {
	t.Helper()
	key, err := auth.DeriveKey(password)
	require.NoError(t, err)
	return key
}

// serve answers one handshake the way the API server does: a rejection is
// written back as an ApiError line.
func serve(conn net.Conn, key []byte) (net.Conn, error) {
	secure, err := auth.Server(conn, bufio.NewReader(conn), key)
	if err != nil {
		var apiErr apitypes.ApiError
		if errors.As(err, &apiErr) {
			b, _ := json.Marshal(apiErr)
			_, _ = conn.Write(append(b, '\n'))
		}
		_ = conn.Close()
	}
	return secure, err
}

func TestHandshake(t *testing.T) {
	tests := []struct {
		name          string
		clientPass    string
		serverPass    string
		wantServerErr error
		wantStatus    int
	}{
		{name: "same password", clientPass: "test123", serverPass: "test123"},
		{
			name:          "wrong password",
			clientPass:    "nope",
			serverPass:    "test123",
			wantServerErr: apierror.ErrUnauthorized("invalid password"),
			wantStatus:    401,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := net.Pipe()
			defer c.Close()
			defer s.Close()

			type result struct {
				conn net.Conn
				err  error
			}
			serverKey := mustKey(t, tt.serverPass)
			srv := make(chan result, 1)
			go func() {
				conn, err := serve(s, serverKey)
				srv <- result{conn, err}
			}()

			client, err := auth.Client(c, mustKey(t, tt.clientPass))
			server := <-srv
			if tt.wantServerErr != nil {
				assert.Equal(t, tt.wantServerErr, server.err)
				var apiErr *apitypes.ApiError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				return
			}
			require.NoError(t, err)
			require.NoError(t, server.err)

			go func() { _, _ = client.Write([]byte("status\x00")) }()
			line, err := bufio.NewReader(server.conn).ReadString('\x00')
			require.NoError(t, err)
			assert.Equal(t, "status\x00", line)

			go func() { _, _ = server.conn.Write([]byte("{}\n")) }()
			reply, err := bufio.NewReader(client).ReadString('\n')
			require.NoError(t, err)
			assert.Equal(t, "{}\n", reply)
		})
	}
}

// fakeServer reads a client hello and answers with reply(hello).
func fakeServer(t *testing.T, reply func(hello []byte) []byte) net.Conn {
	c, s := net.Pipe()
	t.Cleanup(func() { _ = c.Close(); _ = s.Close() })
	go func() {
		defer s.Close()
		hello := make([]byte, helloLen)
		if _, err := io.ReadFull(s, hello); err != nil {
			return
		}
		if out := reply(hello); len(out) > 0 {
			_, _ = s.Write(out)
		}
	}()
	return c
}

func TestClientHandshakeFailures(t *testing.T) {
	nonce := func(hello []byte) []byte {
		return hello[len(auth.HandshakeMagic) : len(auth.HandshakeMagic)+auth.NonceSize]
	}
	tests := []struct {
		name    string
		reply   func(hello []byte) []byte
		wantErr error
		wantMsg string
	}{
		{
			name: "server without the password",
			reply: func(hello []byte) []byte {
				return append([]byte("OK\x00"), make([]byte, 2*auth.NonceSize)...)
			},
			wantErr: auth.ErrServerProof,
		},
		{
			name: "client proof reflected",
			reply: func(hello []byte) []byte {
				out := append([]byte("OK\x00"), nonce(hello)...)
				return append(out, hello[len(auth.HandshakeMagic)+auth.NonceSize:]...)
			},
			wantErr: auth.ErrServerProof,
		},
		{
			name:    "garbage reply",
			reply:   func([]byte) []byte { return []byte("NO\x00" + strings.Repeat("x", 8)) },
			wantMsg: "invalid handshake reply",
		},
		{
			name:    "short reply",
			reply:   func([]byte) []byte { return []byte("OK\x00abc") },
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "closed before reply",
			reply:   func([]byte) []byte { return nil },
			wantErr: io.EOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := fakeServer(t, tt.reply)
			_, err := auth.Client(conn, mustKey(t, "test123"))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestServerHandshakeFailures(t *testing.T) {
	key := mustKey(t, "test123")
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{
			name:    "not a handshake",
			input:   strings.Repeat("p", helloLen),
			wantErr: apierror.ErrUnauthorized("authentication required"),
		},
		{
			name:    "truncated hello",
			input:   auth.HandshakeMagic + "short",
			wantMsg: "read handshake",
		},
		{
			name:    "zero proof",
			input:   auth.HandshakeMagic + strings.Repeat("\x00", 2*auth.NonceSize),
			wantErr: apierror.ErrUnauthorized("invalid password"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := net.Pipe()
			defer c.Close()
			go func() {
				_, _ = c.Write([]byte(tt.input))
				_ = c.Close()
			}()
			_, err := auth.Server(s, bufio.NewReader(s), key)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			}
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
		})
	}
}

func TestIsHandshake(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		err   bool
	}{
		{input: auth.HandshakeMagic + "rest", want: true},
		{input: "ping\x00", want: false},
		{input: "eB", err: true},
	}
	for _, tt := range tests {
		got, err := auth.IsHandshake(bufio.NewReader(strings.NewReader(tt.input)))
		if tt.err {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}
