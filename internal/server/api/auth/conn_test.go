package auth_test

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/server/api/auth"
)

func TestConn(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	other, err := auth.DeriveKey("123test")
	require.NoError(t, err)

	tests := []struct {
		name       string
		clientKey  []byte
		serverKey  []byte
		closeFirst bool
		wantWrap   string
		wantRead   string
	}{
		{name: "same key", clientKey: key, serverKey: key},
		{name: "different keys", clientKey: key, serverKey: other, wantRead: "message authentication failed"},
		{name: "short client key", clientKey: []byte{1, 2, 3}, serverKey: key, wantWrap: "bad key length"},
		{name: "short server key", clientKey: key, serverKey: []byte{1, 2, 3}, wantWrap: "bad key length"},
		{name: "peer closed", clientKey: key, serverKey: key, closeFirst: true, wantRead: "EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := net.Pipe()
			defer c.Close()
			defer s.Close()

			server, serr := auth.WrapConn(s, tt.serverKey, auth.RoleServer)
			client, cerr := auth.WrapConn(c, tt.clientKey, auth.RoleClient)
			if tt.wantWrap != "" {
				assert.ErrorContains(t, errors.Join(serr, cerr), tt.wantWrap)
				return
			}
			require.NoError(t, serr)
			require.NoError(t, cerr)

			msg := []byte("mouse/move {\"dx\":1}\x00")
			if tt.closeFirst {
				_ = c.Close()
			} else {
				go func() { _, _ = client.Write(msg) }()
			}

			buf := make([]byte, 64)
			n, err := server.Read(buf)
			if tt.wantRead != "" {
				assert.ErrorContains(t, err, tt.wantRead)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, msg, buf[:n])
		})
	}
}

func TestConnBothDirections(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	require.NoError(t, err)
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()
	client, err := auth.WrapConn(c, key, auth.RoleClient)
	require.NoError(t, err)
	server, err := auth.WrapConn(s, key, auth.RoleServer)
	require.NoError(t, err)

	// both ends start at counter zero under the same key
	for i := range 3 {
		go func() { _, _ = client.Write([]byte{byte(i)}) }()
		got := make([]byte, 1)
		_, err := io.ReadFull(server, got)
		require.NoError(t, err)
		assert.Equal(t, byte(i), got[0])

		go func() { _, _ = server.Write([]byte{byte(i + 10)}) }()
		_, err = io.ReadFull(client, got)
		require.NoError(t, err)
		assert.Equal(t, byte(i+10), got[0])
	}
}

// recordingConn keeps a copy of everything written to it.
type recordingConn struct {
	net.Conn
	buf bytes.Buffer
}

func (r *recordingConn) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.Conn.Write(p)
}

func TestConnNonces(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	assert.NoError(t, err)

	tests := []struct {
		name string
		// run writes through the client side and returns the raw bytes the
		// server side gets to read.
		run     func(t *testing.T, w net.Conn, rec *recordingConn) []byte
		wantErr error
		want    []byte
	}{
		{
			name: "in order",
			run: func(t *testing.T, w net.Conn, rec *recordingConn) []byte {
				_, _ = w.Write([]byte("a"))
				_, _ = w.Write([]byte("b"))
				return rec.buf.Bytes()
			},
			want: []byte("ab"),
		},
		{
			name: "replayed packet",
			run: func(t *testing.T, w net.Conn, rec *recordingConn) []byte {
				_, _ = w.Write([]byte("a"))
				first := bytes.Clone(rec.buf.Bytes())
				return append(first, first...)
			},
			want:    []byte("a"),
			wantErr: auth.ErrUnexpectedNonce,
		},
		{
			name: "dropped packet",
			run: func(t *testing.T, w net.Conn, rec *recordingConn) []byte {
				_, _ = w.Write([]byte("a"))
				n := rec.buf.Len()
				_, _ = w.Write([]byte("b"))
				return rec.buf.Bytes()[n:]
			},
			wantErr: auth.ErrUnexpectedNonce,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := net.Pipe()
			defer a.Close()
			defer b.Close()
			go func() { _, _ = io.Copy(io.Discard, b) }()

			rec := &recordingConn{Conn: a}
			w, err := auth.WrapConn(rec, key, auth.RoleClient)
			assert.NoError(t, err)
			raw := tt.run(t, w, rec)

			in, out := net.Pipe()
			defer in.Close()
			go func() {
				_, _ = out.Write(raw)
				_ = out.Close()
			}()
			r, err := auth.WrapConn(in, key, auth.RoleServer)
			assert.NoError(t, err)

			var got []byte
			buf := make([]byte, 16)
			for {
				n, err := r.Read(buf)
				got = append(got, buf[:n]...)
				if err != nil {
					if tt.wantErr != nil {
						assert.ErrorIs(t, err, tt.wantErr)
					} else {
						assert.ErrorIs(t, err, io.EOF)
					}
					break
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnSameRoleRejected(t *testing.T) {
	key, err := auth.DeriveKey("test123")
	assert.NoError(t, err)
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	w, err := auth.WrapConn(a, key, auth.RoleClient)
	assert.NoError(t, err)
	r, err := auth.WrapConn(b, key, auth.RoleClient)
	assert.NoError(t, err)

	go func() { _, _ = w.Write([]byte("x")) }()
	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, auth.ErrUnexpectedNonce)
}
