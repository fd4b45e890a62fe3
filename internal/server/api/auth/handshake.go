package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/blemouse/apitypes"
	apierror "github.com/Alia5/blemouse/internal/server/api/error"
)

// Handshake wire format:
//
//	client: magic[5] | client nonce[32] | client proof[32]
//	server: "OK\x00" | server nonce[32] | server proof[32]
//
// A server that rejects the client answers with one ApiError JSON line
// instead and closes the connection.
const (
	HandshakeMagic = "eBM1\x00"
	NonceSize      = 32

	okPrefix  = "OK\x00"
	proofSize = sha256.Size
)

// ErrServerProof is returned to a client when the server does not know the
// password.
var ErrServerProof = errors.New("server failed to prove the password")

// IsHandshake reports whether r starts with the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

func newNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return n, nil
}

// Client runs the handshake on a fresh connection and returns the encrypted
// connection.
func Client(conn net.Conn, key []byte) (net.Conn, error) {
	sessionKey, err := clientHandshake(conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, sessionKey, RoleClient)
}

func clientHandshake(rw io.ReadWriter, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("handshake: missing key")
	}
	clientNonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	hello := make([]byte, 0, len(HandshakeMagic)+NonceSize+proofSize)
	hello = append(hello, HandshakeMagic...)
	hello = append(hello, clientNonce...)
	hello = append(hello, proof(key, RoleClient, clientNonce)...)
	if _, err := rw.Write(hello); err != nil {
		return nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okPrefix))
	if _, err := io.ReadFull(rw, prefix); err != nil {
		return nil, fmt.Errorf("read handshake reply: %w", err)
	}
	if string(prefix) != okPrefix {
		return nil, rejection(prefix, rw)
	}

	reply := make([]byte, NonceSize+proofSize)
	if _, err := io.ReadFull(rw, reply); err != nil {
		return nil, fmt.Errorf("read handshake reply: %w", err)
	}
	serverNonce, serverProof := reply[:NonceSize], reply[NonceSize:]
	if !hmac.Equal(serverProof, proof(key, RoleServer, clientNonce, serverNonce)) {
		return nil, ErrServerProof
	}
	return SessionKey(key, clientNonce, serverNonce), nil
}

// rejection turns a non-OK reply into the server's ApiError when it is one.
func rejection(prefix []byte, r io.Reader) error {
	rest, _ := io.ReadAll(r)
	line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
	var apiErr apitypes.ApiError
	if err := json.Unmarshal([]byte(line), &apiErr); err == nil && apiErr.Status != 0 {
		return &apiErr
	}
	return fmt.Errorf("invalid handshake reply: %q", line)
}

// Server answers the handshake read from r, which must wrap conn, and
// returns the encrypted connection. A client with the wrong key gets a 401
// error back; writing it to the client is the caller's job.
func Server(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	sessionKey, err := serverHandshake(r, conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(&bufferedConn{Conn: conn, r: r}, sessionKey, RoleServer)
}

func serverHandshake(r io.Reader, w io.Writer, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("handshake: missing key")
	}
	hello := make([]byte, len(HandshakeMagic)+NonceSize+proofSize)
	if _, err := io.ReadFull(r, hello); err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	if string(hello[:len(HandshakeMagic)]) != HandshakeMagic {
		return nil, apierror.ErrUnauthorized("authentication required")
	}
	clientNonce := hello[len(HandshakeMagic) : len(HandshakeMagic)+NonceSize]
	clientProof := hello[len(HandshakeMagic)+NonceSize:]
	if !hmac.Equal(clientProof, proof(key, RoleClient, clientNonce)) {
		return nil, apierror.ErrUnauthorized("invalid password")
	}

	serverNonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	reply := make([]byte, 0, len(okPrefix)+NonceSize+proofSize)
	reply = append(reply, okPrefix...)
	reply = append(reply, serverNonce...)
	reply = append(reply, proof(key, RoleServer, clientNonce, serverNonce)...)
	if _, err := w.Write(reply); err != nil {
		return nil, fmt.Errorf("write handshake reply: %w", err)
	}
	return SessionKey(key, clientNonce, serverNonce), nil
}

// bufferedConn reads through the reader the handshake was parsed from so
// bytes it already buffered are not lost.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }
