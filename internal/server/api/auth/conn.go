package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// Role tells which end of the session a connection is. Each direction uses
// its own nonce prefix so both ends can count from zero under one key.
type Role uint32

const (
	RoleClient Role = 1
	RoleServer Role = 2
)

func (r Role) peer() Role {
	if r == RoleClient {
		return RoleServer
	}
	return RoleClient
}

// ErrUnexpectedNonce is returned for a packet that was replayed, reordered or
// sent by the wrong end.
var ErrUnexpectedNonce = errors.New("auth: unexpected packet nonce")

const maxPacketSize = 2 * 1024 * 1024 // 2 MB

// Conn encrypts every Write into one length prefixed packet:
//
//	length[4] | nonce[12] | ciphertext
//
// The nonce is the sender's role followed by its packet counter.
type Conn struct {
	net.Conn
	aead cipher.AEAD
	role Role

	wmu     sync.Mutex
	sendCtr uint64

	rmu     sync.Mutex
	recvCtr uint64
	recvBuf bytes.Buffer
}

func WrapConn(conn net.Conn, sessionKey []byte, role Role) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead, role: role}, nil
}

func makeNonce(role Role, ctr uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint32(nonce[:4], uint32(role))
	binary.BigEndian.PutUint64(nonce[4:], ctr)
	return nonce
}

func (s *Conn) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	nonce := makeNonce(s.role, s.sendCtr)
	s.sendCtr++

	ct := s.aead.Seal(nil, nonce, p, nil)
	pkt := make([]byte, 4, 4+len(nonce)+len(ct))
	binary.BigEndian.PutUint32(pkt, uint32(len(nonce)+len(ct)))
	pkt = append(pkt, nonce...)
	pkt = append(pkt, ct...)

	if _, err := s.Conn.Write(pkt); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *Conn) Read(p []byte) (int, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()

	if s.recvBuf.Len() == 0 {
		if err := s.readPacket(); err != nil {
			return 0, err
		}
	}
	return s.recvBuf.Read(p)
}

func (s *Conn) readPacket() error {
	var hdr [4]byte
	if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
		return err
	}
	length := binary.BigEndian.Uint32(hdr[:])
	if length > maxPacketSize || length < chacha20poly1305.NonceSize {
		return io.ErrUnexpectedEOF
	}

	pkt := make([]byte, length)
	if _, err := io.ReadFull(s.Conn, pkt); err != nil {
		return err
	}

	nonce := pkt[:chacha20poly1305.NonceSize]
	if !bytes.Equal(nonce, makeNonce(s.role.peer(), s.recvCtr)) {
		return ErrUnexpectedNonce
	}
	pt, err := s.aead.Open(nil, nonce, pkt[chacha20poly1305.NonceSize:], nil)
	if err != nil {
		return err
	}
	s.recvCtr++
	s.recvBuf.Write(pt)
	return nil
}
