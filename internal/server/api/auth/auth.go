// Package auth protects control API connections with a shared password.
//
// Both ends stretch the password into a key with PBKDF2. The client opens
// with a nonce and a proof of the key, the server answers with its own nonce
// and a proof bound to both nonces, so each end authenticates the other
// before the request line is sent. The rest of the connection is carried by
// Conn under a per-connection session key.
package auth

import (
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

const (
	// GeneratedKeyLength is the length of keys written to a fresh key file.
	GeneratedKeyLength = 16
	PBKDF2Iterations   = 100000

	keyAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	keySalt      = "blemouse-Key-v1"
	sessionLabel = "blemouse-Session-v1"
	proofLabel   = "blemouse-Auth-v1"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// GenerateKey returns a random alphanumeric key. Bytes that would bias the
// alphabet are discarded.
func GenerateKey() (string, error) {
	const limit = 256 - 256%len(keyAlphabet)
	key := make([]byte, 0, GeneratedKeyLength)
	buf := make([]byte, GeneratedKeyLength)
	for len(key) < GeneratedKeyLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit || len(key) == GeneratedKeyLength {
				continue
			}
			key = append(key, keyAlphabet[int(b)%len(keyAlphabet)])
		}
	}
	return string(key), nil
}

// DeriveKey stretches password to a 32 byte key.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(keySalt), PBKDF2Iterations, 32)
}

// SessionKey derives the key of one connection from the long term key and
// both handshake nonces.
func SessionKey(key, clientNonce, serverNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(sessionLabel))
	mac.Write(clientNonce)
	mac.Write(serverNonce)
	return mac.Sum(nil)
}

// proof is the handshake MAC sent by role over the given nonces. Binding the
// role keeps a proof from being reflected back as the other end's.
func proof(key []byte, role Role, nonces ...[]byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(proofLabel))
	_ = binary.Write(mac, binary.BigEndian, uint32(role))
	for _, n := range nonces {
		mac.Write(n)
	}
	return mac.Sum(nil)
}
