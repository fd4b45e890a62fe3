package auth_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/server/api/auth"
)

func TestGenerateKey(t *testing.T) {
	seen := map[string]bool{}
	for range 64 {
		key, err := auth.GenerateKey()
		require.NoError(t, err)
		assert.Regexp(t, "^[0-9A-Za-z]{16}$", key)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}

func BenchmarkGenerateKey(b *testing.B) {
	for b.Loop() {
		if _, err := auth.GenerateKey(); err != nil {
			b.Fatal(err)
		}
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		password string
		want     string
		wantErr  error
	}{
		{password: "password123", want: "26b0c990c91861ccd4e5783c3ec236c69d2ea1ea8ee382285d238071b6527347"},
		{password: "1", want: "354e32f34399490e0a584a33b69452e91f8a78edc3411605f4423d3dd1a904f8"},
		{password: "dkfghdfg90d78h350ß8dgfjkdfg#---23489dfg!!!@!@#$$%&/()=", want: "91f6594c144dfbd935e5f0ae17168ad0454819540b957b32f14d0f5af1b680e2"},
		{password: "", wantErr: auth.ErrEmptyPassword},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			key, err := auth.DeriveKey(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(key))
		})
	}
}

func TestSessionKey(t *testing.T) {
	key, err := auth.DeriveKey("password123")
	require.NoError(t, err)
	clientNonce := make([]byte, auth.NonceSize)
	serverNonce := make([]byte, auth.NonceSize)
	for i := range clientNonce {
		clientNonce[i] = byte(i)
		serverNonce[i] = byte(i + auth.NonceSize)
	}

	got := auth.SessionKey(key, clientNonce, serverNonce)
	assert.Equal(t, "9e7fa5a52d34c7d60b4f6bf058a43a4012bb3a9eae78608290992e0251a6ff0d", hex.EncodeToString(got))

	assert.NotEqual(t, got, auth.SessionKey(key, serverNonce, clientNonce), "nonce order matters")
}
