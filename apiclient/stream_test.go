package apiclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/Alia5/blemouse/apiclient"
	"github.com/Alia5/blemouse/device/mouse"
	"github.com/Alia5/blemouse/internal/peripheral"
	"github.com/Alia5/blemouse/internal/server/api"
	"github.com/Alia5/blemouse/internal/server/api/handler"
	th "github.com/Alia5/blemouse/internal/testing"
)

func TestOpenStream_NotSupportedWithMockTransport(t *testing.T) {
	c, _ := testClient(map[string]string{}, nil)
	_, err := c.OpenStream(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported with mock transport")
}

func TestOpenStream(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "plain"},
		{name: "authenticated", password: "s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := th.NewTransport()
			p, _ := th.StartPeripheral(t, peripheral.DefaultConfig(), tr)
			cfg := api.ServerConfig{RequireAuth: tt.password != "", Password: tt.password}
			addr, done := th.StartAPIServer(t, cfg, func(r *api.Router, _ *api.Server) {
				r.RegisterStream(apiclient.StreamPath, handler.MouseStream(p))
			})
			defer done()

			p.Connected(peripheral.NewLink("AA:BB:CC:DD:EE:01"), nil)
			require.Eventually(t, func() bool { return len(p.Status().Clients) == 1 }, 2*time.Second, 5*time.Millisecond)

			c := apiclient.NewWithPassword(addr, tt.password)
			s, err := c.OpenStream(context.Background())
			require.NoError(t, err)
			require.NoError(t, s.Send(mouse.Frame{DX: -5, DY: -5}))

			calls := tr.WaitCalls(t, "SendReport", 1)
			assert.Equal(t, mouse.ReportIndexMovement, calls[0].Index)
			assert.Equal(t, []byte{0xFB, 0xBF, 0xFF}, calls[0].Data)
			require.NoError(t, s.Close())
		})
	}
}
