package peripheral_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/peripheral"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    peripheral.Address
		wantErr bool
	}{
		{in: "aa:bb:cc:dd:ee:ff", want: "AA:BB:CC:DD:EE:FF"},
		{in: " AA_BB_CC_DD_EE_01 ", want: "AA:BB:CC:DD:EE:01"},
		{in: "aa-bb-cc-dd-ee-02", want: "AA:BB:CC:DD:EE:02"},
		{in: "AA:BB:CC:DD:EE", wantErr: true},
		{in: "AA:BB:CC:DD:EE:GG", wantErr: true},
		{in: "AAA:BB:CC:DD:EE:FF", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := peripheral.ParseAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLinkRefs(t *testing.T) {
	l := peripheral.NewLink("AA:BB:CC:DD:EE:FF")
	assert.Equal(t, int32(1), l.Refs())

	ref := l.Acquire()
	assert.Equal(t, int32(2), l.Refs())
	got, err := ref.Link()
	require.NoError(t, err)
	assert.Same(t, l, got)

	require.NoError(t, ref.Release())
	assert.Equal(t, int32(1), l.Refs())

	assert.ErrorIs(t, ref.Release(), peripheral.ErrRefReleased)
	assert.Equal(t, int32(1), l.Refs(), "second release must not drop another reference")
	_, err = ref.Link()
	assert.ErrorIs(t, err, peripheral.ErrRefReleased)
}

func TestLinkIDsAreUnique(t *testing.T) {
	a := peripheral.NewLink("AA:BB:CC:DD:EE:FF")
	b := peripheral.NewLink("AA:BB:CC:DD:EE:FF")
	assert.NotEqual(t, a.ID, b.ID)
}
