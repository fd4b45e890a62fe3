package ble

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/blemouse/internal/peripheral"
)

func TestDevicePathRoundTrip(t *testing.T) {
	addr := peripheral.Address("AA:BB:CC:DD:EE:FF")
	path := devicePath("hci0", addr)
	assert.Equal(t, dbus.ObjectPath("/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"), path)

	got, err := addressFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	_, err = addressFromPath("/org/bluez/hci0")
	assert.Error(t, err)
	_, err = addressFromPath("/org/bluez/hci0/dev_AA_BB")
	assert.Error(t, err)
}

func device(adapter string, addr string, paired bool) map[string]map[string]dbus.Variant {
	return map[string]map[string]dbus.Variant{
		bluezDeviceInterface: {
			"Adapter": dbus.MakeVariant(adapterPath(adapter)),
			"Address": dbus.MakeVariant(addr),
			"Paired":  dbus.MakeVariant(paired),
		},
	}
}

func TestBondsFromObjects(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {
			"org.bluez.Adapter1": {"Address": dbus.MakeVariant("00:11:22:33:44:55")},
		},
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB": device("hci0", "BB:BB:BB:BB:BB:BB", true),
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": device("hci0", "aa:aa:aa:aa:aa:aa", true),
		"/org/bluez/hci0/dev_CC_CC_CC_CC_CC_CC": device("hci0", "CC:CC:CC:CC:CC:CC", false),
		"/org/bluez/hci1/dev_DD_DD_DD_DD_DD_DD": device("hci1", "DD:DD:DD:DD:DD:DD", true),
		"/org/bluez/hci0/dev_EE_EE_EE_EE_EE_EE": {
			bluezDeviceInterface: {
				"Adapter": dbus.MakeVariant(adapterPath("hci0")),
				"Paired":  dbus.MakeVariant(true),
			},
		},
	}

	assert.Equal(t, []peripheral.Address{
		"AA:AA:AA:AA:AA:AA",
		"BB:BB:BB:BB:BB:BB",
		"EE:EE:EE:EE:EE:EE",
	}, bondsFromObjects(objects, "hci0"))
	assert.Equal(t, []peripheral.Address{"DD:DD:DD:DD:DD:DD"}, bondsFromObjects(objects, "hci1"))
	assert.Empty(t, bondsFromObjects(objects, "hci2"))
}

func TestParseDeviceChange(t *testing.T) {
	path := devicePath("hci0", "AA:BB:CC:DD:EE:FF")
	tests := []struct {
		name   string
		sig    *dbus.Signal
		ok     bool
		paired *bool
		bonded *bool
	}{
		{
			name: "paired and bonded",
			sig: &dbus.Signal{Path: path, Name: propertiesChanged, Body: []any{
				bluezDeviceInterface,
				map[string]dbus.Variant{"Paired": dbus.MakeVariant(true), "Bonded": dbus.MakeVariant(false)},
				[]string{},
			}},
			ok: true, paired: ptr(true), bonded: ptr(false),
		},
		{
			name: "unrelated property",
			sig: &dbus.Signal{Path: path, Name: propertiesChanged, Body: []any{
				bluezDeviceInterface,
				map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-40))},
			}},
		},
		{
			name: "other interface",
			sig: &dbus.Signal{Path: path, Name: propertiesChanged, Body: []any{
				"org.bluez.Battery1",
				map[string]dbus.Variant{"Paired": dbus.MakeVariant(true)},
			}},
		},
		{
			name: "not a device",
			sig: &dbus.Signal{Path: "/org/bluez/hci0", Name: propertiesChanged, Body: []any{
				bluezDeviceInterface,
				map[string]dbus.Variant{"Paired": dbus.MakeVariant(true)},
			}},
		},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := parseDeviceChange(tt.sig)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, peripheral.Address("AA:BB:CC:DD:EE:FF"), c.Addr)
			assert.Equal(t, tt.paired, c.Paired)
			assert.Equal(t, tt.bonded, c.Bonded)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestDecodeProtocolMode(t *testing.T) {
	tests := []struct {
		in   []byte
		mode peripheral.Mode
		ok   bool
	}{
		{[]byte{0x00}, peripheral.ModeBoot, true},
		{[]byte{0x01}, peripheral.ModeReport, true},
		{[]byte{0x02}, peripheral.ModeReport, false},
		{nil, peripheral.ModeReport, false},
		{[]byte{0x00, 0x01}, peripheral.ModeReport, false},
	}
	for _, tt := range tests {
		mode, ok := decodeProtocolMode(tt.in)
		assert.Equal(t, tt.ok, ok, "% x", tt.in)
		assert.Equal(t, tt.mode, mode, "% x", tt.in)
	}
	assert.Equal(t, "suspend", controlPointName([]byte{0}))
	assert.Equal(t, "exit suspend", controlPointName([]byte{1}))
	assert.Equal(t, "invalid", controlPointName(nil))
}

func TestLinksRegistry(t *testing.T) {
	l := newLinks()
	a, created := l.open("AA:BB:CC:DD:EE:FF")
	require.True(t, created)
	b, created := l.open("AA:BB:CC:DD:EE:FF")
	assert.False(t, created)
	assert.Same(t, a, b)
	assert.Len(t, l.all(), 1)

	got, ok := l.close("AA:BB:CC:DD:EE:FF")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, int32(0), a.Refs())
	_, ok = l.get("AA:BB:CC:DD:EE:FF")
	assert.False(t, ok)
	_, ok = l.close("AA:BB:CC:DD:EE:FF")
	assert.False(t, ok)
}

func TestLinksWait(t *testing.T) {
	l := newLinks()
	_, ok := l.wait("AA:BB:CC:DD:EE:FF", 10*time.Millisecond)
	assert.False(t, ok)

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.open("11:22:33:44:55:66")
		l.open("AA:BB:CC:DD:EE:FF")
	}()
	link, ok := l.wait("AA:BB:CC:DD:EE:FF", time.Second)
	require.True(t, ok)
	assert.Equal(t, peripheral.Address("AA:BB:CC:DD:EE:FF"), link.Addr)
}
