// Package ble connects the peripheral core to a BlueZ host.
//
// The GATT HID service and advertising go through tinygo.org/x/bluetooth.
// Pairing prompts, bond enumeration and pairing state changes come straight
// from BlueZ over D-Bus.
package ble

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/Alia5/blemouse/internal/peripheral"
)

const (
	bluezBusName         = "org.bluez"
	bluezDeviceInterface = "org.bluez.Device1"
	bluezAgentInterface  = "org.bluez.Agent1"
	bluezAgentManager    = "org.bluez.AgentManager1"
	bluezObjectPath      = dbus.ObjectPath("/org/bluez")
	agentPath            = dbus.ObjectPath("/org/bluez/blemouse/agent")
	agentCapability      = "DisplayYesNo"

	propertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	getManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

var (
	ErrNotConnected        = errors.New("link not connected")
	ErrDirectedUnsupported = errors.New("directed advertising is not supported by BlueZ")
	ErrNoPendingRequest    = errors.New("no pending pairing request for link")
)

type managedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func adapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%s", bluezObjectPath, adapter))
}

// devicePath returns the BlueZ object path of addr on adapter,
// e.g. /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func devicePath(adapter string, addr peripheral.Address) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/dev_%s", adapterPath(adapter), strings.ReplaceAll(string(addr), ":", "_")))
}

// addressFromPath extracts the device address from a BlueZ device path.
func addressFromPath(path dbus.ObjectPath) (peripheral.Address, error) {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return "", fmt.Errorf("not a device path: %q", s)
	}
	return peripheral.ParseAddress(s[i+len("/dev_"):])
}

// bondsFromObjects lists the paired devices of adapter in path order.
func bondsFromObjects(objects managedObjects, adapter string) []peripheral.Address {
	want := adapterPath(adapter)
	var out []peripheral.Address
	for path, ifaces := range objects {
		dev, ok := ifaces[bluezDeviceInterface]
		if !ok {
			continue
		}
		if a, ok := dev["Adapter"].Value().(dbus.ObjectPath); !ok || a != want {
			continue
		}
		if paired, _ := dev["Paired"].Value().(bool); !paired {
			continue
		}
		addr, err := deviceAddress(path, dev)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

func deviceAddress(path dbus.ObjectPath, props map[string]dbus.Variant) (peripheral.Address, error) {
	if s, ok := props["Address"].Value().(string); ok {
		return peripheral.ParseAddress(s)
	}
	return addressFromPath(path)
}

// Bonds lists the devices paired with adapter.
func Bonds(conn *dbus.Conn, adapter string) ([]peripheral.Address, error) {
	var objects managedObjects
	err := conn.Object(bluezBusName, "/").Call(getManagedObjects, 0).Store(&objects)
	if err != nil {
		return nil, fmt.Errorf("failed to get managed objects: %w", err)
	}
	return bondsFromObjects(objects, adapter), nil
}

// deviceChange is a Device1 property change that matters to pairing.
type deviceChange struct {
	Addr   peripheral.Address
	Paired *bool
	Bonded *bool
}

// parseDeviceChange decodes a PropertiesChanged signal for a Device1 object.
func parseDeviceChange(sig *dbus.Signal) (deviceChange, bool) {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return deviceChange{}, false
	}
	if iface, _ := sig.Body[0].(string); iface != bluezDeviceInterface {
		return deviceChange{}, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return deviceChange{}, false
	}
	addr, err := addressFromPath(sig.Path)
	if err != nil {
		return deviceChange{}, false
	}
	c := deviceChange{Addr: addr}
	if v, ok := changed["Paired"].Value().(bool); ok {
		c.Paired = &v
	}
	if v, ok := changed["Bonded"].Value().(bool); ok {
		c.Bonded = &v
	}
	return c, c.Paired != nil || c.Bonded != nil
}
