package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/Alia5/blemouse/device/mouse"
	"github.com/Alia5/blemouse/internal/peripheral"
)

// charWriter is the write side of a notifying characteristic.
type charWriter interface {
	Write(p []byte) (int, error)
}

// hidService is the GATT HID service registered with BlueZ.
//
// BlueZ notifies every subscribed central when a characteristic value
// changes, so a report written here reaches all connected hosts.
type hidService struct {
	mu        sync.Mutex
	reports   [mouse.ReportIndexMedia + 1]charWriter
	bootMouse charWriter
	logger    *slog.Logger

	reportChars  [mouse.ReportIndexMedia + 1]bluetooth.Characteristic
	bootChar     bluetooth.Characteristic
	protocolMode bluetooth.Characteristic
	controlPoint bluetooth.Characteristic
}

func newHIDService(adapter *bluetooth.Adapter, onMode func(peripheral.Mode), logger *slog.Logger) (*hidService, error) {
	group := mouse.MustReportGroup()
	h := &hidService{logger: logger}

	chars := []bluetooth.CharacteristicConfig{
		{
			UUID:  bluetooth.New16BitUUID(uuidHIDInformation),
			Value: hidInformation,
			Flags: bluetooth.CharacteristicReadPermission,
		},
		{
			UUID:  bluetooth.New16BitUUID(uuidReportMap),
			Value: mouse.ReportMap,
			Flags: bluetooth.CharacteristicReadPermission,
		},
		{
			Handle: &h.protocolMode,
			UUID:   bluetooth.New16BitUUID(uuidProtocolMode),
			Value:  []byte{protocolModeReport},
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
			WriteEvent: func(_ bluetooth.Connection, _ int, value []byte) {
				mode, ok := decodeProtocolMode(value)
				if !ok {
					logger.Warn("invalid protocol mode write", "value", fmt.Sprintf("% x", value))
					return
				}
				onMode(mode)
			},
		},
		{
			Handle: &h.controlPoint,
			UUID:   bluetooth.New16BitUUID(uuidHIDControlPoint),
			Flags:  bluetooth.CharacteristicWriteWithoutResponsePermission,
			WriteEvent: func(_ bluetooth.Connection, _ int, value []byte) {
				logger.Debug("HID control point", "command", controlPointName(value))
			},
		},
		{
			Handle: &h.bootChar,
			UUID:   bluetooth.New16BitUUID(uuidBootMouseInput),
			Value:  make([]byte, mouse.ReportLenBoot),
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		},
	}
	for _, r := range group {
		chars = append(chars, bluetooth.CharacteristicConfig{
			Handle: &h.reportChars[r.Index],
			UUID:   bluetooth.New16BitUUID(uuidReport),
			Value:  make([]byte, r.Len),
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		})
	}

	err := adapter.AddService(&bluetooth.Service{
		UUID:            bluetooth.New16BitUUID(uuidHIDService),
		Characteristics: chars,
	})
	if err != nil {
		return nil, fmt.Errorf("add HID service: %w", err)
	}
	for i := range h.reportChars {
		h.reports[i] = &h.reportChars[i]
	}
	h.bootMouse = &h.bootChar
	return h, nil
}

func (h *hidService) sendReport(index int, data []byte) error {
	if index < 0 || index >= len(h.reports) || h.reports[index] == nil {
		return fmt.Errorf("report index %d out of range", index)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.reports[index].Write(data)
	return err
}

func (h *hidService) sendBootMouse(dx, dy int8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.bootMouse.Write(mouse.BootReport(0, dx, dy))
	return err
}
