package ble

import "github.com/Alia5/blemouse/internal/peripheral"

// GATT assigned numbers of the HID service.
const (
	uuidHIDService      = 0x1812
	uuidHIDInformation  = 0x2A4A
	uuidReportMap       = 0x2A4B
	uuidHIDControlPoint = 0x2A4C
	uuidReport          = 0x2A4D
	uuidProtocolMode    = 0x2A4E
	uuidBootMouseInput  = 0x2A33
)

const (
	protocolModeBoot   = 0x00
	protocolModeReport = 0x01

	controlPointSuspend     = 0x00
	controlPointExitSuspend = 0x01

	hidFlagRemoteWake          = 0x01
	hidFlagNormallyConnectable = 0x02
)

// hidInformation is bcdHID 1.11, no country code, remote wake and normally
// connectable.
var hidInformation = []byte{0x11, 0x01, 0x00, hidFlagRemoteWake | hidFlagNormallyConnectable}

// decodeProtocolMode parses a write to the Protocol Mode characteristic.
func decodeProtocolMode(value []byte) (peripheral.Mode, bool) {
	if len(value) != 1 {
		return peripheral.ModeReport, false
	}
	switch value[0] {
	case protocolModeBoot:
		return peripheral.ModeBoot, true
	case protocolModeReport:
		return peripheral.ModeReport, true
	default:
		return peripheral.ModeReport, false
	}
}

func controlPointName(value []byte) string {
	if len(value) != 1 {
		return "invalid"
	}
	switch value[0] {
	case controlPointSuspend:
		return "suspend"
	case controlPointExitSuspend:
		return "exit suspend"
	default:
		return "unknown"
	}
}
