package mouse

// Button bits of the buttons report.
const (
	ButtonLeft    uint8 = 1 << 0
	ButtonRight   uint8 = 1 << 1
	ButtonMiddle  uint8 = 1 << 2
	ButtonBack    uint8 = 1 << 3
	ButtonForward uint8 = 1 << 4

	buttonsMask uint8 = 0x1F
)

// Media player bits of the consumer control report.
const (
	MediaPlayPause uint8 = 1 << iota
	MediaConsumerControlConfig
	MediaNextTrack
	MediaPrevTrack
	MediaVolumeDown
	MediaVolumeUp
	MediaACForward
	MediaACBack
)

// Input report indices inside the HID service report group.
const (
	ReportIndexButtons  = 0
	ReportIndexMovement = 1
	ReportIndexMedia    = 2
)

// Report IDs referenced by the report map.
const (
	ReportIDButtons  = 1
	ReportIDMovement = 2
	ReportIDMedia    = 3
)

// Report payload lengths in bytes.
const (
	ReportLenButtons  = 3
	ReportLenMovement = 3
	ReportLenMedia    = 1
	ReportLenBoot     = 3
)

// Axis limits of the report-mode and boot-mode movement fields.
const (
	MovementMax = 0x07FF
	MovementMin = -0x07FF
	BootMax     = 127
	BootMin     = -128
)
