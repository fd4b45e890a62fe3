// Package mouse provides the HID report map and report codecs of the BLE mouse.
package mouse

import "fmt"

// ReportMap is the HID report descriptor exposed through the Report Map characteristic.
var ReportMap = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x02, // Usage (Mouse)
	0xA1, 0x01, // Collection (Application)

	// Report ID 1: buttons + wheel/pan
	0x85, ReportIDButtons, //   Report Id 1
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x95, 0x05, //     Report Count (5)
	0x75, 0x01, //     Report Size (1)
	0x05, 0x09, //     Usage Page (Buttons)
	0x19, 0x01, //     Usage Minimum (1)
	0x29, 0x05, //     Usage Maximum (5)
	0x15, 0x00, //     Logical Minimum (0)
	0x25, 0x01, //     Logical Maximum (1)
	0x81, 0x02, //     Input (Data, Variable, Absolute)
	0x95, 0x01, //     Report Count (1)
	0x75, 0x03, //     Report Size (3)
	0x81, 0x01, //     Input (Constant) - padding
	0x75, 0x08, //     Report Size (8)
	0x95, 0x01, //     Report Count (1)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x38, //     Usage (Wheel)
	0x15, 0x81, //     Logical Minimum (-127)
	0x25, 0x7F, //     Logical Maximum (127)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0x05, 0x0C, //     Usage Page (Consumer)
	0x0A, 0x38, 0x02, // Usage (AC Pan)
	0x95, 0x01, //     Report Count (1)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection (Physical)

	// Report ID 2: motion, two 12-bit fields
	0x85, ReportIDMovement, //   Report Id 2
	0x09, 0x01, //   Usage (Pointer)
	0xA1, 0x00, //   Collection (Physical)
	0x75, 0x0C, //     Report Size (12)
	0x95, 0x02, //     Report Count (2)
	0x05, 0x01, //     Usage Page (Generic Desktop)
	0x09, 0x30, //     Usage (X)
	0x09, 0x31, //     Usage (Y)
	0x16, 0x01, 0xF8, // Logical Minimum (-2047)
	0x26, 0xFF, 0x07, // Logical Maximum (2047)
	0x81, 0x06, //     Input (Data, Variable, Relative)
	0xC0, //   End Collection (Physical)
	0xC0, // End Collection (Application)

	// Report ID 3: media keys
	0x05, 0x0C, // Usage Page (Consumer)
	0x09, 0x01, // Usage (Consumer Control)
	0xA1, 0x01, // Collection (Application)
	0x85, ReportIDMedia, //   Report Id 3
	0x15, 0x00, //   Logical Minimum (0)
	0x25, 0x01, //   Logical Maximum (1)
	0x75, 0x01, //   Report Size (1)
	0x95, 0x01, //   Report Count (1)
	0x09, 0xCD, //   Usage (Play/Pause)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x0A, 0x83, 0x01, // Usage (Consumer Control Configuration)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x09, 0xB5, //   Usage (Scan Next Track)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x09, 0xB6, //   Usage (Scan Previous Track)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x09, 0xEA, //   Usage (Volume Down)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x09, 0xE9, //   Usage (Volume Up)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x0A, 0x25, 0x02, // Usage (AC Forward)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0x0A, 0x24, 0x02, // Usage (AC Back)
	0x81, 0x06, //   Input (Data, Variable, Relative)
	0xC0, // End Collection
}

// Report describes one input report of the HID service report group.
type Report struct {
	Index int
	ID    uint8
	Len   int
}

// Reports is the input report group in index order.
var Reports = []Report{
	{Index: ReportIndexButtons, ID: ReportIDButtons, Len: ReportLenButtons},
	{Index: ReportIndexMovement, ID: ReportIDMovement, Len: ReportLenMovement},
	{Index: ReportIndexMedia, ID: ReportIDMedia, Len: ReportLenMedia},
}

// ValidateReportGroup checks that a report group matches the report map layout.
// The movement report must be exactly two 12-bit fields.
func ValidateReportGroup(group []Report) error {
	if len(group) != len(Reports) {
		return fmt.Errorf("report group: want %d reports, got %d", len(Reports), len(group))
	}
	for i, r := range group {
		if r.Index != i {
			return fmt.Errorf("report group: report %d has index %d", i, r.Index)
		}
		if r.Len <= 0 {
			return fmt.Errorf("report group: report %d has no payload", r.ID)
		}
	}
	if mv := group[ReportIndexMovement]; mv.Len*8 != 2*12 {
		return fmt.Errorf("report group: movement report is %d bytes, only 2 axis of 12 bits are supported", mv.Len)
	}
	return nil
}

// MustReportGroup returns Reports and panics if it does not validate.
func MustReportGroup() []Report {
	if err := ValidateReportGroup(Reports); err != nil {
		panic(err)
	}
	return Reports
}
