// Package device holds interfaces shared by the HID report producers.
package device

// ReportBuilder is an interface for input states that can build HID input reports.
type ReportBuilder interface {
	// BuildReport encodes the input state into the report payload (without report ID).
	BuildReport() []byte
}
