package mouse

import (
	"io"

	"github.com/Alia5/blemouse/device"
)

// InputState is the content of the buttons report.
type InputState struct {
	// Button bitfield: bit 0=Left, 1=Right, 2=Middle, 3=Back, 4=Forward
	Buttons uint8
	// Wheel: vertical scroll, -127..127
	Wheel int8
	// Pan: horizontal scroll (AC Pan), -127..127
	Pan int8
}

// BuildReport encodes the buttons report.
//
//	Byte 0: buttons (bits 0-4), padding (bits 5-7)
//	Byte 1: wheel
//	Byte 2: AC pan
func (s *InputState) BuildReport() []byte {
	return []byte{s.Buttons & buttonsMask, byte(s.Wheel), byte(s.Pan)}
}

// MediaState is the content of the consumer control report.
type MediaState struct {
	// Keys bitfield, see the Media* constants.
	Keys uint8
}

// BuildReport encodes the single byte media report.
func (s *MediaState) BuildReport() []byte {
	return []byte{s.Keys}
}

// Movement is a relative motion encoded as the 12-bit movement report.
type Movement struct {
	DX, DY int16
}

// BuildReport encodes the movement report.
func (m *Movement) BuildReport() []byte {
	b := EncodeMovement(m.DX, m.DY)
	return b[:]
}

var (
	_ device.ReportBuilder = (*InputState)(nil)
	_ device.ReportBuilder = (*MediaState)(nil)
	_ device.ReportBuilder = (*Movement)(nil)
)

// FrameLen is the size of one remote input frame.
const FrameLen = 5

// Frame is the remote input wire format streamed by control clients.
type Frame struct {
	Buttons uint8
	DX, DY  int16
}

// MarshalBinary encodes Frame to 5 bytes.
func (f *Frame) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameLen)
	b[0] = f.Buttons
	b[1] = byte(f.DX)
	b[2] = byte(f.DX >> 8)
	b[3] = byte(f.DY)
	b[4] = byte(f.DY >> 8)
	return b, nil
}

// UnmarshalBinary decodes 5 bytes into Frame.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < FrameLen {
		return io.ErrUnexpectedEOF
	}
	f.Buttons = data[0]
	f.DX = int16(data[1]) | int16(data[2])<<8
	f.DY = int16(data[3]) | int16(data[4])<<8
	return nil
}
