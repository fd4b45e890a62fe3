package input

import (
	"encoding/binary"

	"github.com/Alia5/blemouse/internal/peripheral"
)

// Linux input event types and key codes.
const (
	evKey = 0x01

	keyValueRelease = 0
	keyValuePress   = 1
	keyValueRepeat  = 2
)

var evdevKeys = map[uint16]uint32{
	2:   peripheral.Btn1, // KEY_1
	3:   peripheral.Btn2, // KEY_2
	4:   peripheral.Btn3, // KEY_3
	5:   peripheral.Btn4, // KEY_4
	105: peripheral.KeyLeft,
	103: peripheral.KeyUp,
	106: peripheral.KeyRight,
	108: peripheral.KeyDown,
	21:  peripheral.KeyPairingAccept, // KEY_Y
	49:  peripheral.KeyPairingReject, // KEY_N
}

// parseEvents decodes whole input_event records of size bytes from buf and
// returns the unconsumed tail. size is 24 with a 64-bit timeval and 16
// otherwise.
func parseEvents(buf []byte, size int, fn func(typ, code uint16, value int32)) []byte {
	for len(buf) >= size {
		ev := buf[:size]
		buf = buf[size:]
		off := size - 8
		fn(binary.LittleEndian.Uint16(ev[off:off+2]),
			binary.LittleEndian.Uint16(ev[off+2:off+4]),
			int32(binary.LittleEndian.Uint32(ev[off+4:off+8])))
	}
	return buf
}

// keyHandler turns key events into button transitions.
func keyHandler(h Handler, b *buttons) func(typ, code uint16, value int32) {
	return func(typ, code uint16, value int32) {
		if typ != evKey {
			return
		}
		bit, ok := evdevKeys[code]
		if !ok {
			return
		}
		var down bool
		switch value {
		case keyValuePress, keyValueRepeat:
			down = true
		case keyValueRelease:
		default:
			return
		}
		if state, changed, ok := b.set(bit, down); ok {
			h.Buttons(state, changed)
		}
	}
}
