package mouse

import "encoding/binary"

// EncodeMovement packs a relative motion into the 3-byte movement report.
//
// Both axes are clamped to the 12-bit range and laid out as two consecutive
// little-endian 12-bit fields:
//
//	Byte 0: X bits 0-7
//	Byte 1: Y bits 0-3 (high nibble) | X bits 8-11 (low nibble)
//	Byte 2: Y bits 4-11
func EncodeMovement(dx, dy int16) [ReportLenMovement]byte {
	var xb, yb [2]byte
	binary.LittleEndian.PutUint16(xb[:], uint16(clamp(dx, MovementMin, MovementMax)))
	binary.LittleEndian.PutUint16(yb[:], uint16(clamp(dy, MovementMin, MovementMax)))

	var out [ReportLenMovement]byte
	out[0] = xb[0]
	out[1] = (yb[0] << 4) | (xb[1] & 0x0F)
	out[2] = (yb[1] << 4) | (yb[0] >> 4)
	return out
}

// DecodeMovement extracts the two sign-extended 12-bit fields of a movement report.
func DecodeMovement(b [ReportLenMovement]byte) (dx, dy int16) {
	x := uint16(b[0]) | uint16(b[1]&0x0F)<<8
	y := uint16(b[1]>>4) | uint16(b[2])<<4
	return signExtend12(x), signExtend12(y)
}

// EncodeBootMovement clamps both axes to the signed 8-bit range of the boot report.
func EncodeBootMovement(dx, dy int16) (int8, int8) {
	return int8(clamp(dx, BootMin, BootMax)), int8(clamp(dy, BootMin, BootMax))
}

// BootReport builds the boot protocol mouse input report: buttons, dx, dy.
func BootReport(buttons uint8, dx, dy int8) []byte {
	return []byte{buttons & buttonsMask, byte(dx), byte(dy)}
}

func clamp(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func signExtend12(v uint16) int16 {
	v &= 0x0FFF
	if v&0x0800 != 0 {
		return int16(v | 0xF000)
	}
	return int16(v)
}
