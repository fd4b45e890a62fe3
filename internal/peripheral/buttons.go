package peripheral

// Button bits as delivered by an input source. A source maps its physical
// keys onto these before calling Peripheral.Buttons.
const (
	Btn1 uint32 = 1 << iota
	Btn2
	Btn3
	Btn4
)

const (
	KeyLeft  = Btn1
	KeyUp    = Btn2
	KeyRight = Btn3
	KeyDown  = Btn4

	KeyPairingAccept = Btn1
	KeyPairingReject = Btn2
)

// movementFromButtons sums the direction keys among pressed into one delta.
func movementFromButtons(pressed uint32, speed int16) (MovementDelta, bool) {
	var d MovementDelta
	if pressed&KeyLeft != 0 {
		d.DX -= speed
	}
	if pressed&KeyUp != 0 {
		d.DY -= speed
	}
	if pressed&KeyRight != 0 {
		d.DX += speed
	}
	if pressed&KeyDown != 0 {
		d.DY += speed
	}
	return d, pressed&(KeyLeft|KeyUp|KeyRight|KeyDown) != 0
}
