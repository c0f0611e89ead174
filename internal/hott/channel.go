package hott

// neutralServo is the pulse width reported for channels the block does not carry.
const neutralServo = 1500 * 1000

// ParseChannel decodes the servo positions of a raw block. Channels 9-12 and
// 13-16 alternate between blocks; byte 5 selects which group is present.
func ParseChannel(p Points, raw []byte) {
	p[PointTx] = int(raw[3]) * -1000
	p[PointRx] = int(raw[4]) * -1000

	for k := 0; k < 8; k++ {
		p[PointChannel1+k] = uint16At(raw, 8+2*k) / 2 * 1000
	}

	p[PointPowerOff] = int(raw[50]&0x01) * 100000
	p[PointBattLow] = int(raw[50]&0x02) * 50000
	p[PointReset] = int(raw[50]&0x04) * 25000
	if w := sbyte(raw[32]); w > 0 && w < 27 {
		p[PointChWarning] = w * 1000
	} else {
		p[PointChWarning] = 0
	}

	present, other := PointChannel1+8, PointChannel1+12
	if raw[5] != 0x00 {
		present, other = other, present
	}
	for k := 0; k < 4; k++ {
		p[present+k] = uint16At(raw, 24+2*k) / 2 * 1000
	}
	if p[other] == 0 {
		for k := 0; k < 4; k++ {
			p[other+k] = neutralServo
		}
	}
}
