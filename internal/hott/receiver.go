package hott

// ParseReceiver decodes the receiver values of a raw block into the receiver
// channels. RXSQ and VPacks are always written; the remaining values only when
// voltage and temperature are plausible. The event channel always reflects the
// newest block. It reports whether the validity predicate passed.
func ParseReceiver(p Points, raw []byte, ctx *ParseContext) bool {
	voltage := int(raw[35])
	temperature := int(raw[36])

	p[PointRXSQ] = int(raw[38]) * 1000
	p[PointVPacks] = int16At(raw, 40) * 1000

	valid := !ctx.filtering() || (voltage < 100 && temperature < 100)
	if valid {
		p[PointStrength] = Strength(int(raw[4])) * 1000
		p[PointTx] = int(raw[3]) * -1000
		p[PointRx] = int(raw[4]) * -1000
		p[PointVoltageRx] = voltage * 1000
		p[PointTempRx] = (temperature - 20) * 1000
		p[PointVoltageRxMin] = int(raw[39]) * 1000
	}

	// E, V and T warnings only; the temperature warning starts at 50 degrees.
	event := raw[32]
	if event&0x40 > 0 || (event&0x25 > 0 && temperature >= 70) {
		p[PointEventRx] = int(event&0x65) * 1000
	} else {
		p[PointEventRx] = 0
	}
	return valid
}
