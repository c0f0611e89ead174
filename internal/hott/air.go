package hott

// airFilter is the plausibility predicate shared by the general and electric
// air modules.
func (c *ParseContext) airFilter(height, climb3, v1, v2 int) bool {
	return !c.filtering() || (climb3 > -90 && height >= -490 && height < 5000 && abs(v1) < 600 && abs(v2) < 600)
}

// airEvent decodes the inverse event bits of an air module.
func airEvent(b1 []byte) int {
	return (int(b1[1]) + int(b1[2]&0x7F)<<8) * 1000
}

// ParseGAM decodes a general air module frame from sub-blocks 1 to 4.
func ParseGAM(p Points, b *SubBlockSet, ctx *ParseContext) bool {
	b1, b2, b3, b4 := b.Block(1), b.Block(2), b.Block(3), b.Block(4)

	height := int16At(b3, 0) - 500
	climb3 := int(b3[4]) - 120
	v1 := int16Split(b1[9], b2[0])
	v2 := int16At(b2, 1)
	capacity := int16Split(b3[9], b4[0])

	valid := ctx.airFilter(height, climb3, v1, v2)
	if valid {
		p[PointGAMVoltage] = int16At(b3, 7) * 1000
		p[PointGAMCurrent] = int16At(b3, 5) * 1000
		if ctx.capacityAccepted(capacity, p[PointGAMCapacity], p[PointGAMVoltage], p[PointGAMCurrent], true) {
			p[PointGAMCapacity] = capacity * 1000
		}
		p[PointGAMPower] = int(float64(p[PointGAMVoltage]) / 1000.0 * float64(p[PointGAMCurrent]))

		for j := 0; j < 6; j++ {
			p[PointGAMCell1+j] = int(b1[3+j]) * 1000
		}
		p[PointGAMBalance] = cellBalance(p[PointGAMCell1 : PointGAMCell1+6])

		p[PointGAMRevolution] = int16At(b2, 8) * 1000
		p[PointGAMFuel] = int16At(b2, 6) * 1000
		p[PointAltitude] = height * 1000
		p[PointClimb1] = (uint16At(b3, 2) - 30000) * 10
		p[PointClimb3] = climb3 * 1000
		p[PointGAMVoltage1] = v1 * 100
		p[PointGAMVoltage2] = v2 * 100
		p[PointGAMTemp1] = (int(b2[3]) - 20) * 1000
		p[PointGAMTemp2] = (int(b2[4]) - 20) * 1000
		p[PointGAMSpeed] = int16At(b4, 1) * 1000
		p[PointGAMLowestCell] = int(b4[3]) * 1000
		p[PointGAMLowestCellN] = int(b4[4]) * 1000
		p[PointGAMPressure] = int(b4[8]) * 1000
	}

	p[PointEventGAM] = airEvent(b1)
	return valid
}

// ParseEAM decodes an electric air module frame from sub-blocks 1 to 4.
func ParseEAM(p Points, b *SubBlockSet, ctx *ParseContext) bool {
	b1, b2, b3, b4 := b.Block(1), b.Block(2), b.Block(3), b.Block(4)

	height := int16At(b3, 3) - 500
	climb3 := int(b4[3]) - 120
	v1 := int16At(b2, 7)
	v2 := int16Split(b2[9], b3[0])
	capacity := int16Split(b3[9], b4[0])

	valid := ctx.airFilter(height, climb3, v1, v2)
	if valid {
		p[PointEAMVoltage] = int16At(b3, 7) * 1000
		p[PointEAMCurrent] = int16At(b3, 5) * 1000
		if ctx.capacityAccepted(capacity, p[PointEAMCapacity], p[PointEAMVoltage], p[PointEAMCurrent], false) {
			p[PointEAMCapacity] = capacity * 1000
		}
		p[PointEAMPower] = int(float64(p[PointEAMVoltage]) / 1000.0 * float64(p[PointEAMCurrent]))

		for j := 0; j < 7; j++ {
			p[PointEAMCell1+j] = int(b1[3+j]) * 1000
			p[PointEAMCell1+7+j] = int(b2[j]) * 1000
		}
		p[PointEAMBalance] = cellBalance(p[PointEAMCell1 : PointEAMCell1+14])

		p[PointAltitude] = height * 1000
		p[PointClimb1] = (uint16At(b4, 1) - 30000) * 10
		p[PointClimb3] = climb3 * 1000
		p[PointEAMVoltage1] = v1 * 100
		p[PointEAMVoltage2] = v2 * 100
		p[PointEAMTemp1] = (int(b3[1]) - 20) * 1000
		p[PointEAMTemp2] = (int(b3[2]) - 20) * 1000
		p[PointEAMRevolution] = int16At(b4, 4) * 1000
		p[PointEAMMotorTime] = (int(b4[6])*60 + int(b4[7])) * 1000
		p[PointEAMSpeed] = int16At(b4, 8) * 1000
	}

	p[PointEventEAM] = airEvent(b1)
	return valid
}
