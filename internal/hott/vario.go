package hott

// ParseVario decodes a vario frame from sub-blocks 1 and 2.
func ParseVario(p Points, b *SubBlockSet, ctx *ParseContext) bool {
	b1, b2 := b.Block(1), b.Block(2)

	height := int16At(b1, 2) - 500
	heightValid := !ctx.filtering() || (height >= -490 && height < 5000)
	if heightValid {
		p[PointAltitude] = height * 1000
		p[PointClimb1] = (uint16At(b1, 8) - 30000) * 10
	}

	climb10 := uint16At(b2, 2) - 30000
	climbValid := !ctx.filtering() || (climb10 > -10000 && climb10 < 10000)
	if climbValid {
		p[PointClimb3] = (uint16At(b2, 0) - 30000) * 10
		p[PointClimb10] = climb10 * 10
	}

	p[PointEventVario] = int(b1[1]&0x3F) * 1000
	return heightValid && climbValid
}
