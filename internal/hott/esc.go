package hott

// ParseESC decodes a speed controller frame from sub-blocks 1 to 3 into the
// ESC channels of the context layout. A frame whose FET temperature drops more
// than 20 degrees below the previous accepted value is rejected as a glitch.
func ParseESC(p Points, b *SubBlockSet, ctx *ParseContext) bool {
	b1, b2, b3 := b.Block(1), b.Block(2), b.Block(3)
	e := p[ctx.Layout.ESCBase() : ctx.Layout.ESCBase()+escChannels]

	voltage := int16At(b1, 3)
	current := int16At(b2, 1)
	capacity := int16At(b1, 7)
	revolution := int16At(b2, 5)
	tempFet := sbyte(b1[9]) - 20

	valid := !ctx.filtering() ||
		(voltage > 0 && voltage < 1000 &&
			current > -10 && current < 4000 &&
			revolution > -1 && revolution < 20000 &&
			!(e[ESCTempFet] != 0 && e[ESCTempFet]/1000-tempFet > 20))
	if valid {
		e[ESCVoltage] = voltage * 1000
		e[ESCCurrent] = current * 1000
		e[ESCPower] = int(float64(e[ESCVoltage]) / 1000.0 * float64(e[ESCCurrent]))
		if !ctx.filtering() || !ctx.WarmedUp ||
			(capacity != 0 && abs(capacity) <= e[ESCCapacity]/1000+voltage*current/2500+2) {
			e[ESCCapacity] = capacity * 1000
		}
		e[ESCRevolution] = revolution * 1000
		e[ESCTempFet] = tempFet * 1000
		e[ESCTempMotor] = (sbyte(b2[9]) - 20) * 1000
		e[ESCVoltageMin] = int16At(b1, 5) * 1000
		e[ESCCurrentMax] = int16At(b2, 3) * 1000
		e[ESCRevolutionMax] = int16At(b2, 7) * 1000
		e[ESCTempFetMax] = (sbyte(b2[0]) - 20) * 1000
		e[ESCTempMotorMax] = (sbyte(b3[0]) - 20) * 1000
	}

	e[ESCEvent] = int(b1[1]) * 1000
	return valid
}
