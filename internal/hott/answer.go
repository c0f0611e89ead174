package hott

import (
	"errors"
	"fmt"
)

// ErrInvalidAnswer is returned when a live answer does not match the layout of
// the queried sensor.
var ErrInvalidAnswer = errors.New("invalid answer")

// answerSizes are the answer lengths of the 115200 baud adapter protocol,
// including the leading sensor code.
var answerSizes = [numSensors]int{
	SensorReceiver: 21,
	SensorVario:    25,
	SensorGPS:      34,
	SensorGAM:      49,
	SensorEAM:      60,
}

// AnswerSize returns the length of a live answer of the sensor, or zero when
// the sensor cannot be queried. An answer is the sensor code of the query
// followed by the values the sensor reports, already decoded by the receiver.
func AnswerSize(sensor SensorID) int {
	if sensor >= numSensors {
		return 0
	}
	return answerSizes[sensor]
}

// ParseAnswer decodes a live answer into the channels of the sensor. Unlike
// the sub-blocks of a recording, an answer always carries a complete frame.
// It reports whether the validity predicate passed.
func ParseAnswer(sensor SensorID, p Points, d []byte, ctx *ParseContext) (bool, error) {
	size := AnswerSize(sensor)
	switch {
	case size == 0:
		return false, fmt.Errorf("%s: %w: sensor has no live answer", sensor, ErrInvalidAnswer)
	case len(d) < size:
		return false, fmt.Errorf("%s: %w: %d of %d bytes", sensor, ErrInvalidAnswer, len(d), size)
	case d[0] != sensor.Code(Gen115200):
		return false, fmt.Errorf("%s: %w: code %#02x", sensor, ErrInvalidAnswer, d[0])
	}

	switch sensor {
	case SensorReceiver:
		return parseReceiverAnswer(p, d, ctx), nil
	case SensorVario:
		return parseVarioAnswer(p, d, ctx), nil
	case SensorGPS:
		return parseGPSAnswer(p, d, ctx), nil
	case SensorGAM:
		return parseGAMAnswer(p, d, ctx), nil
	default:
		return parseEAMAnswer(p, d, ctx), nil
	}
}

// AnswerLinkPresent reports whether a receiver answer shows a working return
// channel. Both dBm values are zero while the model does not answer.
func AnswerLinkPresent(d []byte) bool {
	return len(d) > 5 && (d[4] != 0 || d[5] != 0)
}

func parseReceiverAnswer(p Points, d []byte, ctx *ParseContext) bool {
	vpacks := int16At(d, 12)
	voltage := int(d[15])
	temperature := int16At(d, 10)

	valid := !ctx.filtering() || (vpacks > -1 && voltage < 100 && temperature < 100)
	if valid {
		p[PointRXSQ] = int(d[17]) * 1000
		p[PointStrength] = int(d[14]) * 1000
		p[PointVPacks] = vpacks * 1000
		p[PointTx] = int(d[5]) * -1000
		p[PointRx] = int(d[4]) * -1000
		p[PointVoltageRx] = voltage * 1000
		p[PointTempRx] = temperature * 1000
		p[PointVoltageRxMin] = int(d[18]) * 1000
	}
	p[PointEventRx] = 0
	return valid
}

func parseVarioAnswer(p Points, d []byte, ctx *ParseContext) bool {
	height := int16At(d, 10)
	heightValid := !ctx.filtering() || (height > -490 && height < 5000)
	if heightValid {
		p[PointAltitude] = height * 1000
		p[PointClimb1] = int16At(d, 16) * 10
	}

	climb3, climb10 := int16At(d, 18), int16At(d, 20)
	climbValid := !ctx.filtering() || (climb3 > -10000 && climb10 > -10000 && climb3 < 10000 && climb10 < 10000)
	if climbValid {
		p[PointClimb3] = climb3 * 10
		p[PointClimb10] = climb10 * 10
	}
	p[PointEventVario] = 0
	return heightValid && climbValid
}

func parseGPSAnswer(p Points, d []byte, ctx *ParseContext) bool {
	latDeg, lonDeg := int16At(d, 16), int16At(d, 20)
	height := int16At(d, 14)
	climb3 := sbyte(d[30])

	valid := !ctx.filtering() || ((latDeg == lonDeg || latDeg > 0) && height > -490 && height < 5000 && climb3 > -50)
	if !valid {
		return false
	}

	p[PointVelocity] = int16At(d, 10) * 1000

	lat := latDeg*10000 + int16At(d, 18)
	if !ctx.Filter.TolerateSignChangeLat && d[27] == 1 {
		lat = -lat
	}
	if ctx.acceptCoordinate(p, PointLatitude, lat, ctx.lastLatMs, ctx.Filter.LatitudeToleranceFactor) {
		ctx.lastLatMs = ctx.TimeMs
		p[PointLatitude] = lat
	}

	lon := lonDeg*10000 + int16At(d, 22)
	if !ctx.Filter.TolerateSignChangeLon && d[28] == 1 {
		lon = -lon
	}
	if ctx.acceptCoordinate(p, PointLongitude, lon, ctx.lastLonMs, ctx.Filter.LongitudeToleranceFactor) {
		ctx.lastLonMs = ctx.TimeMs
		p[PointLongitude] = lon
	}

	p[PointAltitude] = height * 1000
	p[PointClimb1] = int16At(d, 28) * 10
	p[PointClimb3] = climb3 * 1000
	p[PointDistance] = int16At(d, 12) * 1000
	p[PointDirection] = int16At(d, 24) * 500
	p[PointTrip] = 0
	return true
}

// answerAirFilter is the plausibility predicate of the air module answers.
func (c *ParseContext) answerAirFilter(height, climb3, v1, v2 int) bool {
	return !c.filtering() || (climb3 > -50 && height > -490 && height < 5000 && abs(v1) < 600 && abs(v2) < 600)
}

// answerCells reads cell voltages in 5 mV steps. A cell reporting zero keeps
// its previous value.
func answerCells(cells Points, d []byte, offset int) {
	for i := range cells {
		if v := int16At(d, offset+2*i); v > 0 {
			cells[i] = v * 500
		}
	}
}

func parseGAMAnswer(p Points, d []byte, ctx *ParseContext) bool {
	voltage := int16At(d, 36)
	current := int16At(d, 34)
	capacity := int16At(d, 38)
	height := int16At(d, 32)
	climb3 := sbyte(d[44])
	v1, v2 := int16At(d, 22), int16At(d, 24)

	if !ctx.answerAirFilter(height, climb3, v1, v2) {
		return false
	}

	p[PointGAMVoltage] = voltage * 1000
	p[PointGAMCurrent] = current * 1000
	if ctx.capacityAccepted(capacity, p[PointGAMCapacity], p[PointGAMVoltage], p[PointGAMCurrent], true) {
		p[PointGAMCapacity] = capacity * 1000
	}
	p[PointGAMPower] = int(float64(p[PointGAMVoltage]) / 1000.0 * float64(p[PointGAMCurrent]))

	if voltage > 0 {
		cells := p[PointGAMCell1 : PointGAMCell1+6]
		answerCells(cells, d, 10)
		p[PointGAMBalance] = cellBalance(cells)
	}

	p[PointGAMRevolution] = int16At(d, 30) * 1000
	p[PointGAMFuel] = int16At(d, 40) * 1000
	p[PointAltitude] = height * 1000
	p[PointClimb1] = int16At(d, 42) * 10
	p[PointClimb3] = climb3 * 1000
	p[PointGAMVoltage1] = v1 * 100
	p[PointGAMVoltage2] = v2 * 100
	p[PointGAMTemp1] = int16At(d, 26) * 1000
	p[PointGAMTemp2] = int16At(d, 28) * 1000
	return true
}

func parseEAMAnswer(p Points, d []byte, ctx *ParseContext) bool {
	voltage := int16At(d, 50)
	current := int16At(d, 48)
	capacity := int16At(d, 52)
	height := int16At(d, 46)
	climb3 := sbyte(d[56])
	v1, v2 := int16At(d, 38), int16At(d, 40)

	if !ctx.answerAirFilter(height, climb3, v1, v2) {
		return false
	}

	p[PointEAMVoltage] = voltage * 1000
	p[PointEAMCurrent] = current * 1000
	if ctx.capacityAccepted(capacity, p[PointEAMCapacity], p[PointEAMVoltage], p[PointEAMCurrent], false) {
		p[PointEAMCapacity] = capacity * 1000
	}
	p[PointEAMPower] = int(float64(p[PointEAMVoltage]) / 1000.0 * float64(p[PointEAMCurrent]))

	if voltage > 0 {
		cells := p[PointEAMCell1 : PointEAMCell1+14]
		answerCells(cells, d, 10)
		p[PointEAMBalance] = cellBalance(cells)
	}

	p[PointAltitude] = height * 1000
	p[PointClimb1] = int16At(d, 54) * 10
	p[PointClimb3] = climb3 * 1000
	p[PointEAMVoltage1] = v1 * 100
	p[PointEAMVoltage2] = v2 * 100
	p[PointEAMTemp1] = int16At(d, 42) * 1000
	p[PointEAMTemp2] = int16At(d, 44) * 1000
	p[PointEAMRevolution] = int16At(d, 58) * 1000
	return true
}
