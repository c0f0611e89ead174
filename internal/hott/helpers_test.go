package hott

import "encoding/binary"

// block builds a telemetry block for the given sensor id byte and sub-block
// index with good link margins.
func block(code byte, index int, payload []byte) []byte {
	b := make([]byte, BlockSize)
	b[3] = 40
	b[4] = 45
	b[7] = code
	b[33] = byte(index)
	copy(b[payloadOffset:], payload)
	return b
}

// idleBlock builds a block the remote did not answer.
func idleBlock() []byte {
	return make([]byte, BlockSize)
}

// receiverPayload fills the receiver fields of sub-block 0.
func receiverPayload(voltage, temperature, rxsq, vmin byte, vpacks int16) []byte {
	p := make([]byte, PayloadSize)
	p[1] = voltage
	p[2] = temperature
	p[4] = rxsq
	p[5] = vmin
	binary.LittleEndian.PutUint16(p[6:], uint16(vpacks))
	return p
}

func putU16(p []byte, i int, v int) {
	binary.LittleEndian.PutUint16(p[i:], uint16(v))
}

// setBlocks stores payloads into a sub-block arena of the sensor.
func setBlocks(s SensorID, payloads map[int][]byte) *SubBlockSet {
	b := newSubBlockSet(s)
	for i, p := range payloads {
		b.Put(i, p)
	}
	return b
}

func payload() []byte {
	return make([]byte, PayloadSize)
}

// varioPayloads returns sub-blocks 1 and 2 of a vario frame.
func varioPayloads(height, climb1, climb3, climb10 int, event byte) (b1, b2 []byte) {
	b1, b2 = payload(), payload()
	b1[1] = event
	putU16(b1, 2, height+500)
	putU16(b1, 8, climb1+30000)
	putU16(b2, 0, climb3+30000)
	putU16(b2, 2, climb10+30000)
	return b1, b2
}

// gpsPayloads returns sub-blocks 1 to 3 of a GPS frame with the given
// velocity in km/h and coordinates as degree*10000 + minute fraction parts.
func gpsPayloads(velocity, latDeg, latMin, lonDeg, lonMin int) (b1, b2, b3 []byte) {
	b1, b2, b3 = payload(), payload(), payload()
	b1[1] = 0x02
	b1[3] = 90
	putU16(b1, 4, velocity)
	putU16(b1, 7, latDeg)
	b1[9] = byte(latMin)
	b2[0] = byte(latMin >> 8)
	putU16(b2, 2, lonDeg)
	putU16(b2, 4, lonMin)
	putU16(b2, 6, 120)
	putU16(b2, 8, 500+35)
	putU16(b3, 0, 30000+120)
	b3[2] = 121
	b3[3] = 9
	b3[4] = '3'
	return b1, b2, b3
}
