package hott

// int16At reads a little-endian signed 16-bit value at b[i:i+2].
func int16At(b []byte, i int) int {
	return int(int16(uint16(b[i]) | uint16(b[i+1])<<8))
}

// int16Split reads a little-endian signed 16-bit value whose bytes live in
// two adjacent sub-blocks.
func int16Split(lo, hi byte) int {
	return int(int16(uint16(lo) | uint16(hi)<<8))
}

// uint16At reads a little-endian unsigned 16-bit value at b[i:i+2].
func uint16At(b []byte, i int) int {
	return int(uint16(b[i]) | uint16(b[i+1])<<8)
}

// sbyte interprets a raw byte as a signed value.
func sbyte(b byte) int {
	return int(int8(b))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// strengthTable maps Rx dBm, starting at 40 dBm, to signal strength percent.
var strengthTable = []int{
	95, 95, 95, 95, 95, 95, 95, 95, 95, 95,
	90, 90, 90, 90, 90, 90, 90, 90, 90, 90,
	85, 85, 85, 85, 85, 80, 75, 70, 65, 60,
	55, 50, 45, 40, 35, 30, 30, 25, 25, 20,
	20, 20, 15, 15, 10, 10, 5, 5, 5, 5,
	5, 5, 0, 0, 0, 0, 0, 0, 0,
}

// Strength converts a receiver dBm magnitude into a signal strength percent.
func Strength(dbm int) int {
	if dbm < 40 {
		return 100
	}
	if i := dbm - 40; i < len(strengthTable) {
		return strengthTable[i]
	}
	return 0
}
