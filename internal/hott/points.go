package hott

// Points is a fixed-point measurement vector; physical values are scaled by 1000.
type Points []int

// Channel indices shared by every layout.
const (
	PointLoss = 0

	PointRXSQ         = 1
	PointStrength     = 2
	PointVPacks       = 3
	PointTx           = 4
	PointRx           = 5
	PointVoltageRx    = 6
	PointTempRx       = 7
	PointVoltageRxMin = 8
	PointEventRx      = 9

	PointAltitude   = 10
	PointClimb1     = 11
	PointClimb3     = 12
	PointClimb10    = 13
	PointEventVario = 14

	PointLatitude  = 15
	PointLongitude = 16
	PointVelocity  = 17
	PointDistance  = 18
	PointDirection = 19
	PointTrip      = 20
	PointSats      = 21
	PointFix       = 22
	PointEventGPS  = 23

	PointGAMVoltage     = 24
	PointGAMCurrent     = 25
	PointGAMCapacity    = 26
	PointGAMPower       = 27
	PointGAMBalance     = 28
	PointGAMCell1       = 29
	PointGAMRevolution  = 35
	PointGAMFuel        = 36
	PointGAMVoltage1    = 37
	PointGAMVoltage2    = 38
	PointGAMTemp1       = 39
	PointGAMTemp2       = 40
	PointGAMSpeed       = 41
	PointGAMLowestCell  = 42
	PointGAMLowestCellN = 43
	PointGAMPressure    = 44
	PointEventGAM       = 45

	PointEAMVoltage    = 46
	PointEAMCurrent    = 47
	PointEAMCapacity   = 48
	PointEAMPower      = 49
	PointEAMBalance    = 50
	PointEAMCell1      = 51
	PointEAMVoltage1   = 65
	PointEAMVoltage2   = 66
	PointEAMTemp1      = 67
	PointEAMTemp2      = 68
	PointEAMRevolution = 69
	PointEAMMotorTime  = 70
	PointEAMSpeed      = 71
	PointEventEAM      = 72

	PointChannel1  = 73
	PointPowerOff  = 89
	PointBattLow   = 90
	PointReset     = 91
	PointChWarning = 92

	escBasePlain   = 73
	escBaseChannel = 93
)

// ESC channel offsets relative to the layout's ESC base.
const (
	ESCVoltage = iota
	ESCCurrent
	ESCCapacity
	ESCPower
	ESCRevolution
	ESCTempFet
	ESCTempMotor
	ESCVoltageMin
	ESCCurrentMax
	ESCRevolutionMax
	ESCTempFetMax
	ESCTempMotorMax
	ESCEvent

	escChannels
)

// Layout describes the channel arrangement of a decode session.
type Layout struct {
	Channels bool
}

// Size is the number of points in a vector of this layout.
func (l Layout) Size() int {
	return l.ESCBase() + escChannels
}

// ESCBase is the first ESC channel.
func (l Layout) ESCBase() int {
	if l.Channels {
		return escBaseChannel
	}
	return escBasePlain
}

// NewPoints allocates a zeroed vector.
func (l Layout) NewPoints() Points {
	return make(Points, l.Size())
}

// Range returns the half-open channel range a sensor owns, excluding the
// shared altitude channels.
func (l Layout) Range(s SensorID) (from, to int) {
	switch s {
	case SensorReceiver:
		return PointRXSQ, PointEventRx + 1
	case SensorVario:
		return PointAltitude, PointEventVario + 1
	case SensorGPS:
		return PointLatitude, PointEventGPS + 1
	case SensorGAM:
		return PointGAMVoltage, PointEventGAM + 1
	case SensorEAM:
		return PointEAMVoltage, PointEventEAM + 1
	case SensorESC:
		return l.ESCBase(), l.ESCBase() + escChannels
	case SensorChannel:
		if l.Channels {
			return PointChannel1, PointChWarning + 1
		}
	}
	return 0, 0
}

// Clone returns a copy of the vector.
func (p Points) Clone() Points {
	c := make(Points, len(p))
	copy(c, p)
	return c
}

// copyRange copies src[from:to] into p.
func (p Points) copyRange(src Points, from, to int) {
	copy(p[from:to], src[from:to])
}
