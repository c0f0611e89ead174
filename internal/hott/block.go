// Package hott decodes the 64-byte telemetry blocks of a Graupner HoTT
// receiver link into fixed-point point vectors.
package hott

import (
	"errors"
	"fmt"
)

const (
	// BlockSize is the size of a single telemetry block of a receiver log or
	// of the live link.
	BlockSize = 64

	// PayloadSize is the size of the sensor sub-payload carried by one block.
	PayloadSize = 30

	// MaxSubBlocks is the largest number of sub-blocks a sensor frame spans.
	MaxSubBlocks = 5

	// TimeStepMs is the time advanced per consumed block.
	TimeStepMs = 10

	payloadOffset = 34
)

var (
	ErrInvalidBlockSize = errors.New("invalid block size")
	ErrFileTooShort     = errors.New("file too short to detect sensors")
)

// Generation is the protocol generation of a sensor bus, named by its baud rate.
type Generation int

const (
	Gen19200 Generation = iota
	Gen115200
)

func (g Generation) String() string {
	switch g {
	case Gen19200:
		return "19200"
	case Gen115200:
		return "115200"
	default:
		return fmt.Sprintf("Generation(%d)", int(g))
	}
}

// SensorID identifies a logical sensor module.
type SensorID uint8

const (
	SensorReceiver SensorID = iota
	SensorVario
	SensorGPS
	SensorGAM
	SensorEAM
	SensorESC
	SensorChannel

	numSensors
)

// Sensors lists every sensor in declaration order.
var Sensors = []SensorID{SensorReceiver, SensorVario, SensorGPS, SensorGAM, SensorEAM, SensorESC, SensorChannel}

// AuxiliarySensors are the sensors answering in round-robin after the receiver.
var AuxiliarySensors = []SensorID{SensorVario, SensorGPS, SensorGAM, SensorEAM, SensorESC}

// migrationOrder is the order in which sensors completing in the same step
// are merged; later merges overwrite the shared altitude channels.
var migrationOrder = []SensorID{SensorEAM, SensorGAM, SensorGPS, SensorVario, SensorESC}

type sensorInfo struct {
	name      string
	codes     [2]byte // indexed by Generation, zero when the sensor has no bus id
	subBlocks []int
	minRun    int
}

var sensorTable = [numSensors]sensorInfo{
	SensorReceiver: {name: "RECEIVER", codes: [2]byte{0x80, 0x34}, subBlocks: []int{0}, minRun: 1},
	SensorVario:    {name: "VARIO", codes: [2]byte{0x89, 0x37}, subBlocks: []int{1, 2}, minRun: 3},
	SensorGPS:      {name: "GPS", codes: [2]byte{0x8A, 0x38}, subBlocks: []int{1, 2, 3}, minRun: 4},
	SensorGAM:      {name: "GAM", codes: [2]byte{0x8D, 0x35}, subBlocks: []int{1, 2, 3, 4}, minRun: 5},
	SensorEAM:      {name: "EAM", codes: [2]byte{0x8E, 0x36}, subBlocks: []int{1, 2, 3, 4}, minRun: 5},
	SensorESC:      {name: "ESC", codes: [2]byte{0x8C, 0x39}, subBlocks: []int{1, 2, 3}, minRun: 4},
	SensorChannel:  {name: "CHANNEL", subBlocks: []int{0}, minRun: 1},
}

func (s SensorID) String() string {
	if s < numSensors {
		return sensorTable[s].name
	}
	return fmt.Sprintf("SensorID(%d)", uint8(s))
}

// Code returns the bus id byte of the sensor for the given generation.
func (s SensorID) Code(g Generation) byte {
	if s >= numSensors || (g != Gen19200 && g != Gen115200) {
		return 0
	}
	return sensorTable[s].codes[g]
}

// SubBlocks returns the sub-block indices carrying data the sensor parser reads.
func (s SensorID) SubBlocks() []int {
	if s >= numSensors {
		return nil
	}
	return sensorTable[s].subBlocks
}

// MinRun is the number of consecutive blocks a sensor must occupy before a
// switch to another sensor migrates its frame.
func (s SensorID) MinRun() int {
	if s >= numSensors {
		return 0
	}
	return sensorTable[s].minRun
}

// IsAuxiliary reports whether the sensor answers in the round-robin rotation.
func (s SensorID) IsAuxiliary() bool {
	return s >= SensorVario && s <= SensorESC
}

// SensorFromCode maps a bus id byte of either generation to its sensor.
func SensorFromCode(code byte) (SensorID, Generation, bool) {
	for _, s := range Sensors {
		for g, c := range sensorTable[s].codes {
			if c != 0 && c == code {
				return s, Generation(g), true
			}
		}
	}
	return 0, 0, false
}

// ParseSensor resolves a sensor by its name, case-sensitive upper case.
func ParseSensor(name string) (SensorID, error) {
	for _, s := range Sensors {
		if sensorTable[s].name == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}
