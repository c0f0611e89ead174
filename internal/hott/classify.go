package hott

import "fmt"

// FrameKind classifies a raw block.
type FrameKind int

const (
	// FrameIdle is a block the remote did not answer, a lost package.
	FrameIdle FrameKind = iota
	// FrameTelemetry is a valid telemetry block.
	FrameTelemetry
	// FrameText is a telemetry block carrying a text-mode screen.
	FrameText
)

func (k FrameKind) String() string {
	switch k {
	case FrameIdle:
		return "idle"
	case FrameTelemetry:
		return "telemetry"
	case FrameText:
		return "text"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Frame is a classified 64-byte block. Payload and Raw alias the input buffer.
type Frame struct {
	Kind       FrameKind
	Sensor     SensorID
	Generation Generation
	// KnownSensor is false when the sensor id byte matches no sensor.
	KnownSensor bool
	Index       int
	Tx, Rx      byte
	Payload     []byte
	Raw         []byte
}

// Classify inspects a raw block. A block is telemetry when its sub-block index
// lies in 0..4 and both link margin bytes are non-zero; everything else is idle.
func Classify(raw []byte) (Frame, error) {
	if len(raw) != BlockSize {
		return Frame{}, fmt.Errorf("classify: %w: %d", ErrInvalidBlockSize, len(raw))
	}

	f := Frame{Raw: raw, Tx: raw[3], Rx: raw[4], Index: int(raw[33])}
	if f.Index > MaxSubBlocks-1 || f.Tx == 0 || f.Rx == 0 {
		f.Kind = FrameIdle
		return f, nil
	}

	f.Kind = FrameTelemetry
	if raw[6]&0x01 == 0x01 {
		f.Kind = FrameText
	}
	f.Sensor, f.Generation, f.KnownSensor = SensorFromCode(raw[7])
	f.Payload = raw[payloadOffset : payloadOffset+PayloadSize]
	return f, nil
}

// HasReceiverData reports whether the block carries receiver values. They live
// in sub-block 0 and are absent while the receiver reports an inactive VPacks.
func (f Frame) HasReceiverData() bool {
	return f.Kind != FrameIdle && f.Index == 0 && f.Raw[38]&0x80 != 0x80 && int16At(f.Raw, 40) >= 0
}
