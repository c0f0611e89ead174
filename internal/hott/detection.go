package hott

import (
	"fmt"
	"strings"
)

// Plan is the decode plan chosen from the detected sensors.
type Plan int

const (
	// PlanReceiverOnly samples the receiver at one tenth of the block rate.
	PlanReceiverOnly Plan = iota
	// PlanSingle migrates the only auxiliary sensor as soon as its frame completes.
	PlanSingle
	// PlanMultiple migrates a sensor when the rotation switches away from it.
	PlanMultiple
)

func (p Plan) String() string {
	switch p {
	case PlanReceiverOnly:
		return "receiver-only"
	case PlanSingle:
		return "single"
	case PlanMultiple:
		return "multiple"
	default:
		return fmt.Sprintf("Plan(%d)", int(p))
	}
}

// Detection records which sensors are physically attached. It is a value and
// does not change once a session starts.
type Detection struct {
	present [numSensors]bool
}

// NewDetection returns a detection with the given sensors present. The
// receiver is implied by any auxiliary sensor.
func NewDetection(sensors ...SensorID) Detection {
	var d Detection
	for _, s := range sensors {
		if s < numSensors {
			d.present[s] = true
			if s.IsAuxiliary() {
				d.present[SensorReceiver] = true
			}
		}
	}
	return d
}

// Has reports whether the sensor is present.
func (d Detection) Has(s SensorID) bool {
	return s < numSensors && d.present[s]
}

// Sensors lists the present sensors in declaration order.
func (d Detection) Sensors() []SensorID {
	var out []SensorID
	for _, s := range Sensors {
		if d.present[s] {
			out = append(out, s)
		}
	}
	return out
}

// AuxiliaryCount is the number of present round-robin sensors.
func (d Detection) AuxiliaryCount() int {
	n := 0
	for _, s := range AuxiliarySensors {
		if d.present[s] {
			n++
		}
	}
	return n
}

// Plan selects the decode plan for the detected sensors.
func (d Detection) Plan() Plan {
	switch n := d.AuxiliaryCount(); {
	case n == 0:
		return PlanReceiverOnly
	case n == 1:
		return PlanSingle
	default:
		return PlanMultiple
	}
}

// String renders the detection as a sensor signature, e.g. "[RECEIVER,VARIO,GPS]".
func (d Detection) String() string {
	names := make([]string, 0, numSensors)
	for _, s := range d.Sensors() {
		names = append(names, s.String())
	}
	return "[" + strings.Join(names, ",") + "]"
}

// ParseDetection parses a sensor signature produced by Detection.String.
func ParseDetection(sig string) (Detection, error) {
	sig = strings.TrimSpace(sig)
	if !strings.HasPrefix(sig, "[") || !strings.HasSuffix(sig, "]") {
		return Detection{}, fmt.Errorf("invalid sensor signature %q", sig)
	}
	var d Detection
	body := strings.TrimSuffix(strings.TrimPrefix(sig, "["), "]")
	if body == "" {
		return d, nil
	}
	for _, name := range strings.Split(body, ",") {
		s, err := ParseSensor(strings.TrimSpace(name))
		if err != nil {
			return Detection{}, fmt.Errorf("invalid sensor signature %q: %w", sig, err)
		}
		d.present[s] = true
	}
	return d, nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Detection) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Detection) UnmarshalText(text []byte) error {
	parsed, err := ParseDetection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
