package hott

import (
	"context"
	"errors"
	"testing"
)

// answer builds a zeroed live answer of a sensor.
func answer(sensor SensorID) []byte {
	b := make([]byte, AnswerSize(sensor))
	b[0] = sensor.Code(Gen115200)
	return b
}

func receiverAnswer(voltage, rxsq byte, temperature int) []byte {
	b := answer(SensorReceiver)
	b[4], b[5] = 45, 40
	putU16(b, 10, temperature)
	putU16(b, 12, 2)
	b[14] = 90
	b[15] = voltage
	b[17] = rxsq
	b[18] = 48
	return b
}

func varioAnswer(height, climb1, climb3, climb10 int) []byte {
	b := answer(SensorVario)
	putU16(b, 10, height)
	putU16(b, 16, climb1)
	putU16(b, 18, climb3)
	putU16(b, 20, climb10)
	return b
}

func TestAnswerSize(t *testing.T) {
	tests := []struct {
		sensor SensorID
		want   int
	}{
		{SensorReceiver, 21},
		{SensorVario, 25},
		{SensorGPS, 34},
		{SensorGAM, 49},
		{SensorEAM, 60},
		{SensorESC, 0},
		{SensorChannel, 0},
	}

	for _, tt := range tests {
		t.Run(tt.sensor.String(), func(t *testing.T) {
			if got := AnswerSize(tt.sensor); got != tt.want {
				t.Errorf("Expected %d bytes, got %d", tt.want, got)
			}
		})
	}
}

func TestParseAnswerReceiver(t *testing.T) {
	p := Layout{}.NewPoints()
	valid, err := ParseAnswer(SensorReceiver, p, receiverAnswer(52, 100, 25), newTestContext())
	if err != nil || !valid {
		t.Fatalf("Expected a valid answer, got %v %v", valid, err)
	}

	want := map[int]int{
		PointRXSQ:         100000,
		PointStrength:     90000,
		PointVPacks:       2000,
		PointTx:           -40000,
		PointRx:           -45000,
		PointVoltageRx:    52000,
		PointTempRx:       25000,
		PointVoltageRxMin: 48000,
	}
	for i, v := range want {
		if p[i] != v {
			t.Errorf("Expected point %d to be %d, got %d", i, v, p[i])
		}
	}

	// An implausible temperature leaves the values stale.
	valid, _ = ParseAnswer(SensorReceiver, p, receiverAnswer(60, 10, 150), newTestContext())
	if valid {
		t.Error("Expected the answer to be rejected")
	}
	if p[PointVoltageRx] != 52000 || p[PointRXSQ] != 100000 {
		t.Errorf("Expected stale values, got voltage %d and RXSQ %d", p[PointVoltageRx], p[PointRXSQ])
	}
}

func TestParseAnswerVario(t *testing.T) {
	p := Layout{}.NewPoints()
	valid, err := ParseAnswer(SensorVario, p, varioAnswer(250, 150, -30, 12), newTestContext())
	if err != nil || !valid {
		t.Fatalf("Expected a valid answer, got %v %v", valid, err)
	}
	want := map[int]int{
		PointAltitude: 250000,
		PointClimb1:   1500,
		PointClimb3:   -300,
		PointClimb10:  120,
	}
	for i, v := range want {
		if p[i] != v {
			t.Errorf("Expected point %d to be %d, got %d", i, v, p[i])
		}
	}

	if valid, _ := ParseAnswer(SensorVario, p, varioAnswer(6000, 0, 0, 0), newTestContext()); valid {
		t.Error("Expected a height of 6000 m to be rejected")
	}
	if p[PointAltitude] != 250000 {
		t.Errorf("Expected stale altitude 250000, got %d", p[PointAltitude])
	}
}

func TestParseAnswerGPS(t *testing.T) {
	b := answer(SensorGPS)
	putU16(b, 10, 42)   // velocity
	putU16(b, 12, 120)  // distance
	putU16(b, 14, 310)  // height
	putU16(b, 16, 48)   // latitude degrees
	putU16(b, 18, 1234) // latitude minutes
	putU16(b, 20, 11)   // longitude degrees
	putU16(b, 22, 5678) // longitude minutes
	putU16(b, 24, 180)  // direction
	b[30] = 2           // climb 3

	p := Layout{}.NewPoints()
	valid, err := ParseAnswer(SensorGPS, p, b, newTestContext())
	if err != nil || !valid {
		t.Fatalf("Expected a valid answer, got %v %v", valid, err)
	}
	want := map[int]int{
		PointVelocity:  42000,
		PointDistance:  120000,
		PointAltitude:  310000,
		PointLatitude:  481234,
		PointLongitude: 115678,
		PointDirection: 90000,
		PointClimb3:    2000,
	}
	for i, v := range want {
		if p[i] != v {
			t.Errorf("Expected point %d to be %d, got %d", i, v, p[i])
		}
	}
}

func TestParseAnswerAirModules(t *testing.T) {
	gam := answer(SensorGAM)
	putU16(gam, 10, 820) // cell 1, 4.10 V
	putU16(gam, 12, 810) // cell 2, 4.05 V
	putU16(gam, 22, 120) // voltage 1
	putU16(gam, 34, 15)  // current
	putU16(gam, 36, 120) // voltage
	putU16(gam, 38, 30)  // capacity
	putU16(gam, 32, 100) // height

	eam := answer(SensorEAM)
	putU16(eam, 10, 800)
	putU16(eam, 48, 20)
	putU16(eam, 50, 148)
	putU16(eam, 52, 5)
	putU16(eam, 58, 9000)

	tests := []struct {
		name   string
		sensor SensorID
		data   []byte
		want   map[int]int
	}{
		{
			name:   "gam",
			sensor: SensorGAM,
			data:   gam,
			want: map[int]int{
				PointGAMVoltage:   120000,
				PointGAMCurrent:   15000,
				PointGAMCapacity:  30000,
				PointGAMPower:     1800000,
				PointGAMCell1:     410000,
				PointGAMCell1 + 1: 405000,
				PointGAMBalance:   50000,
				PointGAMVoltage1:  12000,
				PointAltitude:     100000,
			},
		},
		{
			name:   "eam",
			sensor: SensorEAM,
			data:   eam,
			want: map[int]int{
				PointEAMVoltage:    148000,
				PointEAMCurrent:    20000,
				PointEAMCapacity:   5000,
				PointEAMCell1:      400000,
				PointEAMRevolution: 9000000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Layout{}.NewPoints()
			valid, err := ParseAnswer(tt.sensor, p, tt.data, newTestContext())
			if err != nil || !valid {
				t.Fatalf("Expected a valid answer, got %v %v", valid, err)
			}
			for i, v := range tt.want {
				if p[i] != v {
					t.Errorf("Expected point %d to be %d, got %d", i, v, p[i])
				}
			}
		})
	}
}

func TestParseAnswerInvalid(t *testing.T) {
	p := Layout{}.NewPoints()
	tests := []struct {
		name   string
		sensor SensorID
		data   []byte
	}{
		{name: "short", sensor: SensorVario, data: answer(SensorVario)[:20]},
		{name: "wrong code", sensor: SensorVario, data: answer(SensorGPS)},
		{name: "recorder block", sensor: SensorVario, data: block(0x37, 1, nil)},
		{name: "no answer layout", sensor: SensorESC, data: make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAnswer(tt.sensor, p, tt.data, newTestContext()); !errors.Is(err, ErrInvalidAnswer) {
				t.Errorf("Expected ErrInvalidAnswer, got %v", err)
			}
		})
	}
}

func TestProbeSignature(t *testing.T) {
	gps := answer(SensorGPS)
	gps[31] = 1

	gpsCoordinates := answer(SensorGPS)
	gpsCoordinates[16], gpsCoordinates[17], gpsCoordinates[20], gpsCoordinates[21] = 48, 1, 11, 1

	gam := answer(SensorGAM)
	putU16(gam, 36, 120)

	// Fuel alone does not mark an air module as attached.
	gamFuelOnly := answer(SensorGAM)
	putU16(gamFuelOnly, 40, 50)

	eam := answer(SensorEAM)
	putU16(eam, 50, 148)

	varioClimb := answer(SensorVario)
	varioClimb[16] = 10

	tests := []struct {
		name   string
		sensor SensorID
		data   []byte
		want   bool
	}{
		{name: "receiver", sensor: SensorReceiver, data: receiverAnswer(52, 100, 25), want: true},
		{name: "vario height 250 m", sensor: SensorVario, data: varioAnswer(250, 0, 0, 0), want: true},
		{name: "vario climb", sensor: SensorVario, data: varioClimb, want: true},
		{name: "vario zeroed", sensor: SensorVario, data: answer(SensorVario)},
		{name: "gps fix", sensor: SensorGPS, data: gps, want: true},
		{name: "gps coordinates", sensor: SensorGPS, data: gpsCoordinates, want: true},
		{name: "gps zeroed", sensor: SensorGPS, data: answer(SensorGPS)},
		{name: "gam voltage", sensor: SensorGAM, data: gam, want: true},
		{name: "gam fuel only", sensor: SensorGAM, data: gamFuelOnly},
		{name: "eam voltage", sensor: SensorEAM, data: eam, want: true},
		{name: "eam zeroed", sensor: SensorEAM, data: answer(SensorEAM)},
		{name: "short answer", sensor: SensorVario, data: varioAnswer(250, 0, 0, 0)[:12]},
		{name: "recorder block", sensor: SensorVario, data: block(0x37, 1, varioPayload(250))},
		{name: "esc", sensor: SensorESC, data: make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProbeSignature(tt.sensor, tt.data); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// varioPayload returns sub-block 1 of a vario frame reporting a height.
func varioPayload(height int) []byte {
	b1, _ := varioPayloads(height, 0, 0, 0, 0)
	return b1
}

// prober answers probes from a fixed table; missing sensors do not answer.
type prober map[SensorID][]byte

func (p prober) Probe(_ context.Context, sensor SensorID) ([]byte, error) {
	if d, ok := p[sensor]; ok {
		return d, nil
	}
	return nil, ErrNoAnswer
}

func TestDetectLive(t *testing.T) {
	p := prober{
		SensorReceiver: receiverAnswer(52, 100, 25),
		SensorVario:    varioAnswer(250, 0, 0, 0),
		SensorGPS:      answer(SensorGPS),
	}

	d, err := DetectLive(context.Background(), p, 2, nil)
	if err != nil {
		t.Fatalf("DetectLive failed: %v", err)
	}
	if d.String() != "[RECEIVER,VARIO]" {
		t.Errorf("Expected [RECEIVER,VARIO], got %s", d)
	}
	if d.Plan() != PlanSingle {
		t.Errorf("Expected single plan, got %s", d.Plan())
	}
}
