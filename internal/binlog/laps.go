package binlog

import (
	"fmt"
	"time"
)

const (
	maxLaps       = 99
	lapTimeOffset = 19
)

// LapTime is a lap duration as the transmitter records it.
type LapTime struct {
	Minutes    int `json:"minutes"`
	Seconds    int `json:"seconds"`
	Hundredths int `json:"hundredths"`
}

// Duration converts the lap time.
func (l LapTime) Duration() time.Duration {
	return time.Duration(l.Minutes)*time.Minute +
		time.Duration(l.Seconds)*time.Second +
		time.Duration(l.Hundredths)*10*time.Millisecond
}

// IsZero reports whether the lap time is empty.
func (l LapTime) IsZero() bool {
	return l.Minutes == 0 && l.Seconds == 0 && l.Hundredths == 0
}

func (l LapTime) String() string {
	return fmt.Sprintf("%dm %02ds %02d", l.Minutes, l.Seconds, l.Hundredths)
}

// Laps holds the lap records of an X container footer.
type Laps struct {
	// Count is the number of laps the transmitter counted.
	Count   int       `json:"count"`
	Times   []LapTime `json:"times"`
	Best    LapTime   `json:"best"`
	Average LapTime   `json:"average"`
}

// ParseLaps reads lap records from a footer. The footer stores minutes,
// seconds and hundredths in three arrays of 99 entries, followed by best and
// average lap and, in its last byte, the lap count. Lap times stop at the
// first empty entry.
func ParseLaps(footer []byte) (Laps, error) {
	if len(footer) != FooterSize {
		return Laps{}, fmt.Errorf("laps: footer is %d bytes, expected %d", len(footer), FooterSize)
	}

	n := len(footer)
	laps := Laps{Count: int(footer[n-1])}
	if laps.Count == 0 {
		return laps, nil
	}

	minutes := footer[lapTimeOffset : lapTimeOffset+maxLaps]
	seconds := footer[lapTimeOffset+maxLaps : lapTimeOffset+2*maxLaps]
	hundredths := footer[lapTimeOffset+2*maxLaps : lapTimeOffset+3*maxLaps]
	for i := 0; i < min(laps.Count, maxLaps); i++ {
		lap := LapTime{Minutes: int(minutes[i]), Seconds: int(seconds[i]), Hundredths: int(hundredths[i])}
		if lap.IsZero() {
			break
		}
		laps.Times = append(laps.Times, lap)
	}

	laps.Best = LapTime{Minutes: int(footer[n-7]), Seconds: int(footer[n-6]), Hundredths: int(footer[n-5])}
	laps.Average = LapTime{Minutes: int(footer[n-4]), Seconds: int(footer[n-3]), Hundredths: int(footer[n-2])}
	return laps, nil
}
