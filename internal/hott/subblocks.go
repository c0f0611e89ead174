package hott

import "fmt"

// FrameState is the reassembly state of one sensor.
type FrameState int

const (
	StateEmpty FrameState = iota
	StateAccumulating
	StateReady
	StateMigrated
)

func (s FrameState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateReady:
		return "ready"
	case StateMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// SubBlockSet is the arena of sub-block payloads of one sensor frame,
// addressed by sub-block index.
type SubBlockSet struct {
	sensor SensorID
	bufs   [MaxSubBlocks][PayloadSize]byte
	filled uint8
	state  FrameState
}

func newSubBlockSet(s SensorID) *SubBlockSet {
	return &SubBlockSet{sensor: s}
}

// Block returns the payload stored at index i.
func (b *SubBlockSet) Block(i int) []byte {
	return b.bufs[i][:]
}

// State returns the reassembly state.
func (b *SubBlockSet) State() FrameState {
	return b.state
}

// Count is the number of distinct sub-blocks stored.
func (b *SubBlockSet) Count() int {
	n := 0
	for f := b.filled; f != 0; f &= f - 1 {
		n++
	}
	return n
}

// Put stores a sub-payload. A frame already migrated starts over, so a sensor
// cannot migrate again until a complete new frame has arrived.
func (b *SubBlockSet) Put(index int, payload []byte) {
	if index < 0 || index >= MaxSubBlocks {
		return
	}
	if b.state == StateMigrated || b.state == StateEmpty {
		b.filled = 0
	}
	copy(b.bufs[index][:], payload)
	b.filled |= 1 << index

	b.state = StateAccumulating
	if b.complete() {
		b.state = StateReady
	}
}

func (b *SubBlockSet) complete() bool {
	for _, i := range b.sensor.SubBlocks() {
		if b.filled&(1<<i) == 0 {
			return false
		}
	}
	return true
}

// markMigrated logically clears the arena after its frame was consumed.
func (b *SubBlockSet) markMigrated() {
	b.filled = 0
	b.state = StateMigrated
}

// Reset returns the arena to its initial state.
func (b *SubBlockSet) Reset() {
	b.filled = 0
	b.state = StateEmpty
}
