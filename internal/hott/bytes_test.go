package hott

import "testing"

func TestInt16Readers(t *testing.T) {
	b := []byte{0x34, 0x12, 0xFE, 0xFF}
	if got := int16At(b, 0); got != 0x1234 {
		t.Errorf("Expected 0x1234, got %#x", got)
	}
	if got := int16At(b, 2); got != -2 {
		t.Errorf("Expected -2, got %d", got)
	}
	if got := uint16At(b, 2); got != 0xFFFE {
		t.Errorf("Expected 0xFFFE, got %#x", got)
	}
	if got := int16Split(0x10, 0x27); got != 10000 {
		t.Errorf("Expected 10000, got %d", got)
	}
	if got := sbyte(0xEC); got != -20 {
		t.Errorf("Expected -20, got %d", got)
	}
}

func TestStrength(t *testing.T) {
	tests := []struct {
		dbm  int
		want int
	}{
		{dbm: 0, want: 100},
		{dbm: 39, want: 100},
		{dbm: 40, want: 95},
		{dbm: 49, want: 95},
		{dbm: 50, want: 90},
		{dbm: 60, want: 85},
		{dbm: 65, want: 80},
		{dbm: 91, want: 0},
		{dbm: 98, want: 0},
		{dbm: 200, want: 0},
	}

	for _, tt := range tests {
		if got := Strength(tt.dbm); got != tt.want {
			t.Errorf("Strength(%d): expected %d, got %d", tt.dbm, tt.want, got)
		}
	}
}
