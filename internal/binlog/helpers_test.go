package binlog

import (
	"bytes"
	"encoding/binary"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// receiverBlock builds a 64-byte receiver block with good link margins.
func receiverBlock(voltage byte) []byte {
	b := make([]byte, hott.BlockSize)
	b[3] = 40
	b[4] = 45
	b[7] = 0x80
	b[35] = voltage
	b[36] = 45
	b[38] = 100
	b[39] = 48
	binary.LittleEndian.PutUint16(b[40:], 1)
	return b
}

// receiverFile builds n receiver blocks whose voltage is produced by fn.
func receiverFile(n int, fn func(i int) byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		buf.Write(receiverBlock(fn(i)))
	}
	return buf.Bytes()
}

func header(magic string) []byte {
	h := make([]byte, HeaderSize)
	copy(h, magic)
	return h
}

// sdLog wraps 64-byte blocks into an SD log container, numbering them.
func sdLog(blocks []byte) []byte {
	var buf bytes.Buffer
	buf.Write(header(sdMagic))
	for i := 0; i*hott.BlockSize < len(blocks); i++ {
		b := bytes.Clone(blocks[i*hott.BlockSize : (i+1)*hott.BlockSize])
		b[0] = byte(i + 1)
		buf.Write(b)
	}
	buf.Write(make([]byte, FooterSize))
	return buf.Bytes()
}

// xBlock builds an X block for a slot with the given counter.
func xBlock(counter, slot, sensor byte) []byte {
	b := make([]byte, XBlockSize)
	b[0] = counter
	b[1] = 7
	b[3] = 40
	b[4] = 45
	b[6] = slot
	b[7] = sensor
	return b
}

// xLog wraps X blocks and a footer into a container.
func xLog(blocks [][]byte, footer []byte) []byte {
	var buf bytes.Buffer
	buf.Write(header(xMagic))
	for _, b := range blocks {
		buf.Write(b)
	}
	if footer == nil {
		footer = make([]byte, FooterSize)
	}
	buf.Write(footer)
	return buf.Bytes()
}

func putU16(b []byte, i int, v int) {
	binary.LittleEndian.PutUint16(b[i:], uint16(v))
}
