// Package binlog reads recorded HoTT telemetry files: plain .bin block dumps,
// Graupner SD log containers (64-byte blocks or the 23-byte X variant) and,
// for metadata only, PC .log recordings.
package binlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// Format identifies a recording container.
type Format int

const (
	FormatBin Format = iota
	FormatSDLog
	FormatX
	FormatPCLog
)

func (f Format) String() string {
	switch f {
	case FormatBin:
		return "bin"
	case FormatSDLog:
		return "sdlog"
	case FormatX:
		return "x"
	case FormatPCLog:
		return "pclog"
	default:
		return "unknown"
	}
}

const (
	// HeaderSize and FooterSize frame the blocks of an SD log container.
	HeaderSize = 27
	FooterSize = 323

	// XBlockSize is the block size of the X variant.
	XBlockSize = 23
	// XTimeStepMs is the time step of one X block.
	XTimeStepMs = 3

	sdMagic    = "GRAUPNER SD LOG"
	xMagic     = "GRAUPNER SD LOG8"
	pcLogMagic = "FILE TAG IDVER"

	// pcLogRecordSize is the record length PC .log files are counted in.
	pcLogRecordSize = 78
	pcHeaderProbe   = 64
	sdSequenceCheck = 4
)

var (
	// ErrNotSDLog is returned when a header does not carry the SD log magic.
	ErrNotSDLog = errors.New("not a Graupner SD log")
	// ErrCorruptSDLog is returned when an SD log container is inconsistent.
	ErrCorruptSDLog = errors.New("corrupt SD log")
	// ErrUnsupportedFormat is returned when blocks of a recognised container
	// cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported log format")
)

// Info describes the block region of a container.
type Info struct {
	Format     Format
	Size       int64
	BlockSize  int
	Blocks     int64
	DataOffset int64
}

// TimeStepMs is the time one block represents.
func (i Info) TimeStepMs() int64 {
	if i.Format == FormatX {
		return XTimeStepMs
	}
	return hott.TimeStepMs
}

// File is an opened recording.
type File struct {
	Info
	Path    string
	ModTime time.Time

	// Header holds the key/value lines of a PC .log header.
	Header map[string]string

	r      io.ReaderAt
	closer io.Closer
	footer []byte
}

// Open opens and identifies a recording on disk.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	st, err := fh.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("stat %s: %w", path, err), fh.Close())
	}

	f, err := NewFile(fh, st.Size())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("identifying %s: %w", path, err), fh.Close())
	}
	f.Path = path
	f.ModTime = st.ModTime()
	f.closer = fh
	return f, nil
}

// NewFile identifies a recording held by r.
func NewFile(r io.ReaderAt, size int64) (*File, error) {
	f := &File{r: r}
	info, err := f.identify(size)
	if err != nil {
		return nil, err
	}
	f.Info = info
	return f, nil
}

// Close releases the underlying file, if any.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// BlockReader returns a reader positioned at the first block.
func (f *File) BlockReader() (*Reader, error) {
	if f.Format == FormatPCLog {
		return nil, fmt.Errorf("reading blocks: %w: %s", ErrUnsupportedFormat, f.Format)
	}
	return NewReader(f.section(), f.BlockSize), nil
}

// Laps parses the lap records of an X container footer.
func (f *File) Laps() (Laps, error) {
	if f.Format != FormatX {
		return Laps{}, fmt.Errorf("laps: %w: %s container has no lap records", ErrUnsupportedFormat, f.Format)
	}
	return ParseLaps(f.footer)
}

// DetectedSensors returns the sensor list a PC .log header declares.
func (f *File) DetectedSensors() (hott.Detection, bool) {
	v, ok := f.Header["DETECTED SENSOR"]
	if !ok {
		return hott.Detection{}, false
	}
	if !strings.HasPrefix(v, "[") {
		v = "[" + v + "]"
	}
	d, err := hott.ParseDetection(strings.ReplaceAll(v, " ", ""))
	if err != nil {
		return hott.Detection{}, false
	}
	return d, true
}

func (f *File) section() *io.SectionReader {
	return io.NewSectionReader(f.r, f.DataOffset, f.Blocks*int64(f.BlockSize))
}

func (f *File) identify(size int64) (Info, error) {
	head := make([]byte, min(size, pcHeaderProbe))
	if _, err := f.r.ReadAt(head, 0); err != nil && !errors.Is(err, io.EOF) {
		return Info{}, fmt.Errorf("reading header: %w", err)
	}

	if bytes.HasPrefix(head, []byte(pcLogMagic)) {
		return f.identifyPCLog(size)
	}

	format, err := sdFormat(head)
	switch {
	case errors.Is(err, ErrNotSDLog):
		if size < hott.BlockSize {
			return Info{}, fmt.Errorf("%w: %d bytes", hott.ErrFileTooShort, size)
		}
		return Info{Format: FormatBin, Size: size, BlockSize: hott.BlockSize, Blocks: size / hott.BlockSize}, nil
	case err != nil:
		return Info{}, err
	}

	payload := size - HeaderSize - FooterSize
	if payload < 0 {
		return Info{}, fmt.Errorf("%w: %d bytes cannot hold header and footer", ErrCorruptSDLog, size)
	}

	f.footer = make([]byte, FooterSize)
	if _, err := f.r.ReadAt(f.footer, HeaderSize+payload); err != nil {
		return Info{}, fmt.Errorf("reading footer: %w", err)
	}

	info := Info{Format: format, Size: size, DataOffset: HeaderSize}
	if format == FormatX {
		info.BlockSize = XBlockSize
		info.Blocks = payload / XBlockSize
		return info, nil
	}

	info.BlockSize = hott.BlockSize
	if payload%hott.BlockSize != 0 {
		return Info{}, fmt.Errorf("%w: payload of %d bytes is not a multiple of %d", ErrCorruptSDLog, payload, hott.BlockSize)
	}
	info.Blocks = payload / hott.BlockSize
	if err := f.checkSequence(info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// sdFormat tells the SD log variants apart by their header magic.
func sdFormat(head []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(head, []byte(xMagic)):
		return FormatX, nil
	case bytes.HasPrefix(head, []byte(sdMagic)):
		return FormatSDLog, nil
	default:
		return 0, ErrNotSDLog
	}
}

// checkSequence verifies the leading blocks of a 64-byte SD log carry the
// sequence bytes 1, 2, 3, 4.
func (f *File) checkSequence(info Info) error {
	buf := make([]byte, 1)
	for i := int64(0); i < min(info.Blocks, sdSequenceCheck); i++ {
		if _, err := f.r.ReadAt(buf, info.DataOffset+i*hott.BlockSize); err != nil {
			return fmt.Errorf("reading block %d: %w", i, err)
		}
		if int64(buf[0]) != i+1 {
			return fmt.Errorf("%w: block %d has sequence byte %d", ErrCorruptSDLog, i, buf[0])
		}
	}
	return nil
}

// identifyPCLog reads the text header of a PC .log recording. Its blocks are
// not decoded, but the header carries the detected sensors and start time.
func (f *File) identifyPCLog(size int64) (Info, error) {
	f.Header = make(map[string]string)

	sc := bufio.NewScanner(io.NewSectionReader(f.r, 0, size))
	var read int64
	offset := int64(-1)
	for sc.Scan() {
		line := sc.Text()
		read += int64(len(line)) + 1
		if offset >= 0 && read >= offset {
			break
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok || strings.Index(line, ":") <= 5 {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if value == "" {
			continue
		}
		f.Header[key] = value

		if key == "LOG DATA OFFSET" {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return Info{}, fmt.Errorf("parsing data offset %q: %w", value, err)
			}
			offset = n
		}
	}
	if err := sc.Err(); err != nil {
		return Info{}, fmt.Errorf("reading log header: %w", err)
	}
	if offset < 0 || offset > size {
		return Info{}, fmt.Errorf("%w: log header has no valid data offset", ErrUnsupportedFormat)
	}

	return Info{
		Format:     FormatPCLog,
		Size:       size,
		BlockSize:  pcLogRecordSize,
		Blocks:     (size - offset) / pcLogRecordSize,
		DataOffset: offset,
	}, nil
}
