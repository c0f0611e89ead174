package binlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Reader iterates over fixed-size blocks of a stream.
type Reader struct {
	r     *bufio.Reader
	size  int
	buf   []byte
	index int64
	err   error
}

// NewReader returns a block reader over r.
func NewReader(r io.Reader, blockSize int) *Reader {
	return &Reader{
		r:     bufio.NewReaderSize(r, blockSize*256),
		size:  blockSize,
		buf:   make([]byte, blockSize),
		index: -1,
	}
}

// Next advances to the next block. It returns false at the end of the stream,
// when ctx is done, or on a read error.
func (r *Reader) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}

	_, err := io.ReadFull(r.r, r.buf)
	switch {
	case err == nil:
		r.index++
		return true
	case errors.Is(err, io.EOF):
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.err = fmt.Errorf("block %d is truncated: %w", r.index+1, err)
		return false
	default:
		r.err = fmt.Errorf("reading block %d: %w", r.index+1, err)
		return false
	}
}

// Current returns the current block. The slice is reused by the next call to
// Next.
func (r *Reader) Current() []byte {
	return r.buf
}

// Index is the zero-based position of the current block.
func (r *Reader) Index() int64 {
	return r.index
}

// Error returns the error that stopped iteration, if any.
func (r *Reader) Error() error {
	return r.err
}
