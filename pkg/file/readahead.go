package file

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// DefaultReadAheadSize is the size of one ranged request issued by ReadAhead
const DefaultReadAheadSize = 8 * 1024 * 1024

// ReadAhead buffers an InputFile so that small reads are served from one
// ranged request per window. Seeking within the buffered window keeps the
// buffer, any other seek drops it.
type ReadAhead struct {
	in   *InputFile
	size int64
	buf  []byte
	off  int
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewReadAhead wraps in, a size <= 0 selects DefaultReadAheadSize
func NewReadAhead(in *InputFile, size int64) *ReadAhead {
	if size <= 0 {
		size = DefaultReadAheadSize
	}
	return &ReadAhead{
		in:   in,
		size: size,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (r *ReadAhead) ModTime() time.Time {
	return r.in.ModTime()
}

// Read implements io.Reader
func (r *ReadAhead) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.off >= len(r.buf) {
		data, err := r.in.ReadN(r.size)
		if err != nil {
			return 0, err
		}
		if len(data) == 0 {
			return 0, io.EOF
		}
		r.buf, r.off = data, 0
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	return n, nil
}

// Seek implements io.Seeker
func (r *ReadAhead) Seek(offset int64, whence int) (int64, error) {
	end, err := r.in.Tell()
	if err != nil {
		return 0, err
	}
	start := end - int64(len(r.buf))

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = start + int64(r.off) + offset
	case io.SeekEnd:
		size, err := r.in.Size()
		if err != nil {
			return 0, err
		}
		target = size + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}

	if len(r.buf) > 0 && target >= start && target <= end {
		r.off = int(target - start)
		return target, nil
	}
	pos, err := r.in.Seek(target, io.SeekStart)
	if err != nil {
		return 0, err
	}
	r.buf, r.off = nil, 0
	return pos, nil
}

// Close closes the underlying file
func (r *ReadAhead) Close() error {
	r.buf, r.off = nil, 0
	return r.in.Close()
}
