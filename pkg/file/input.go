package file

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/foomo/objectstore/pkg/metrics"
	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type inputState int

const (
	inputOpen inputState = iota
	inputClosed
)

// InputFile is a seekable read-only view on a single object. The content
// length is taken once on open; the object is assumed to be immutable
// while the file is open.
type InputFile struct {
	l             *zap.Logger
	mu            sync.Mutex
	ctx           context.Context
	store         objectstore.Store
	location      path.Path
	contentLength int64
	modTime       time.Time
	position      int64
	state         inputState
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// OpenInputFile looks up the object before returning, so a missing object
// fails here and not on the first read. ctx is used for all backend calls
// of the file.
func OpenInputFile(ctx context.Context, l *zap.Logger, store objectstore.Store, location path.Path) (*InputFile, error) {
	meta, err := store.Head(ctx, location)
	if err != nil {
		return nil, err
	}

	inst := &InputFile{
		l:             l.Named("input").With(zap.String("path", location.String())),
		ctx:           ctx,
		store:         store,
		location:      location,
		contentLength: meta.Size,
		modTime:       meta.LastModified,
	}
	metrics.OpenHandlesGauge.WithLabelValues("input").Inc()
	inst.l.Debug("opened input file", zap.Int64("size", meta.Size))
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (f *InputFile) Path() path.Path {
	return f.location
}

// ModTime returns the modification time taken on open
func (f *InputFile) ModTime() time.Time {
	return f.modTime
}

func (f *InputFile) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == inputClosed
}

// Read implements io.Reader
func (f *InputFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.position >= f.contentLength {
		return 0, io.EOF
	}
	data, err := f.readRange(int64(len(p)))
	if err != nil {
		return 0, err
	}
	return copy(p, data), nil
}

// ReadN reads up to n bytes from the current position. An empty slice is
// returned at the end of the file without contacting the backend.
func (f *InputFile) ReadN(n int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(objectstore.ErrPositionOutOfRange, "cannot read a negative number of bytes %d", n)
	}
	return f.readRange(n)
}

// ReadAll reads from the current position to the end of the file
func (f *InputFile) ReadAll() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return nil, err
	}
	return f.readRange(f.contentLength - f.position)
}

// Seek implements io.Seeker. The resulting position must be within
// [0, size]; it is never clamped.
func (f *InputFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return 0, err
	}

	var position int64
	switch whence {
	case io.SeekStart:
		position = offset
	case io.SeekCurrent:
		position = f.position + offset
	case io.SeekEnd:
		position = f.contentLength + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}
	if err := f.checkPosition(position, "seek"); err != nil {
		return 0, err
	}
	f.position = position
	return position, nil
}

// Tell returns the current position
func (f *InputFile) Tell() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return 0, err
	}
	return f.position, nil
}

// Size returns the content length taken on open
func (f *InputFile) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return 0, err
	}
	return f.contentLength, nil
}

// Close marks the file as closed, the backend is not contacted
func (f *InputFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return err
	}
	f.state = inputClosed
	metrics.OpenHandlesGauge.WithLabelValues("input").Dec()
	f.l.Debug("closed input file")
	return nil
}

func (f *InputFile) Readable() bool { return true }
func (f *InputFile) Writable() bool { return false }
func (f *InputFile) Seekable() bool { return true }
func (f *InputFile) IsATTY() bool   { return false }

func (f *InputFile) Fileno() (uintptr, error) {
	return 0, f.notImplemented("fileno")
}

func (f *InputFile) Truncate(int64) error {
	return f.notImplemented("truncate")
}

func (f *InputFile) ReadLine() ([]byte, error) {
	return nil, f.notImplemented("readline")
}

func (f *InputFile) ReadLines() ([][]byte, error) {
	return nil, f.notImplemented("readlines")
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (f *InputFile) checkClosed() error {
	if f.state == inputClosed {
		return objectstore.ErrClosed
	}
	return nil
}

func (f *InputFile) checkPosition(position int64, action string) error {
	if position < 0 {
		return errors.Wrapf(objectstore.ErrPositionOutOfRange, "cannot %s for negative position %d", action, position)
	}
	if position > f.contentLength {
		return errors.Wrapf(objectstore.ErrPositionOutOfRange, "cannot %s past end of file %d > %d", action, position, f.contentLength)
	}
	return nil
}

// readRange serves [position, min(position+n, size)) and advances the position
func (f *InputFile) readRange(n int64) ([]byte, error) {
	n = min(n, f.contentLength-f.position)
	if n <= 0 {
		return []byte{}, nil
	}
	data, err := f.store.GetRange(f.ctx, f.location, f.position, f.position+n)
	if err != nil {
		return nil, err
	}
	f.position += int64(len(data))
	metrics.BytesReadCounter.WithLabelValues().Add(float64(len(data)))
	return data, nil
}

// notImplemented fails with ErrClosed on a closed file
func (f *InputFile) notImplemented(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkClosed(); err != nil {
		return err
	}
	return errors.Wrap(objectstore.ErrNotImplemented, op)
}
