package file

import (
	"context"
	"io"
	"sync"

	"github.com/foomo/objectstore/pkg/metrics"
	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type outputState int

const (
	outputOpen outputState = iota
	// outputFinalized means the upload was completed by Flush
	outputFinalized
	outputClosed
)

// OutputStream is a write-only, append-only view on a single object backed
// by a multipart upload. The upload is terminated by exactly one call to
// complete or abort, whichever way the stream ends.
type OutputStream struct {
	l        *zap.Logger
	mu       sync.Mutex
	ctx      context.Context
	location path.Path
	upload   objectstore.MultipartUpload
	uploadID string
	position int64
	state    outputState
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// OpenOutputStream starts the multipart upload before returning. metadata is
// accepted for compatibility with file system interfaces and ignored.
func OpenOutputStream(ctx context.Context, l *zap.Logger, store objectstore.Store, location path.Path, metadata map[string]string) (*OutputStream, error) {
	uploadID := uuid.New().String()
	l = l.Named("output").With(
		zap.String("path", location.String()),
		zap.String("upload_id", uploadID),
	)
	if len(metadata) > 0 {
		l.Debug("ignoring output stream metadata", zap.Int("count", len(metadata)))
	}

	upload, err := store.PutMultipart(ctx, location)
	if err != nil {
		return nil, err
	}

	metrics.OpenHandlesGauge.WithLabelValues("output").Inc()
	l.Debug("started multipart upload")
	return &OutputStream{
		l:        l,
		ctx:      ctx,
		location: location,
		upload:   upload,
		uploadID: uploadID,
	}, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (s *OutputStream) Path() path.Path {
	return s.location
}

// UploadID identifies the upload in logs
func (s *OutputStream) UploadID() string {
	return s.uploadID
}

func (s *OutputStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == outputClosed
}

// Write uploads p as the next part. On failure the upload is aborted and
// the stream is closed.
func (s *OutputStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case outputClosed:
		return 0, objectstore.ErrClosed
	case outputFinalized:
		return 0, objectstore.ErrUploadFinalized
	}
	if len(p) == 0 {
		return 0, nil
	}

	if err := s.upload.PutPart(s.ctx, p); err != nil {
		return 0, s.abort(err)
	}
	s.position += int64(len(p))
	metrics.BytesWrittenCounter.WithLabelValues().Add(float64(len(p)))
	return len(p), nil
}

// Flush completes the upload. The stream stays open for Close but rejects
// further writes.
func (s *OutputStream) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case outputClosed:
		return objectstore.ErrClosed
	case outputFinalized:
		return nil
	}
	if err := s.complete(); err != nil {
		return err
	}
	s.state = outputFinalized
	return nil
}

// Close completes the upload unless Flush already did so. If completing
// fails the upload is aborted.
func (s *OutputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case outputClosed:
		return objectstore.ErrClosed
	case outputFinalized:
		s.markClosed()
		return nil
	}
	if err := s.complete(); err != nil {
		return err
	}
	s.markClosed()
	return nil
}

// Abort discards the upload and closes the stream. An upload that was
// already completed by Flush is kept.
func (s *OutputStream) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case outputClosed:
		return objectstore.ErrClosed
	case outputFinalized:
		s.markClosed()
		return nil
	}
	s.markClosed()
	metrics.UploadsAbortedCounter.WithLabelValues().Inc()
	if err := s.upload.Abort(s.ctx); err != nil {
		s.l.Error("failed to abort multipart upload", zap.Error(err))
		return err
	}
	s.l.Debug("aborted multipart upload")
	return nil
}

// Tell returns the number of bytes written
func (s *OutputStream) Tell() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == outputClosed {
		return 0, objectstore.ErrClosed
	}
	return s.position, nil
}

func (s *OutputStream) Read([]byte) (int, error) {
	return 0, s.notImplemented("read on output stream")
}

func (s *OutputStream) Seek(int64, int) (int64, error) {
	return 0, s.notImplemented("seek on output stream")
}

func (s *OutputStream) Size() (int64, error) {
	return 0, s.notImplemented("size on output stream")
}

func (s *OutputStream) Readable() bool { return false }
func (s *OutputStream) Writable() bool { return true }
func (s *OutputStream) Seekable() bool { return false }
func (s *OutputStream) IsATTY() bool   { return false }

func (s *OutputStream) Fileno() (uintptr, error) {
	return 0, s.notImplemented("fileno")
}

func (s *OutputStream) Truncate(int64) error {
	return s.notImplemented("truncate")
}

func (s *OutputStream) ReadLine() ([]byte, error) {
	return nil, s.notImplemented("readline")
}

func (s *OutputStream) ReadLines() ([][]byte, error) {
	return nil, s.notImplemented("readlines")
}

// ReadFrom implements io.ReaderFrom, every chunk read becomes one part
func (s *OutputStream) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, partSize)
	var total int64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			written, werr := s.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return total, nil
		} else if err != nil {
			return total, err
		}
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// partSize is the chunk size used by ReadFrom
const partSize = 5 * 1024 * 1024

// complete finishes the upload. On failure the upload is aborted and the
// stream is closed.
func (s *OutputStream) complete() error {
	if err := s.upload.Complete(s.ctx); err != nil {
		return s.abort(err)
	}
	metrics.UploadsCompletedCounter.WithLabelValues().Inc()
	s.l.Debug("completed multipart upload", zap.Int64("size", s.position))
	return nil
}

// abort terminates the upload after cause and closes the stream. Both
// errors are returned when aborting fails as well.
func (s *OutputStream) abort(cause error) error {
	s.l.Warn("aborting multipart upload", zap.Error(cause))
	metrics.UploadsAbortedCounter.WithLabelValues().Inc()
	s.markClosed()
	if err := s.upload.Abort(s.ctx); err != nil {
		s.l.Error("failed to abort multipart upload", zap.Error(err))
		return multierr.Append(cause, err)
	}
	return cause
}

func (s *OutputStream) markClosed() {
	if s.state == outputClosed {
		return
	}
	s.state = outputClosed
	metrics.OpenHandlesGauge.WithLabelValues("output").Dec()
}

// notImplemented fails with ErrClosed on a closed stream
func (s *OutputStream) notImplemented(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == outputClosed {
		return objectstore.ErrClosed
	}
	return errors.Wrap(objectstore.ErrNotImplemented, op)
}
