package file

import (
	"io"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/pkg/errors"
)

// Requirements lists the capabilities a caller supplied object must offer
type Requirements struct {
	Read  bool
	Write bool
	Seek  bool
}

// FileLike adapts an arbitrary value offering a subset of io.Reader,
// io.Writer and io.Seeker. The required capabilities are checked once on
// construction; calling a capability that is not offered fails with
// ErrNotImplemented.
type FileLike struct {
	r io.Reader
	w io.Writer
	s io.Seeker
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewFileLike(v any, req Requirements) (*FileLike, error) {
	inst := &FileLike{}
	inst.r, _ = v.(io.Reader)
	inst.w, _ = v.(io.Writer)
	inst.s, _ = v.(io.Seeker)

	switch {
	case req.Read && inst.r == nil:
		return nil, errors.Errorf("%T does not implement read", v)
	case req.Write && inst.w == nil:
		return nil, errors.Errorf("%T does not implement write", v)
	case req.Seek && inst.s == nil:
		return nil, errors.Errorf("%T does not implement seek", v)
	}
	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (f *FileLike) Readable() bool { return f.r != nil }
func (f *FileLike) Writable() bool { return f.w != nil }
func (f *FileLike) Seekable() bool { return f.s != nil }

func (f *FileLike) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, errors.Wrap(objectstore.ErrNotImplemented, "read")
	}
	return f.r.Read(p)
}

func (f *FileLike) Write(p []byte) (int, error) {
	if f.w == nil {
		return 0, errors.Wrap(objectstore.ErrNotImplemented, "write")
	}
	return f.w.Write(p)
}

func (f *FileLike) Seek(offset int64, whence int) (int64, error) {
	if f.s == nil {
		return 0, errors.Wrap(objectstore.ErrNotImplemented, "seek")
	}
	return f.s.Seek(offset, whence)
}
