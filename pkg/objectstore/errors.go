package objectstore

import (
	"io/fs"
	"strings"

	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrPathSyntax          = path.ErrSyntax
	ErrInvalidRange        = errors.New("invalid range")
	ErrClosed              = errors.New("operation on closed stream")
	ErrUploadFinalized     = errors.New("upload already finalized")
	ErrPositionOutOfRange  = errors.New("position out of range")
	ErrNotImplemented      = errors.New("not implemented")
	ErrConfiguration       = errors.New("invalid configuration")
	ErrUnresolvableBackend = errors.New("unresolvable backend")
)

// Error carries the failed operation, the affected location and the
// error kind next to the backend's own error.
type Error struct {
	Op   string
	Path string
	// Kind is one of the Err* sentinels, nil for generic backend failures
	Kind error
	Err  error
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func newError(op string, location path.Path, kind, err error) *Error {
	return &Error{
		Op:   op,
		Path: location.String(),
		Kind: kind,
		Err:  err,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Kind != nil {
		b.WriteString(": ")
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Is lets not found and already exists errors match their io/fs counterparts
func (e *Error) Is(target error) bool {
	switch target {
	case fs.ErrNotExist:
		return e.Kind == ErrNotFound
	case fs.ErrExist:
		return e.Kind == ErrAlreadyExists
	}
	return false
}

// IsNotFound reports whether err signals a missing object
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err signals an occupied destination
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
