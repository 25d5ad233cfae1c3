package objectstore

import (
	"context"
	"time"

	"github.com/foomo/objectstore/pkg/path"
)

type (
	// ObjectMeta describes a single stored object
	ObjectMeta struct {
		Location     path.Path
		Size         int64
		LastModified time.Time
	}
	// ListResult is the outcome of a single level delimiter listing
	ListResult struct {
		// CommonPrefixes are the directory-like groupings directly below the listed prefix
		CommonPrefixes []path.Path
		Objects        []ObjectMeta
	}
)

// Store defines the capabilities every backend provides.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put saves data at the given location, replacing any existing object.
	Put(ctx context.Context, location path.Path, data []byte) error

	// Get returns the whole object.
	Get(ctx context.Context, location path.Path) ([]byte, error)

	// GetRange returns the bytes in [start, end) of the object.
	GetRange(ctx context.Context, location path.Path, start, end int64) ([]byte, error)

	// Head returns the metadata of the object without its contents.
	Head(ctx context.Context, location path.Path) (ObjectMeta, error)

	// Delete removes the object at the given location.
	Delete(ctx context.Context, location path.Path) error

	// List returns all objects below prefix. Prefixes are evaluated per
	// segment, i.e. "foo/bar" is a prefix of "foo/bar/x" but not of "foo/bar_baz/x".
	List(ctx context.Context, prefix path.Path) ([]ObjectMeta, error)

	// ListWithDelimiter returns the objects and common prefixes directly below prefix.
	ListWithDelimiter(ctx context.Context, prefix path.Path) (ListResult, error)

	// Copy copies an object, overwriting the destination.
	Copy(ctx context.Context, from, to path.Path) error

	// CopyIfNotExists copies an object and fails with ErrAlreadyExists
	// when the destination is occupied.
	CopyIfNotExists(ctx context.Context, from, to path.Path) error

	// Rename moves an object, overwriting the destination.
	Rename(ctx context.Context, from, to path.Path) error

	// RenameIfNotExists moves an object and fails with ErrAlreadyExists
	// when the destination is occupied.
	RenameIfNotExists(ctx context.Context, from, to path.Path) error

	// PutMultipart starts a multipart upload session for location.
	PutMultipart(ctx context.Context, location path.Path) (MultipartUpload, error)

	// Close releases any resources held by the backend.
	Close() error
}

// MultipartUpload is a session accepting sequentially uploaded parts.
// Every session must be terminated by exactly one call to Complete or Abort.
type MultipartUpload interface {
	// PutPart uploads the next part. Parts are positional and must not be reordered.
	PutPart(ctx context.Context, data []byte) error

	// Complete finalizes the upload and makes the object visible.
	Complete(ctx context.Context) error

	// Abort discards all uploaded parts.
	Abort(ctx context.Context) error
}
