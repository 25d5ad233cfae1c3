package filesystem

import (
	"context"
	"io"
	"time"

	"github.com/foomo/objectstore/pkg/file"
	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// TypeName is reported by Handler.TypeName
	TypeName = "object-store"
	// downloadChunkSize is the size of a ranged read issued by Download
	downloadChunkSize = file.DefaultReadAheadSize
)

// FileType classifies a location
type FileType int

const (
	NotFound FileType = iota
	File
	Directory
)

func (t FileType) String() string {
	switch t {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return "not-found"
	}
}

func (t FileType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *FileType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*t = File
	case "directory":
		*t = Directory
	case "not-found":
		*t = NotFound
	default:
		return errors.Errorf("unknown file type %q", string(text))
	}
	return nil
}

type (
	// FileInfo describes a location. Size and MTime are only set for files.
	FileInfo struct {
		Path  string    `json:"path"`
		Type  FileType  `json:"type"`
		Size  int64     `json:"size,omitempty"`
		MTime time.Time `json:"mtime"`
	}
	// Selector selects the entries below BaseDir
	Selector struct {
		BaseDir       string
		AllowNotFound bool
		Recursive     bool
	}
	// Handler exposes a scoped store with file system semantics
	Handler struct {
		l        *zap.Logger
		store    objectstore.Store
		rootURL  string
		walkOpts []objectstore.WalkOption
	}
	HandlerOption func(*Handler)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithRootURL sets the root location the store was built from
func WithRootURL(v string) HandlerOption {
	return func(o *Handler) {
		o.rootURL = v
	}
}

func WithWalkConcurrency(v int) HandlerOption {
	return func(o *Handler) {
		o.walkOpts = append(o.walkOpts, objectstore.WalkWithConcurrency(v))
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewHandler(l *zap.Logger, store objectstore.Store, opts ...HandlerOption) *Handler {
	inst := &Handler{
		l:     l.Named("filesystem"),
		store: store,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (h *Handler) TypeName() string {
	return TypeName
}

func (h *Handler) RootURL() string {
	return h.rootURL
}

func (h *Handler) Store() objectstore.Store {
	return h.store
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Equals reports whether both handlers operate on the same root and store
func (h *Handler) Equals(other *Handler) bool {
	return other != nil && h.rootURL == other.rootURL && h.store == other.store
}

// Ping lists the root of the store to check the backend is reachable
func (h *Handler) Ping(ctx context.Context) error {
	_, err := h.store.ListWithDelimiter(ctx, path.Path{})
	return errors.Wrap(err, "store not reachable")
}

// NormalizePath validates p and returns its canonical form
func (h *Handler) NormalizePath(p string) (string, error) {
	parsed, err := path.Parse(p)
	if err != nil {
		return "", err
	}
	return parsed.String(), nil
}

// GetFileInfo classifies every path. A location without objects or common
// prefixes below it is looked up directly to tell a file from a missing one.
func (h *Handler) GetFileInfo(ctx context.Context, paths ...string) ([]FileInfo, error) {
	infos := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		loc := path.From(p)
		listed, err := h.store.ListWithDelimiter(ctx, loc)
		if err != nil {
			return nil, err
		}
		if len(listed.Objects) > 0 || len(listed.CommonPrefixes) > 0 {
			infos = append(infos, FileInfo{Path: loc.String(), Type: Directory})
			continue
		}

		meta, err := h.store.Head(ctx, loc)
		switch {
		case err == nil:
			infos = append(infos, fileInfo(meta))
		case objectstore.IsNotFound(err):
			infos = append(infos, FileInfo{Path: loc.String(), Type: NotFound})
		default:
			return nil, err
		}
	}
	return infos, nil
}

// GetFileInfoSelector returns the common prefixes below the base dir as
// directories followed by the objects as files
func (h *Handler) GetFileInfoSelector(ctx context.Context, sel Selector) ([]FileInfo, error) {
	opts := append([]objectstore.WalkOption{objectstore.WalkWithAllowNotFound(sel.AllowNotFound)}, h.walkOpts...)
	result, err := objectstore.Walk(ctx, h.store, path.From(sel.BaseDir), sel.Recursive, opts...)
	if err != nil {
		return nil, err
	}

	infos := make([]FileInfo, 0, len(result.CommonPrefixes)+len(result.Objects))
	for _, p := range result.CommonPrefixes {
		infos = append(infos, FileInfo{Path: p.String(), Type: Directory})
	}
	for _, meta := range result.Objects {
		infos = append(infos, fileInfo(meta))
	}
	return infos, nil
}

func (h *Handler) CopyFile(ctx context.Context, src, dest string) error {
	return h.store.Copy(ctx, path.From(src), path.From(dest))
}

// MoveFile renames src to dest, overwriting dest
func (h *Handler) MoveFile(ctx context.Context, src, dest string) error {
	return h.store.Rename(ctx, path.From(src), path.From(dest))
}

func (h *Handler) DeleteFile(ctx context.Context, p string) error {
	return h.store.Delete(ctx, path.From(p))
}

// DeleteDir deletes every object below p
func (h *Handler) DeleteDir(ctx context.Context, p string) error {
	return objectstore.DeleteDir(ctx, h.store, path.From(p))
}

// CreateDir is a no-op, object stores have no directory entities
func (h *Handler) CreateDir(_ context.Context, _ string, _ bool) error {
	return nil
}

func (h *Handler) OpenInputFile(ctx context.Context, p string) (*file.InputFile, error) {
	return file.OpenInputFile(ctx, h.l, h.store, path.From(p))
}

func (h *Handler) OpenOutputStream(ctx context.Context, p string, metadata map[string]string) (*file.OutputStream, error) {
	return file.OpenOutputStream(ctx, h.l, h.store, path.From(p), metadata)
}

// Upload streams everything read from src into a new object at p
func (h *Handler) Upload(ctx context.Context, p string, src any) (int64, error) {
	r, err := file.NewFileLike(src, file.Requirements{Read: true})
	if err != nil {
		return 0, err
	}
	out, err := h.OpenOutputStream(ctx, p, nil)
	if err != nil {
		return 0, err
	}
	n, err := out.ReadFrom(r)
	if err != nil {
		if !out.Closed() {
			err = multierr.Append(err, out.Abort())
		}
		return n, errors.Wrapf(err, "failed to upload %q", p)
	}
	return n, out.Close()
}

// Download writes the object at p into dst
func (h *Handler) Download(ctx context.Context, p string, dst any) (int64, error) {
	w, err := file.NewFileLike(dst, file.Requirements{Write: true})
	if err != nil {
		return 0, err
	}
	in, err := h.OpenInputFile(ctx, p)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	n, err := io.CopyBuffer(w, in, make([]byte, downloadChunkSize))
	if err != nil {
		return n, errors.Wrapf(err, "failed to download %q", p)
	}
	return n, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func fileInfo(meta objectstore.ObjectMeta) FileInfo {
	return FileInfo{
		Path:  meta.Location.String(),
		Type:  File,
		Size:  meta.Size,
		MTime: meta.LastModified,
	}
}
