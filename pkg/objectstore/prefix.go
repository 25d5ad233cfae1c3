package objectstore

import (
	"context"
	"strings"

	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
)

// PrefixStore scopes an inner store to a fixed prefix. Paths are
// translated on the way in and stripped on the way out, so the scope
// behaves like an independent store rooted at "/". Objects outside the
// prefix are invisible.
type PrefixStore struct {
	prefix path.Path
	inner  Store
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewPrefixStore(prefix path.Path, inner Store) *PrefixStore {
	return &PrefixStore{
		prefix: prefix,
		inner:  inner,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (s *PrefixStore) Prefix() path.Path {
	return s.prefix
}

func (s *PrefixStore) Inner() Store {
	return s.inner
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (s *PrefixStore) String() string {
	return "PrefixStore(" + s.prefix.String() + ")"
}

func (s *PrefixStore) Put(ctx context.Context, location path.Path, data []byte) error {
	return s.stripError(s.inner.Put(ctx, s.fullPath(location), data))
}

func (s *PrefixStore) Get(ctx context.Context, location path.Path) ([]byte, error) {
	data, err := s.inner.Get(ctx, s.fullPath(location))
	return data, s.stripError(err)
}

func (s *PrefixStore) GetRange(ctx context.Context, location path.Path, start, end int64) ([]byte, error) {
	data, err := s.inner.GetRange(ctx, s.fullPath(location), start, end)
	return data, s.stripError(err)
}

func (s *PrefixStore) Head(ctx context.Context, location path.Path) (ObjectMeta, error) {
	meta, err := s.inner.Head(ctx, s.fullPath(location))
	if err != nil {
		return ObjectMeta{}, s.stripError(err)
	}
	meta.Location = location
	return meta, nil
}

func (s *PrefixStore) Delete(ctx context.Context, location path.Path) error {
	return s.stripError(s.inner.Delete(ctx, s.fullPath(location)))
}

// List lists below prefix relative to the scope. The zero path lists the
// scope root, never the whole backend.
func (s *PrefixStore) List(ctx context.Context, prefix path.Path) ([]ObjectMeta, error) {
	metas, err := s.inner.List(ctx, s.fullPath(prefix))
	if err != nil {
		return nil, s.stripError(err)
	}
	return s.stripMetas(metas), nil
}

func (s *PrefixStore) ListWithDelimiter(ctx context.Context, prefix path.Path) (ListResult, error) {
	result, err := s.inner.ListWithDelimiter(ctx, s.fullPath(prefix))
	if err != nil {
		return ListResult{}, s.stripError(err)
	}
	ret := ListResult{
		Objects: s.stripMetas(result.Objects),
	}
	for _, p := range result.CommonPrefixes {
		if stripped, ok := s.stripPrefix(p); ok {
			ret.CommonPrefixes = append(ret.CommonPrefixes, stripped)
		}
	}
	return ret, nil
}

func (s *PrefixStore) Copy(ctx context.Context, from, to path.Path) error {
	return s.stripError(s.inner.Copy(ctx, s.fullPath(from), s.fullPath(to)))
}

func (s *PrefixStore) CopyIfNotExists(ctx context.Context, from, to path.Path) error {
	return s.stripError(s.inner.CopyIfNotExists(ctx, s.fullPath(from), s.fullPath(to)))
}

func (s *PrefixStore) Rename(ctx context.Context, from, to path.Path) error {
	return s.stripError(s.inner.Rename(ctx, s.fullPath(from), s.fullPath(to)))
}

func (s *PrefixStore) RenameIfNotExists(ctx context.Context, from, to path.Path) error {
	return s.stripError(s.inner.RenameIfNotExists(ctx, s.fullPath(from), s.fullPath(to)))
}

func (s *PrefixStore) PutMultipart(ctx context.Context, location path.Path) (MultipartUpload, error) {
	upload, err := s.inner.PutMultipart(ctx, s.fullPath(location))
	if err != nil {
		return nil, s.stripError(err)
	}
	return &prefixUpload{scope: s, inner: upload}, nil
}

func (s *PrefixStore) Close() error {
	return s.inner.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *PrefixStore) fullPath(location path.Path) path.Path {
	return s.prefix.Join(location)
}

// stripPrefix returns false for paths outside of the scope
func (s *PrefixStore) stripPrefix(full path.Path) (path.Path, bool) {
	return full.PrefixMatch(s.prefix)
}

func (s *PrefixStore) stripMetas(metas []ObjectMeta) []ObjectMeta {
	ret := make([]ObjectMeta, 0, len(metas))
	for _, meta := range metas {
		stripped, ok := s.stripPrefix(meta.Location)
		if !ok {
			continue
		}
		meta.Location = stripped
		ret = append(ret, meta)
	}
	return ret
}

// stripError rewrites the location inside a store error; the kind is kept
func (s *PrefixStore) stripError(err error) error {
	if err == nil || s.prefix.IsRoot() {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	full, perr := path.Parse(e.Path)
	if perr != nil {
		return err
	}
	stripped, ok := s.stripPrefix(full)
	if !ok {
		return err
	}
	ret := *e
	ret.Path = stripped.String()
	if err == error(e) {
		return &ret
	}
	return &scopedError{outer: err, inner: e, scoped: &ret}
}

// scopedError keeps the context wrapped around a store error while
// exposing the store error with its scoped location
type scopedError struct {
	outer  error
	inner  *Error
	scoped *Error
}

func (e *scopedError) Error() string {
	return strings.Replace(e.outer.Error(), e.inner.Error(), e.scoped.Error(), 1)
}

// Unwrap lists the scoped error first so errors.As finds it before the
// unscoped one inside the outer chain
func (e *scopedError) Unwrap() []error {
	return []error{e.scoped, e.outer}
}

type prefixUpload struct {
	scope *PrefixStore
	inner MultipartUpload
}

func (u *prefixUpload) PutPart(ctx context.Context, data []byte) error {
	return u.scope.stripError(u.inner.PutPart(ctx, data))
}

func (u *prefixUpload) Complete(ctx context.Context) error {
	return u.scope.stripError(u.inner.Complete(ctx))
}

func (u *prefixUpload) Abort(ctx context.Context) error {
	return u.scope.stripError(u.inner.Abort(ctx))
}
