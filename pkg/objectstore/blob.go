package objectstore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/foomo/objectstore/pkg/metrics"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

type (
	// BlobStore implements Store using gocloud.dev/blob.
	// This supports the local filesystem, memory, GCS, S3 and Azure.
	BlobStore struct {
		l       *zap.Logger
		bucket  *blob.Bucket
		backend string
	}
	BlobStoreOption func(*BlobStore)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// BlobStoreWithBackend sets the backend name used in metrics
func BlobStoreWithBackend(v string) BlobStoreOption {
	return func(o *BlobStore) {
		o.backend = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewBlobStore opens the bucket behind a gocloud.dev URL, e.g. "mem://" or "gs://bucket-name"
func NewBlobStore(ctx context.Context, l *zap.Logger, bucketURL string, opts ...BlobStoreOption) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %q", bucketURL)
	}
	return NewBlobStoreFromBucket(l, bucket, opts...), nil
}

// NewBlobStoreFromBucket creates a new blob-backed store from an existing bucket.
// The store takes ownership of the bucket and closes it on Close.
func NewBlobStoreFromBucket(l *zap.Logger, bucket *blob.Bucket, opts ...BlobStoreOption) *BlobStore {
	inst := &BlobStore{
		l:       l.Named("blob"),
		bucket:  bucket,
		backend: "blob",
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (b *BlobStore) Put(ctx context.Context, location path.Path, data []byte) (err error) {
	defer b.observe("put", time.Now(), &err)
	if err := b.bucket.WriteAll(ctx, location.String(), data, nil); err != nil {
		return b.classify("put", location, err)
	}
	return nil
}

func (b *BlobStore) Get(ctx context.Context, location path.Path) (data []byte, err error) {
	defer b.observe("get", time.Now(), &err)
	data, err = b.bucket.ReadAll(ctx, location.String())
	if err != nil {
		return nil, b.classify("get", location, err)
	}
	return data, nil
}

func (b *BlobStore) GetRange(ctx context.Context, location path.Path, start, end int64) (data []byte, err error) {
	defer b.observe("get_range", time.Now(), &err)
	if start < 0 || end < start {
		return nil, newError("get_range", location, ErrInvalidRange, errors.Errorf("range %d-%d", start, end))
	}
	r, err := b.bucket.NewRangeReader(ctx, location.String(), start, end-start, nil)
	if err != nil {
		return nil, b.classify("get_range", location, err)
	}
	defer r.Close()

	data, err = io.ReadAll(r)
	if err != nil {
		return nil, b.classify("get_range", location, err)
	}
	if int64(len(data)) != end-start {
		return nil, newError("get_range", location, ErrInvalidRange,
			errors.Errorf("range %d-%d exceeds object size", start, end))
	}
	return data, nil
}

func (b *BlobStore) Head(ctx context.Context, location path.Path) (meta ObjectMeta, err error) {
	defer b.observe("head", time.Now(), &err)
	attrs, err := b.bucket.Attributes(ctx, location.String())
	if err != nil {
		return ObjectMeta{}, b.classify("head", location, err)
	}
	return ObjectMeta{
		Location:     location,
		Size:         attrs.Size,
		LastModified: attrs.ModTime,
	}, nil
}

func (b *BlobStore) Delete(ctx context.Context, location path.Path) (err error) {
	defer b.observe("delete", time.Now(), &err)
	if err := b.bucket.Delete(ctx, location.String()); err != nil {
		return b.classify("delete", location, err)
	}
	return nil
}

func (b *BlobStore) List(ctx context.Context, prefix path.Path) (metas []ObjectMeta, err error) {
	defer b.observe("list", time.Now(), &err)
	iter := b.bucket.List(&blob.ListOptions{
		Prefix: listPrefix(prefix),
	})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, b.classify("list", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		metas = append(metas, ObjectMeta{
			Location:     keyToPath(obj.Key),
			Size:         obj.Size,
			LastModified: obj.ModTime,
		})
	}
	return metas, nil
}

func (b *BlobStore) ListWithDelimiter(ctx context.Context, prefix path.Path) (result ListResult, err error) {
	defer b.observe("list_with_delimiter", time.Now(), &err)
	iter := b.bucket.List(&blob.ListOptions{
		Prefix:    listPrefix(prefix),
		Delimiter: path.Delimiter,
	})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return ListResult{}, b.classify("list_with_delimiter", prefix, err)
		}
		if obj.IsDir {
			result.CommonPrefixes = append(result.CommonPrefixes, keyToPath(obj.Key))
			continue
		}
		result.Objects = append(result.Objects, ObjectMeta{
			Location:     keyToPath(obj.Key),
			Size:         obj.Size,
			LastModified: obj.ModTime,
		})
	}
	return result, nil
}

func (b *BlobStore) Copy(ctx context.Context, from, to path.Path) (err error) {
	defer b.observe("copy", time.Now(), &err)
	if err := b.bucket.Copy(ctx, to.String(), from.String(), nil); err != nil {
		return b.classify("copy", from, err)
	}
	return nil
}

func (b *BlobStore) CopyIfNotExists(ctx context.Context, from, to path.Path) (err error) {
	defer b.observe("copy_if_not_exists", time.Now(), &err)
	return b.copyIfNotExists(ctx, from, to)
}

// Rename is implemented as copy followed by deleting the source
func (b *BlobStore) Rename(ctx context.Context, from, to path.Path) (err error) {
	defer b.observe("rename", time.Now(), &err)
	if err := b.bucket.Copy(ctx, to.String(), from.String(), nil); err != nil {
		return b.classify("rename", from, err)
	}
	if err := b.bucket.Delete(ctx, from.String()); err != nil {
		return b.classify("rename", from, err)
	}
	return nil
}

func (b *BlobStore) RenameIfNotExists(ctx context.Context, from, to path.Path) (err error) {
	defer b.observe("rename_if_not_exists", time.Now(), &err)
	if err := b.copyIfNotExists(ctx, from, to); err != nil {
		return err
	}
	if err := b.bucket.Delete(ctx, from.String()); err != nil {
		return b.classify("rename_if_not_exists", from, err)
	}
	return nil
}

// PutMultipart starts a blob writer. The writer uploads parts as they are
// written and only makes the object visible once completed; aborting
// cancels the writer's context which discards the upload.
func (b *BlobStore) PutMultipart(ctx context.Context, location path.Path) (upload MultipartUpload, err error) {
	defer b.observe("put_multipart", time.Now(), &err)
	wCtx, cancel := context.WithCancel(ctx)
	w, err := b.bucket.NewWriter(wCtx, location.String(), nil)
	if err != nil {
		cancel()
		return nil, b.classify("put_multipart", location, err)
	}
	return &blobUpload{
		store:    b,
		location: location,
		w:        w,
		cancel:   cancel,
	}, nil
}

func (b *BlobStore) Close() error {
	return b.bucket.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (b *BlobStore) copyIfNotExists(ctx context.Context, from, to path.Path) error {
	exists, err := b.bucket.Exists(ctx, to.String())
	if err != nil {
		return b.classify("copy_if_not_exists", to, err)
	} else if exists {
		return newError("copy_if_not_exists", to, ErrAlreadyExists, nil)
	}

	r, err := b.bucket.NewReader(ctx, from.String(), nil)
	if err != nil {
		return b.classify("copy_if_not_exists", from, err)
	}
	defer r.Close()

	wCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := b.bucket.NewWriter(wCtx, to.String(), &blob.WriterOptions{IfNotExist: true})
	if err != nil {
		return b.classify("copy_if_not_exists", to, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return b.classify("copy_if_not_exists", from, err)
	}
	if err := w.Close(); err != nil {
		if gcerrors.Code(err) == gcerrors.FailedPrecondition {
			return newError("copy_if_not_exists", to, ErrAlreadyExists, err)
		}
		return b.classify("copy_if_not_exists", to, err)
	}
	return nil
}

func (b *BlobStore) classify(op string, location path.Path, err error) error {
	switch gcerrors.Code(err) {
	case gcerrors.NotFound:
		return newError(op, location, ErrNotFound, err)
	case gcerrors.AlreadyExists:
		return newError(op, location, ErrAlreadyExists, err)
	default:
		return newError(op, location, nil, err)
	}
}

func (b *BlobStore) observe(op string, start time.Time, err *error) {
	status := "success"
	if *err != nil {
		status = "error"
	}
	metrics.OperationCounter.WithLabelValues(b.backend, op, status).Inc()
	metrics.OperationDuration.WithLabelValues(b.backend, op, status).Observe(time.Since(start).Seconds())
}

// blobUpload is a multipart session on top of a blob writer
type blobUpload struct {
	store    *BlobStore
	location path.Path
	w        *blob.Writer
	cancel   context.CancelFunc
}

// PutPart writes the part into the blob writer, which is bound to the
// context the session was started with.
func (u *blobUpload) PutPart(_ context.Context, data []byte) (err error) {
	defer u.store.observe("put_part", time.Now(), &err)
	if _, err := u.w.Write(data); err != nil {
		return u.store.classify("put_part", u.location, err)
	}
	return nil
}

func (u *blobUpload) Complete(_ context.Context) (err error) {
	defer u.store.observe("complete_multipart", time.Now(), &err)
	defer u.cancel()
	if err := u.w.Close(); err != nil {
		return u.store.classify("complete_multipart", u.location, err)
	}
	return nil
}

func (u *blobUpload) Abort(_ context.Context) (err error) {
	defer u.store.observe("abort_multipart", time.Now(), &err)
	u.cancel()
	if err := u.w.Close(); err != nil && !isCanceled(err) {
		return u.store.classify("abort_multipart", u.location, err)
	}
	return nil
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || gcerrors.Code(err) == gcerrors.Canceled
}

func listPrefix(prefix path.Path) string {
	if prefix.IsRoot() {
		return ""
	}
	return prefix.String() + path.Delimiter
}

// keyToPath converts a backend key, falling back to the lenient
// conversion for keys that were not written through this package
func keyToPath(key string) path.Path {
	key = strings.TrimSuffix(key, path.Delimiter)
	if p, err := path.Parse(key); err == nil {
		return p
	}
	return path.From(key)
}
