package file

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "gocloud.dev/blob/memblob"
)

func newTestStore(t *testing.T) *objectstore.PrefixStore {
	t.Helper()
	inner, err := objectstore.NewBlobStore(context.Background(), zaptest.NewLogger(t), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })
	return objectstore.NewPrefixStore(path.MustParse("root"), inner)
}

// countingStore counts ranged reads
type countingStore struct {
	objectstore.Store
	ranges int
}

func (s *countingStore) GetRange(ctx context.Context, location path.Path, start, end int64) ([]byte, error) {
	s.ranges++
	return s.Store.GetRange(ctx, location, start, end)
}

// recordingStore hands out a recording upload session with injectable failures
type recordingStore struct {
	objectstore.Store
	upload *recordingUpload
}

func (s *recordingStore) PutMultipart(context.Context, path.Path) (objectstore.MultipartUpload, error) {
	return s.upload, nil
}

type recordingUpload struct {
	parts       [][]byte
	completes   int
	aborts      int
	partErr     error
	completeErr error
	abortErr    error
}

func (u *recordingUpload) PutPart(_ context.Context, data []byte) error {
	if u.partErr != nil {
		return u.partErr
	}
	u.parts = append(u.parts, append([]byte(nil), data...))
	return nil
}

func (u *recordingUpload) Complete(context.Context) error {
	u.completes++
	return u.completeErr
}

func (u *recordingUpload) Abort(context.Context) error {
	u.aborts++
	return u.abortErr
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := zaptest.NewLogger(t)
	store := newTestStore(t)
	loc := path.MustParse("a/b.txt")

	out, err := OpenOutputStream(ctx, l, store, loc, map[string]string{"content-type": "text/plain"})
	require.NoError(t, err)
	n, err := out.Write([]byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = out.Write([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in, err := OpenInputFile(ctx, l, store, loc)
	require.NoError(t, err)
	size, err := in.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	data, err := in.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	require.NoError(t, in.Close())
}

func TestOpenInputFile_NotFound(t *testing.T) {
	_, err := OpenInputFile(context.Background(), zaptest.NewLogger(t), newTestStore(t), path.MustParse("missing"))
	require.Error(t, err)
	assert.True(t, objectstore.IsNotFound(err))
}

func TestInputFile_SeekRead(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	content := []byte("0123456789")
	loc := path.MustParse("digits")
	require.NoError(t, store.Put(ctx, loc, content))

	counting := &countingStore{Store: store}
	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), counting, loc)
	require.NoError(t, err)

	size := int64(len(content))
	for pos := int64(0); pos <= size; pos++ {
		got, err := in.Seek(pos, io.SeekStart)
		require.NoError(t, err)
		assert.Equal(t, pos, got)

		data, err := in.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, content[pos:], data)

		tell, err := in.Tell()
		require.NoError(t, err)
		assert.Equal(t, size, tell)
	}
	// the read at the end of the file did not hit the backend
	assert.Equal(t, len(content), counting.ranges)
}

func TestInputFile_ReadN(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("digits")
	require.NoError(t, store.Put(ctx, loc, []byte("0123456789")))

	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), store, loc)
	require.NoError(t, err)

	data, err := in.ReadN(4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(data))

	_, err = in.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	data, err = in.ReadN(100)
	require.NoError(t, err)
	assert.Equal(t, "89", string(data))

	data, err = in.ReadN(1)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = in.Seek(-3, io.SeekCurrent)
	require.NoError(t, err)
	buf := make([]byte, 2)
	n, err := in.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "78", string(buf[:n]))
}

func TestInputFile_ReaderContract(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("text")
	content := strings.Repeat("abc", 100)
	require.NoError(t, store.Put(ctx, loc, []byte(content)))

	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), store, loc)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = io.Copy(&buf, in)
	require.NoError(t, err)
	assert.Equal(t, content, buf.String())

	n, err := in.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestInputFile_SeekOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("digits")
	require.NoError(t, store.Put(ctx, loc, []byte("0123456789")))

	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), store, loc)
	require.NoError(t, err)
	_, err = in.Seek(5, io.SeekStart)
	require.NoError(t, err)

	for _, tt := range []struct {
		offset int64
		whence int
	}{
		{-1, io.SeekStart},
		{11, io.SeekStart},
		{-6, io.SeekCurrent},
		{6, io.SeekCurrent},
		{1, io.SeekEnd},
		{-11, io.SeekEnd},
	} {
		_, err := in.Seek(tt.offset, tt.whence)
		assert.ErrorIs(t, err, objectstore.ErrPositionOutOfRange, "%d %d", tt.offset, tt.whence)
	}

	// failed seeks leave the position untouched
	pos, err := in.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(5), pos)

	pos, err = in.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(10), pos)
}

func TestInputFile_Closed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("x")
	require.NoError(t, store.Put(ctx, loc, []byte("x")))

	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), store, loc)
	require.NoError(t, err)
	assert.True(t, in.Readable())
	assert.True(t, in.Seekable())
	assert.False(t, in.Writable())
	assert.False(t, in.IsATTY())
	require.NoError(t, in.Close())
	assert.True(t, in.Closed())

	_, err = in.Read(make([]byte, 1))
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = in.ReadAll()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = in.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = in.Tell()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = in.Size()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	assert.ErrorIs(t, in.Close(), objectstore.ErrClosed)
}

func TestInputFile_NotImplemented(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("x")
	require.NoError(t, store.Put(ctx, loc, []byte("x")))

	in, err := OpenInputFile(ctx, zaptest.NewLogger(t), store, loc)
	require.NoError(t, err)
	_, err = in.Fileno()
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)
	assert.ErrorIs(t, in.Truncate(0), objectstore.ErrNotImplemented)
	_, err = in.ReadLine()
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)
	_, err = in.ReadLines()
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)

	require.NoError(t, in.Close())
	_, err = in.Fileno()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	assert.ErrorIs(t, in.Truncate(0), objectstore.ErrClosed)
	_, err = in.ReadLine()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = in.ReadLines()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
}

func openRecording(t *testing.T, upload *recordingUpload) *OutputStream {
	t.Helper()
	out, err := OpenOutputStream(context.Background(), zaptest.NewLogger(t), &recordingStore{upload: upload}, path.MustParse("out"), nil)
	require.NoError(t, err)
	return out
}

func TestOutputStream_Close(t *testing.T) {
	upload := &recordingUpload{}
	out := openRecording(t, upload)

	_, err := out.Write([]byte("a"))
	require.NoError(t, err)
	_, err = out.Write([]byte("b"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, upload.parts)
	assert.Equal(t, 1, upload.completes)
	assert.Equal(t, 0, upload.aborts)

	_, err = out.Write([]byte("c"))
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	assert.ErrorIs(t, out.Close(), objectstore.ErrClosed)
	assert.ErrorIs(t, out.Flush(), objectstore.ErrClosed)
	assert.Equal(t, 1, upload.completes)
}

func TestOutputStream_WriteFailureAborts(t *testing.T) {
	partErr := errors.New("part failed")
	upload := &recordingUpload{partErr: partErr}
	out := openRecording(t, upload)

	_, err := out.Write([]byte("a"))
	require.ErrorIs(t, err, partErr)
	assert.Equal(t, 1, upload.aborts)
	assert.True(t, out.Closed())

	assert.ErrorIs(t, out.Close(), objectstore.ErrClosed)
	assert.Equal(t, 0, upload.completes)
	assert.Equal(t, 1, upload.aborts)
}

func TestOutputStream_AbortFailureKeepsCause(t *testing.T) {
	partErr := errors.New("part failed")
	abortErr := errors.New("abort failed")
	upload := &recordingUpload{partErr: partErr, abortErr: abortErr}
	out := openRecording(t, upload)

	_, err := out.Write([]byte("a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, partErr)
	assert.ErrorIs(t, err, abortErr)
	assert.Equal(t, 1, upload.aborts)
}

func TestOutputStream_CompleteFailureAborts(t *testing.T) {
	completeErr := errors.New("complete failed")
	upload := &recordingUpload{completeErr: completeErr}
	out := openRecording(t, upload)

	_, err := out.Write([]byte("a"))
	require.NoError(t, err)
	err = out.Close()
	assert.ErrorIs(t, err, completeErr)
	assert.Equal(t, 1, upload.completes)
	assert.Equal(t, 1, upload.aborts)
	assert.True(t, out.Closed())
}

func TestOutputStream_FlushFinalizes(t *testing.T) {
	upload := &recordingUpload{}
	out := openRecording(t, upload)

	_, err := out.Write([]byte("a"))
	require.NoError(t, err)
	require.NoError(t, out.Flush())
	require.NoError(t, out.Flush())
	assert.False(t, out.Closed())

	_, err = out.Write([]byte("b"))
	assert.ErrorIs(t, err, objectstore.ErrUploadFinalized)

	require.NoError(t, out.Close())
	assert.True(t, out.Closed())
	assert.Equal(t, 1, upload.completes)
	assert.Equal(t, 0, upload.aborts)
}

func TestOutputStream_NotImplemented(t *testing.T) {
	out := openRecording(t, &recordingUpload{})
	assert.False(t, out.Readable())
	assert.True(t, out.Writable())
	assert.False(t, out.Seekable())
	_, err := out.Read(make([]byte, 1))
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)
	_, err = out.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)
	_, err = out.Size()
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)
	require.NoError(t, out.Close())

	_, err = out.Read(make([]byte, 1))
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = out.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = out.Size()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = out.Fileno()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	assert.ErrorIs(t, out.Truncate(0), objectstore.ErrClosed)
	_, err = out.ReadLine()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
	_, err = out.ReadLines()
	assert.ErrorIs(t, err, objectstore.ErrClosed)
}

func TestOutputStream_ReadFrom(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	loc := path.MustParse("big")
	content := bytes.Repeat([]byte("x"), partSize+10)

	out, err := OpenOutputStream(ctx, zaptest.NewLogger(t), store, loc, nil)
	require.NoError(t, err)
	n, err := io.Copy(out, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	require.NoError(t, out.Close())

	data, err := store.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestFileLike(t *testing.T) {
	f, err := NewFileLike(strings.NewReader("abc"), Requirements{Read: true, Seek: true})
	require.NoError(t, err)
	assert.True(t, f.Readable())
	assert.False(t, f.Writable())

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, objectstore.ErrNotImplemented)

	_, err = NewFileLike(strings.NewReader("abc"), Requirements{Write: true})
	require.Error(t, err)

	_, err = NewFileLike(&bytes.Buffer{}, Requirements{Seek: true})
	require.Error(t, err)
}
