package filesystem

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	_ "gocloud.dev/blob/memblob"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	l := zaptest.NewLogger(t)
	inner, err := objectstore.NewBlobStore(context.Background(), l, "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })
	return NewHandler(l, objectstore.NewPrefixStore(path.MustParse("root"), inner), WithRootURL("memory://bucket/root"))
}

func put(t *testing.T, h *Handler, p, data string) {
	t.Helper()
	require.NoError(t, h.Store().Put(context.Background(), path.MustParse(p), []byte(data)))
}

func TestHandler_GetFileInfo(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)
	put(t, h, "d/1.txt", "one")

	infos, err := h.GetFileInfo(ctx, "missing/x", "d", "d/1.txt")
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, FileInfo{Path: "missing/x", Type: NotFound}, infos[0])
	assert.Equal(t, FileInfo{Path: "d", Type: Directory}, infos[1])
	assert.Equal(t, "d/1.txt", infos[2].Path)
	assert.Equal(t, File, infos[2].Type)
	assert.Equal(t, int64(3), infos[2].Size)
	assert.False(t, infos[2].MTime.IsZero())
}

func TestHandler_GetFileInfo_EmptyStore(t *testing.T) {
	infos, err := newTestHandler(t).GetFileInfo(context.Background(), "missing/x")
	require.NoError(t, err)
	assert.Equal(t, []FileInfo{{Path: "missing/x", Type: NotFound}}, infos)
}

func TestHandler_GetFileInfoSelector(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)
	put(t, h, "base/a.txt", "a")
	put(t, h, "base/sub/b.txt", "b")
	put(t, h, "base/sub/deeper/c.txt", "c")
	put(t, h, "outside.txt", "x")

	infos, err := h.GetFileInfoSelector(ctx, Selector{BaseDir: "base"})
	require.NoError(t, err)
	assert.Equal(t, []string{"base/sub", "base/a.txt"}, paths(infos))
	assert.Equal(t, Directory, infos[0].Type)
	assert.Equal(t, File, infos[1].Type)

	infos, err = h.GetFileInfoSelector(ctx, Selector{BaseDir: "base", Recursive: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"base/sub", "base/sub/deeper",
		"base/a.txt", "base/sub/b.txt", "base/sub/deeper/c.txt",
	}, paths(infos))

	infos, err = h.GetFileInfoSelector(ctx, Selector{BaseDir: "nothing", AllowNotFound: true})
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestHandler_CopyMoveDelete(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)
	put(t, h, "src.txt", "data")

	require.NoError(t, h.CopyFile(ctx, "src.txt", "copy.txt"))
	require.NoError(t, h.MoveFile(ctx, "src.txt", "moved.txt"))

	infos, err := h.GetFileInfo(ctx, "src.txt", "copy.txt", "moved.txt")
	require.NoError(t, err)
	assert.Equal(t, NotFound, infos[0].Type)
	assert.Equal(t, File, infos[1].Type)
	assert.Equal(t, File, infos[2].Type)

	require.NoError(t, h.DeleteFile(ctx, "copy.txt"))
	err = h.DeleteFile(ctx, "copy.txt")
	assert.True(t, objectstore.IsNotFound(err))
}

func TestHandler_DeleteDir(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)
	put(t, h, "dir/a", "a")
	put(t, h, "dir/b/c", "c")
	put(t, h, "dir_sibling/d", "d")

	require.NoError(t, h.CreateDir(ctx, "dir", true))
	require.NoError(t, h.DeleteDir(ctx, "dir"))

	infos, err := h.GetFileInfo(ctx, "dir", "dir_sibling")
	require.NoError(t, err)
	assert.Equal(t, NotFound, infos[0].Type)
	assert.Equal(t, Directory, infos[1].Type)
}

func TestHandler_NormalizePath(t *testing.T) {
	h := newTestHandler(t)
	p, err := h.NormalizePath("/a/b/")
	require.NoError(t, err)
	assert.Equal(t, "a/b", p)

	_, err = h.NormalizePath("a//b")
	assert.ErrorIs(t, err, objectstore.ErrPathSyntax)
}

func TestHandler_UploadDownload(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)

	n, err := h.Upload(ctx, "a/b.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	var buf bytes.Buffer
	n, err = h.Download(ctx, "a/b.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", buf.String())

	_, err = h.Download(ctx, "a/b.txt", strings.NewReader("not a writer"))
	require.Error(t, err)
}

// abortFailingStore hands out uploads whose abort fails
type abortFailingStore struct {
	objectstore.Store
	aborts int
}

func (s *abortFailingStore) PutMultipart(context.Context, path.Path) (objectstore.MultipartUpload, error) {
	return &abortFailingUpload{store: s}, nil
}

type abortFailingUpload struct {
	store *abortFailingStore
}

func (u *abortFailingUpload) PutPart(context.Context, []byte) error { return nil }
func (u *abortFailingUpload) Complete(context.Context) error        { return nil }
func (u *abortFailingUpload) Abort(context.Context) error {
	u.store.aborts++
	return errAbort
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errSource }

var (
	errAbort  = errors.New("abort failed")
	errSource = errors.New("source broken")
)

func TestHandler_Upload_SourceFailureKeepsAbortError(t *testing.T) {
	store := &abortFailingStore{}
	h := NewHandler(zaptest.NewLogger(t), store)

	_, err := h.Upload(context.Background(), "a.txt", brokenReader{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errSource)
	assert.ErrorIs(t, err, errAbort)
	assert.Equal(t, 1, store.aborts)
}

func TestHandler_OpenFiles(t *testing.T) {
	ctx := context.Background()
	h := newTestHandler(t)

	out, err := h.OpenOutputStream(ctx, "a/b.txt", nil)
	require.NoError(t, err)
	_, err = out.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in, err := h.OpenInputFile(ctx, "a/b.txt")
	require.NoError(t, err)
	defer in.Close()
	size, err := in.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	data, err := io.ReadAll(in)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestHandler_Ping(t *testing.T) {
	assert.NoError(t, newTestHandler(t).Ping(context.Background()))
}

func TestHandler_Identity(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, "object-store", h.TypeName())
	assert.Equal(t, "memory://bucket/root", h.RootURL())
	assert.True(t, h.Equals(h))
	assert.False(t, h.Equals(newTestHandler(t)))
	assert.False(t, h.Equals(nil))
}

func paths(infos []FileInfo) []string {
	ret := make([]string, 0, len(infos))
	for _, info := range infos {
		ret = append(ret, info.Path)
	}
	return ret
}
