package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/foomo/objectstore/pkg/file"
	"github.com/foomo/objectstore/pkg/filesystem"
	"github.com/foomo/objectstore/pkg/metrics"
	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	HTTP struct {
		l    *zap.Logger
		path string
		fs   *filesystem.Handler
	}
	HTTPOption func(*HTTP)
	// statusWriter remembers the status code for the request metrics
	statusWriter struct {
		http.ResponseWriter
		status int
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTP exposes the filesystem below the configured path:
//
//	GET    /objects/a/b.txt              object content, Range supported
//	GET    /objects/a?list[&recursive]   entries below a
//	GET    /objects/a/b.txt?stat         file info
//	PUT    /objects/a/b.txt              store the request body
//	POST   /objects/a/b.txt?copy=c.txt   copy, or move with ?move=
//	DELETE /objects/a[?recursive]        delete an object or a directory
func NewHTTP(l *zap.Logger, fs *filesystem.Handler, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:    l.Named("http"),
		path: "/objects",
		fs:   fs,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithPath(v string) HTTPOption {
	return func(o *HTTP) {
		o.path = strings.TrimSuffix(v, "/")
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	route := h.route(r)
	defer func() {
		metrics.HTTPRequestCounter.WithLabelValues(string(route), strconv.Itoa(sw.status)).Inc()
	}()

	rest, ok := strings.CutPrefix(r.URL.Path, h.path)
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		httputils.ServerError(h.l, sw, r, http.StatusNotFound, errors.Errorf("path %q not served", r.URL.Path))
		return
	}
	location, err := path.Parse(rest)
	if err != nil {
		httputils.BadRequestServerError(h.l, sw, r, err)
		return
	}

	switch route {
	case RouteRead:
		err = h.read(sw, r, location)
	case RouteStat:
		err = h.stat(sw, r, location)
	case RouteList:
		err = h.list(sw, r, location)
	case RouteWrite:
		err = h.write(sw, r, location)
	case RouteCopy:
		err = h.transfer(sw, r, location, r.URL.Query().Get("copy"), h.fs.CopyFile)
	case RouteMove:
		err = h.transfer(sw, r, location, r.URL.Query().Get("move"), h.fs.MoveFile)
	case RouteDelete:
		err = h.delete(sw, r, location)
	default:
		httputils.ServerError(h.l, sw, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	if err != nil {
		httputils.ServerError(h.l, sw, r, statusCode(err), err)
	}
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) route(r *http.Request) Route {
	query := r.URL.Query()
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		switch {
		case query.Has("list"):
			return RouteList
		case query.Has("stat"):
			return RouteStat
		default:
			return RouteRead
		}
	case http.MethodPut:
		return RouteWrite
	case http.MethodPost:
		switch {
		case query.Has("copy"):
			return RouteCopy
		case query.Has("move"):
			return RouteMove
		}
	case http.MethodDelete:
		return RouteDelete
	}
	return RouteUnknown
}

func (h *HTTP) read(w http.ResponseWriter, r *http.Request, location path.Path) error {
	if location.IsRoot() {
		return errors.Wrap(objectstore.ErrPathSyntax, "cannot read the root")
	}
	in, err := h.fs.OpenInputFile(r.Context(), location.String())
	if err != nil {
		return err
	}
	content := file.NewReadAhead(in, file.DefaultReadAheadSize)
	defer content.Close()
	http.ServeContent(w, r, location.Filename(), content.ModTime(), content)
	return nil
}

func (h *HTTP) stat(w http.ResponseWriter, r *http.Request, location path.Path) error {
	infos, err := h.fs.GetFileInfo(r.Context(), location.String())
	if err != nil {
		return err
	}
	return h.encodeReply(w, infos[0])
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request, location path.Path) error {
	query := r.URL.Query()
	infos, err := h.fs.GetFileInfoSelector(r.Context(), filesystem.Selector{
		BaseDir:   location.String(),
		Recursive: query.Has("recursive"),
	})
	if err != nil {
		return err
	}
	return h.encodeReply(w, infos)
}

func (h *HTTP) write(w http.ResponseWriter, r *http.Request, location path.Path) error {
	if location.IsRoot() {
		return errors.Wrap(objectstore.ErrPathSyntax, "cannot write the root")
	}
	n, err := h.fs.Upload(r.Context(), location.String(), r.Body)
	if err != nil {
		return err
	}
	h.l.Debug("stored object", zap.String("path", location.String()), zap.Int64("size", n))
	w.WriteHeader(http.StatusCreated)
	return nil
}

func (h *HTTP) transfer(w http.ResponseWriter, r *http.Request, location path.Path, dest string, fn func(ctx context.Context, src, dest string) error) error {
	target, err := path.Parse(dest)
	if err != nil {
		return err
	}
	if err := fn(r.Context(), location.String(), target.String()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request, location path.Path) error {
	var err error
	if r.URL.Query().Has("recursive") {
		err = h.fs.DeleteDir(r.Context(), location.String())
	} else {
		err = h.fs.DeleteFile(r.Context(), location.String())
	}
	if err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// encodeReply writes v as JSON
func (h *HTTP) encodeReply(w http.ResponseWriter, v any) error {
	bytes, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "could not encode reply")
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
	return nil
}

func statusCode(err error) int {
	switch {
	case objectstore.IsNotFound(err):
		return http.StatusNotFound
	case objectstore.IsAlreadyExists(err):
		return http.StatusConflict
	case errors.Is(err, objectstore.ErrPathSyntax), errors.Is(err, objectstore.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
