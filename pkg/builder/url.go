package builder

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/foomo/objectstore/pkg/objectstore"
	"github.com/foomo/objectstore/pkg/path"
	"github.com/pkg/errors"
)

// BackendKind identifies the storage service behind a StorageURL
type BackendKind int

const (
	Unknown BackendKind = iota
	Local
	InMemory
	S3
	Azure
	GCS
)

func (k BackendKind) String() string {
	switch k {
	case Local:
		return "local"
	case InMemory:
		return "memory"
	case S3:
		return "s3"
	case Azure:
		return "azure"
	case GCS:
		return "gcs"
	default:
		return "unknown"
	}
}

// StorageURL is a parsed root location. It is immutable after parsing.
type StorageURL struct {
	raw    string
	url    *url.URL
	kind   BackendKind
	prefix path.Path
	// bucket is the bucket or container name
	bucket string
	// account is the Azure storage account when encoded in the host
	account string
	// region is the AWS region when encoded in the host
	region string
}

// ParseStorageURL parses s as a root location.
//
// Absolute filesystem paths and strings without a scheme are resolved as
// local paths; they must exist. Supported url formats are:
//
//	file:///<path>
//	memory://[<name>]/<path>
//	s3://<bucket>/<path>, s3a://<bucket>/<path>
//	az://<container>/<path>, adl://, azure://, abfs(s)://<container>/<path>
//	abfs(s)://<container>@<account>.dfs.core.windows.net/<path>
//	wasb(s)://<container>@<account>.blob.core.windows.net/<path>
//	gs://<bucket>/<path>
//	https://<account>.blob.core.windows.net/<container>/<path>
//	https://<bucket>.s3.<region>.amazonaws.com/<path>
//	https://s3.<region>.amazonaws.com/<bucket>/<path>
func ParseStorageURL(s string) (*StorageURL, error) {
	if filepath.IsAbs(s) {
		return parseLocalPath(s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(objectstore.ErrUnresolvableBackend, "failed to parse %q: %s", s, err)
	}
	if u.Scheme == "" {
		return parseLocalPath(s)
	}
	return newStorageURL(s, u)
}

// MustParseStorageURL is like ParseStorageURL but panics on error
func MustParseStorageURL(s string) *StorageURL {
	u, err := ParseStorageURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (u *StorageURL) String() string {
	return u.raw
}

func (u *StorageURL) URL() *url.URL {
	ret := *u.url
	return &ret
}

func (u *StorageURL) Scheme() string {
	return u.url.Scheme
}

func (u *StorageURL) Host() string {
	return u.url.Hostname()
}

func (u *StorageURL) Kind() BackendKind {
	return u.kind
}

// Prefix is the path relative to the bucket or container root
func (u *StorageURL) Prefix() path.Path {
	return u.prefix
}

func (u *StorageURL) Bucket() string {
	return u.bucket
}

func (u *StorageURL) Account() string {
	return u.account
}

func (u *StorageURL) Region() string {
	return u.region
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func parseLocalPath(s string) (*StorageURL, error) {
	abs, err := filepath.Abs(s)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve local path %q", s)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve local path %q", s)
	}
	u := &url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(canonical),
	}
	return newStorageURL(u.String(), u)
}

func newStorageURL(raw string, u *url.URL) (*StorageURL, error) {
	ret := &StorageURL{
		raw: raw,
		url: u,
	}

	segments := strings.Trim(u.Path, path.Delimiter)
	switch strings.ToLower(u.Scheme) {
	case "file":
		ret.kind = Local
	case "memory":
		ret.kind = InMemory
	case "s3", "s3a":
		ret.kind = S3
		ret.bucket = u.Host
	case "gs":
		ret.kind = GCS
		ret.bucket = u.Host
	case "az", "adl", "azure":
		ret.kind = Azure
		ret.bucket = u.Host
	case "abfs", "abfss", "wasb", "wasbs":
		ret.kind = Azure
		if u.User != nil {
			ret.bucket = u.User.Username()
			ret.account = firstLabel(u.Hostname())
		} else {
			ret.bucket = u.Host
		}
	case "https":
		host := strings.ToLower(u.Hostname())
		switch {
		case strings.Contains(host, "amazonaws.com"):
			ret.kind = S3
			segments = ret.parseAWSHost(host, segments)
		case strings.Contains(host, "dfs.core.windows.net"), strings.Contains(host, "blob.core.windows.net"):
			ret.kind = Azure
			ret.account = firstLabel(host)
			if u.User != nil {
				ret.bucket = u.User.Username()
			} else {
				ret.bucket, segments = splitFirst(segments)
			}
		default:
			return nil, errors.Wrapf(objectstore.ErrUnresolvableBackend, "unknown https host %q", u.Host)
		}
	default:
		return nil, errors.Wrapf(objectstore.ErrUnresolvableBackend, "unknown scheme %q", u.Scheme)
	}

	prefix, err := path.Parse(segments)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid prefix in %q", raw)
	}
	ret.prefix = prefix
	return ret, nil
}

// parseAWSHost handles virtual hosted and path style endpoints and returns
// the remaining path segments
func (u *StorageURL) parseAWSHost(host, segments string) string {
	labels := strings.Split(host, ".")
	for i, label := range labels {
		if label != "s3" && !strings.HasPrefix(label, "s3-") {
			continue
		}
		if i+1 < len(labels) && labels[i+1] != "amazonaws" {
			u.region = labels[i+1]
		} else if strings.HasPrefix(label, "s3-") {
			u.region = strings.TrimPrefix(label, "s3-")
		}
		if i > 0 {
			u.bucket = strings.Join(labels[:i], ".")
			return segments
		}
		break
	}
	u.bucket, segments = splitFirst(segments)
	return segments
}

func firstLabel(host string) string {
	label, _, _ := strings.Cut(host, ".")
	return label
}

func splitFirst(segments string) (string, string) {
	first, rest, _ := strings.Cut(segments, path.Delimiter)
	return first, rest
}
