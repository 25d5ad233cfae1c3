package path

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Delimiter separates the segments of a Path
const Delimiter = "/"

// ErrSyntax is returned by Parse for malformed path strings
var ErrSyntax = errors.New("invalid path")

// Path is an ordered sequence of URL safe segments. The canonical string
// form joins the segments with Delimiter and never carries a leading or
// trailing delimiter. The zero value is the root.
type Path struct {
	raw string
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// Parse validates s and returns it as a Path. Leading and trailing
// delimiters are stripped. Empty segments, relative segments ("." and
// "..") and control characters are rejected.
func Parse(s string) (Path, error) {
	stripped := strings.Trim(s, Delimiter)
	if stripped == "" {
		return Path{}, nil
	}
	for _, segment := range strings.Split(stripped, Delimiter) {
		if err := validateSegment(segment); err != nil {
			return Path{}, errors.Wrapf(err, "path %q", s)
		}
	}
	return Path{raw: stripped}, nil
}

// MustParse is like Parse but panics on error
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// From builds a Path from an arbitrary string. Empty segments are dropped
// and characters that are not safe inside a segment are percent-encoded,
// so From never fails.
func From(s string) Path {
	var parts []string
	for _, segment := range strings.Split(s, Delimiter) {
		if segment == "" {
			continue
		}
		parts = append(parts, encodeSegment(segment))
	}
	return Path{raw: strings.Join(parts, Delimiter)}
}

// FromParts joins already encoded segments
func FromParts(parts ...string) Path {
	var p Path
	for _, part := range parts {
		p = p.Child(part)
	}
	return p
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (p Path) String() string {
	return p.raw
}

// IsRoot returns true for the empty path
func (p Path) IsRoot() bool {
	return p.raw == ""
}

// Parts returns the segments of the path
func (p Path) Parts() []string {
	if p.raw == "" {
		return nil
	}
	return strings.Split(p.raw, Delimiter)
}

// Child returns a new path with part appended as last segment. The part
// is encoded like a segment passed to From.
func (p Path) Child(part string) Path {
	part = strings.Trim(part, Delimiter)
	if part == "" {
		return p
	}
	child := From(part)
	if p.raw == "" {
		return child
	}
	if child.raw == "" {
		return p
	}
	return Path{raw: p.raw + Delimiter + child.raw}
}

// Join appends all segments of other
func (p Path) Join(other Path) Path {
	switch {
	case other.raw == "":
		return p
	case p.raw == "":
		return other
	default:
		return Path{raw: p.raw + Delimiter + other.raw}
	}
}

// Filename returns the last segment
func (p Path) Filename() string {
	if i := strings.LastIndex(p.raw, Delimiter); i >= 0 {
		return p.raw[i+1:]
	}
	return p.raw
}

// PrefixMatch returns the remaining segments if prefix is a segment-wise
// prefix of p, i.e. "foo/bar" is a prefix of "foo/bar/x" but not of
// "foo/bar_baz/x".
func (p Path) PrefixMatch(prefix Path) (Path, bool) {
	switch {
	case prefix.raw == "":
		return p, true
	case p.raw == prefix.raw:
		return Path{}, true
	case strings.HasPrefix(p.raw, prefix.raw+Delimiter):
		return Path{raw: p.raw[len(prefix.raw)+len(Delimiter):]}, true
	default:
		return Path{}, false
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func validateSegment(segment string) error {
	switch segment {
	case "":
		return errors.Wrap(ErrSyntax, "empty segment")
	case ".", "..":
		return errors.Wrapf(ErrSyntax, "relative segment %q", segment)
	}
	for i := 0; i < len(segment); i++ {
		if isControl(segment[i]) {
			return errors.Wrapf(ErrSyntax, "segment %q contains control character at %d", segment, i)
		}
	}
	return nil
}

func encodeSegment(segment string) string {
	switch segment {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	var b strings.Builder
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isControl(c) || strings.IndexByte(invalidChars, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// characters that are percent-encoded by From in addition to controls
const invalidChars = "\\{}^%`[]\"<>#|~*?"

func isControl(c byte) bool {
	return c < 0x20 || c == 0x7f
}
