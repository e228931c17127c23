package assets

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Scheme is the only URI scheme the resolver accepts.
const Scheme = "faceframe"

// ErrScheme rejects locators that do not carry the faceframe scheme.
var ErrScheme = errors.New("unsupported locator scheme")

var driveLetter = regexp.MustCompile(`^[A-Za-z]:/`)

// Locator is a restricted read-only reference to a local image. The zero
// Locator means "no locator"; callers render a placeholder for it.
type Locator struct {
	path string
}

// Resolve maps an absolute local file path to a locator. Separators are
// normalized to forward slashes; drive-letter prefixes are preserved. An
// empty path yields no locator.
func Resolve(path string) (Locator, bool) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Locator{}, false
	}
	normalized := strings.ReplaceAll(trimmed, `\`, "/")
	return Locator{path: normalized}, true
}

// Parse validates a locator string. Anything that is not a faceframe URI is
// rejected; arbitrary remote schemes never resolve.
func Parse(raw string) (Locator, error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(raw, prefix) {
		return Locator{}, fmt.Errorf("%w: %q", ErrScheme, raw)
	}
	escaped := strings.TrimPrefix(raw, prefix)
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return Locator{}, fmt.Errorf("malformed locator %q: %w", raw, err)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return Locator{}, fmt.Errorf("locator %q escapes its path", raw)
		}
	}
	locator, ok := Resolve(path)
	if !ok {
		return Locator{}, fmt.Errorf("locator %q has an empty path", raw)
	}
	return locator, nil
}

// IsZero reports whether this is the "no locator" value.
func (l Locator) IsZero() bool {
	return l.path == ""
}

// String renders the locator URI with escaped path segments.
func (l Locator) String() string {
	if l.IsZero() {
		return ""
	}
	segments := strings.Split(l.path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return Scheme + "://" + strings.Join(segments, "/")
}

// FilePath returns the local filesystem path the locator dereferences to.
// Drive-letter paths gain a leading separator so they resolve as absolute
// local references (D:/Photos/a.jpg becomes /D:/Photos/a.jpg).
func (l Locator) FilePath() string {
	if l.IsZero() {
		return ""
	}
	if driveLetter.MatchString(l.path) {
		return "/" + l.path
	}
	if !strings.HasPrefix(l.path, "/") {
		return "/" + l.path
	}
	return l.path
}
