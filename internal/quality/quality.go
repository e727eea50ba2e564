// Package quality selects stream renditions by rewriting stream URLs.
package quality

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grafana/regexp"
)

// ErrUnknownQuality is returned when a quality string is not recognised.
var ErrUnknownQuality = errors.New("unknown quality")

// Quality is a requested stream rendition.
type Quality string

const (
	Auto  Quality = "auto"
	P1080 Quality = "1080p"
	P720  Quality = "720p"
	P480  Quality = "480p"
)

// existingSuffix matches a quality suffix at the end of a file stem.
var existingSuffix = regexp.MustCompile(`(?i)_?(auto|1080p|720p|480p)$`)

// Values lists every valid quality.
func Values() []Quality {
	return []Quality{Auto, P1080, P720, P480}
}

// Parse converts a string into a Quality. Matching ignores case.
func Parse(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))

	for _, v := range Values() {
		if q == v {
			return q, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownQuality, s)
}

// String implements fmt.Stringer.
func (q Quality) String() string {
	return string(q)
}

// Rewrite returns baseURL pointing at the requested rendition by placing a
// _<quality> suffix before the file extension of the last path segment.
// An existing quality suffix is replaced, so rewriting twice equals rewriting
// once with the last quality. Query and fragment are kept as they are. Auto
// returns baseURL unchanged. The quality value is not validated.
func Rewrite(baseURL string, q Quality) string {
	if q == Auto {
		return baseURL
	}

	path, tail := splitTail(baseURL)

	// Only the final path segment is rewritten; dots in the host or in
	// earlier segments are not extensions.
	segStart := strings.LastIndex(path, "/") + 1
	if scheme := strings.Index(path, "://"); scheme >= 0 && segStart <= scheme+3 {
		segStart = len(path)
	}

	prefix, segment := path[:segStart], path[segStart:]

	stem, ext := segment, ""
	if dot := strings.LastIndex(segment, "."); dot >= 0 {
		stem, ext = segment[:dot], segment[dot:]
	}

	stem = existingSuffix.ReplaceAllString(stem, "")

	if segment == "" {
		prefix = existingSuffix.ReplaceAllString(prefix, "")
	}

	return prefix + stem + "_" + string(q) + ext + tail
}

// splitTail separates the query string and fragment from the rest of the URL.
func splitTail(rawURL string) (string, string) {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i], rawURL[i:]
	}

	return rawURL, ""
}
