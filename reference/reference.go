// Package reference turns repository URLs into owner/name references.
package reference

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"repocard/models"
)

// Message is the user-facing text for an invalid reference
const Message = "Invalid GitHub URL"

// ErrInvalidReference is matched by every InvalidReferenceError
var ErrInvalidReference = errors.New("invalid repository reference")

// InvalidReferenceError reports a URL that does not name a repository
type InvalidReferenceError struct {
	Input  string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("%s: %q: %s", ErrInvalidReference, e.Input, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidReference) succeed.
func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}

// Parse extracts owner and name from the first two path segments of raw.
// Later segments, the query string and the fragment are ignored.
func Parse(raw string) (models.Reference, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return models.Reference{}, &InvalidReferenceError{Input: raw, Reason: "malformed URL"}
	}
	if u.Scheme == "" {
		return models.Reference{}, &InvalidReferenceError{Input: raw, Reason: "missing scheme"}
	}

	segments := pathSegments(u)
	if len(segments) < 2 {
		return models.Reference{}, &InvalidReferenceError{
			Input:  raw,
			Reason: fmt.Sprintf("expected at least 2 path segments, got %d", len(segments)),
		}
	}

	return models.Reference{
		Owner: segments[0],
		Name:  segments[1],
		Raw:   raw,
	}, nil
}

// pathSegments returns the non-empty segments of the URL path. Opaque URLs
// such as "mailto:a/b" carry their path in Opaque.
func pathSegments(u *url.URL) []string {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
