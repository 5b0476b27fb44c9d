package location

import (
	"errors"
	"net/url"
	"strings"
)

// Location is a canonical {pathname, search} pair describing a browser address.
type Location struct {
	// Pathname is the percent-encoded path. It always begins with "/".
	Pathname string `json:"pathname"`

	// Search is the query string including its leading "?", or "" when
	// the address has no query.
	Search string `json:"search"`
}

// Source is anything that can report the current document address.
// browser.Browser satisfies it.
type Source interface {
	Address() url.URL
}

// Resolution errors.
var (
	ErrEmptyTarget   = errors.New("location: empty navigation target")
	ErrInvalidTarget = errors.New("location: invalid navigation target")
	ErrCrossOrigin   = errors.New("location: navigation target has a different origin")
)

// Snapshot reads the current address from src and returns it as a Location.
// It has no side effects. Callers must snapshot again for every report
// instead of holding on to an earlier value.
func Snapshot(src Source) Location {
	u := src.Address()
	return FromURL(&u)
}

// FromURL converts a URL into a Location using the same rules the browser
// applies to window.location.pathname and window.location.search.
func FromURL(u *url.URL) Location {
	loc := Location{Pathname: u.EscapedPath()}
	if loc.Pathname == "" || loc.Pathname[0] != '/' {
		loc.Pathname = "/" + loc.Pathname
	}
	if u.RawQuery != "" {
		loc.Search = "?" + u.RawQuery
	}
	return loc
}

// String returns the path and query as they would appear in a link.
func (l Location) String() string {
	return l.Pathname + l.Search
}

// URL returns the Location as a relative URL reference.
func (l Location) URL() *url.URL {
	u := &url.URL{RawQuery: strings.TrimPrefix(l.Search, "?")}
	if p, err := url.PathUnescape(l.Pathname); err == nil {
		u.Path = p
		u.RawPath = l.Pathname
	} else {
		u.Path = l.Pathname
	}
	return u
}

// Resolve resolves to against base the way `new URL(to, base)` does and
// returns the absolute result.
//
// Surrounding whitespace is ignored and tabs and newlines anywhere in to
// are removed, as URL parsing in the browser does. Empty targets, unparsable targets and
// targets on another origin are rejected: history entries may only be
// created for the document's own origin.
func Resolve(base url.URL, to string) (url.URL, error) {
	to = strings.TrimSpace(controlStripper.Replace(to))
	if to == "" {
		return url.URL{}, ErrEmptyTarget
	}

	ref, err := url.Parse(to)
	if err != nil {
		return url.URL{}, errors.Join(ErrInvalidTarget, err)
	}

	resolved := base.ResolveReference(ref)
	if !SameOrigin(&base, resolved) {
		return url.URL{}, ErrCrossOrigin
	}
	if resolved.Path == "" {
		resolved.Path = "/"
		resolved.RawPath = ""
	}
	return *resolved, nil
}

var controlStripper = strings.NewReplacer("\t", "", "\r", "", "\n", "")

// SameOrigin reports whether a and b share scheme and host.
func SameOrigin(a, b *url.URL) bool {
	return strings.EqualFold(a.Scheme, b.Scheme) && strings.EqualFold(a.Host, b.Host)
}

// SameDocument reports whether a and b name the same address, ignoring
// only the case of scheme and host. Fragments are significant, matching
// a comparison of URL.href values.
func SameDocument(a, b *url.URL) bool {
	return SameOrigin(a, b) && a.EscapedPath() == b.EscapedPath() &&
		a.RawQuery == b.RawQuery && a.ForceQuery == b.ForceQuery &&
		a.EscapedFragment() == b.EscapedFragment()
}
