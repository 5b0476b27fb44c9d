// Package location produces canonical snapshots of the browser address.
//
// A Location is the only value that crosses from the client bridge to the
// server: a pathname and a search string, encoded on the wire as
//
//	{"pathname": "/blog/post", "search": "?page=2"}
//
// Locations are never cached. Every report derives a fresh value from the
// live address at the moment it is sent:
//
//	loc := location.Snapshot(win)
//
// Resolve implements the browser's `new URL(to, base)` rules so that
// navigation targets can be compared with the current document address
// before the history stack is touched.
package location
