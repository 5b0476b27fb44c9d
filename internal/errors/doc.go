// Package errors provides coded, structured diagnostics for navsync.
//
// Every condition the bridge reports has a short code that maps to a
// message, a longer explanation and a documentation URL:
//
//	err := errors.New(errors.CodeInvalidTarget).
//	    WithDetail(`target "" is empty`).
//	    Wrap(location.ErrEmptyTarget)
//
//	logger.Warn(err.Message, err.LogAttrs()...)
//
// # Error Categories
//
//   - navigation: recovered locally, logged and otherwise ignored
//   - callback: consumer callbacks that failed; always propagated
//   - protocol: malformed frames on the transport
//   - config: invalid navsync.json
//
// Recovered errors never interrupt the browser's native behavior. A link
// whose target cannot be pushed is left for the browser to follow.
package errors
