// Package navigate changes the browser address on behalf of the user or
// the server and reports every change.
//
// A Commander owns the two history mutations:
//
//	cmd := navigate.NewCommander(win, onNavigate)
//	cmd.Push("/blog?page=2")   // new history entry
//	cmd.Replace("/login")      // overwrite the current entry
//
// Each call resolves the target against the document address, mutates
// the history stack, snapshots the new address and hands it to the
// callback, all before returning. Invalid targets are logged and
// ignored. A target that resolves to the current address is not pushed
// again, which absorbs the duplicate activations some renderers produce
// for a single user action; the callback still runs once for it.
//
// Link binds a Commander to a rendered anchor so that plain primary
// clicks become in-app navigations, and Navigation performs a single
// server-issued navigation when it is activated.
package navigate
