// Package browser defines the process-wide browser state the bridge
// depends on: the address bar, the session-history stack, the popstate
// notification channel and the document's link elements.
//
// Nothing else in navsync touches that state directly. Production builds
// running under GOOS=js GOARCH=wasm use Window, which talks to the real
// window object through syscall/js. Tests and the simulate command use
// Fake, an in-memory model of the same behavior:
//
//	b := browser.NewFake("https://example.com/a?x=1")
//	b.PushState(mustParse("https://example.com/b"))
//	b.Back() // dispatches popstate after the address is restored
package browser
