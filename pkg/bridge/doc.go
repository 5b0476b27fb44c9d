// Package bridge mounts the history watcher, the navigation commander and
// any link bindings as one unit with an explicit lifecycle.
//
// A Mount is what a renderer attaches to its root: Activate on mount,
// Deactivate on unmount, Update on every re-render. All three location
// sources converge on one feed:
//
//	m := bridge.New(win, bridge.Callbacks{
//	    OnChange:   reportToServer, // initial load and back/forward
//	    OnNavigate: reportToServer, // push and replace
//	})
//	m.AddLink(".link-3f2a...")
//	if err := m.Activate(); err != nil {
//	    return err
//	}
//	defer m.Deactivate()
//
// With WithReporter every change is additionally sent as a sequenced
// protocol.Report tagged with its cause.
//
// Browser state is single-threaded. Loop runs every operation on one
// goroutine, and Forward feeds server commands from a transport into it.
package bridge
