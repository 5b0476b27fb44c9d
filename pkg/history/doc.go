// Package history reports back/forward navigation to the server.
//
// A Watcher listens for the browser's popstate notification and emits a
// fresh location.Location for every traversal, plus one initial-load
// report each time it is activated:
//
//	w := history.NewWatcher(win, func(loc location.Location) error {
//	    return conn.Report(loc)
//	})
//	if err := w.Activate(); err != nil {
//	    return err
//	}
//	defer w.Deactivate()
//
// Activation is idempotent. Re-rendering the component that owns a
// Watcher must call SetOnChange, never Activate again, so that the
// initial report is sent once per real mount.
package history
