package history

import (
	"log/slog"

	"github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/location"
)

// ChangeFunc receives a Location on every reported change. A returned
// error is propagated, never swallowed.
type ChangeFunc func(location.Location) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithoutInitialReport disables the report sent on activation, for
// embeddings where another component owns the first-load report.
func WithoutInitialReport() Option {
	return func(w *Watcher) {
		w.initial = false
	}
}

// Watcher emits a Location for each back/forward transition.
type Watcher struct {
	browser  browser.Browser
	onChange ChangeFunc
	initial  bool
	logger   *slog.Logger

	// unsubscribe is non-nil exactly while the watcher is active.
	unsubscribe func()
}

// NewWatcher creates an inactive Watcher.
func NewWatcher(b browser.Browser, onChange ChangeFunc, opts ...Option) *Watcher {
	w := &Watcher{
		browser:  b,
		onChange: onChange,
		initial:  true,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default().With("component", "history")
	}
	return w
}

// Activate registers the popstate listener and emits the initial-load
// report. Calling Activate on an active Watcher does nothing.
//
// If the initial report fails the Watcher stays active and the error is
// returned; Deactivate must still be called to release the listener.
func (w *Watcher) Activate() error {
	if w.unsubscribe != nil {
		return nil
	}
	w.unsubscribe = w.browser.OnPopState(w.handlePopState)
	w.logger.Debug("history watcher activated")

	if !w.initial {
		return nil
	}
	return w.emit("initial")
}

// Deactivate removes the popstate listener. It is safe to call at any
// time, any number of times.
func (w *Watcher) Deactivate() {
	if w.unsubscribe == nil {
		return
	}
	w.unsubscribe()
	w.unsubscribe = nil
	w.logger.Debug("history watcher deactivated")
}

// Active reports whether the Watcher currently holds a subscription.
func (w *Watcher) Active() bool {
	return w.unsubscribe != nil
}

// SetOnChange swaps the callback without touching the subscription.
func (w *Watcher) SetOnChange(fn ChangeFunc) {
	w.onChange = fn
}

func (w *Watcher) handlePopState() error {
	// The event carries no address; some browsers dispatch it before the
	// address bar settles, so the location is read now, not captured.
	return w.emit("popstate")
}

func (w *Watcher) emit(cause string) error {
	if w.onChange == nil {
		return nil
	}
	loc := location.Snapshot(w.browser)
	if err := w.onChange(loc); err != nil {
		return errors.New(errors.CodeCallbackFailed).
			WithDetailf("onChange(%s) for %s", cause, loc).
			Wrap(err)
	}
	return nil
}
