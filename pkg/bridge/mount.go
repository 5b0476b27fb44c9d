package bridge

import (
	stderrors "errors"
	"log/slog"

	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/history"
	"github.com/vango-dev/navsync/pkg/location"
	"github.com/vango-dev/navsync/pkg/navigate"
	"github.com/vango-dev/navsync/pkg/protocol"
)

// Component is a unit with a mount/unmount lifecycle.
type Component interface {
	// Activate starts the component. Activating an active component
	// does nothing.
	Activate() error

	// Deactivate releases everything Activate acquired. It is safe to
	// call on an inactive component.
	Deactivate()
}

var (
	_ Component = (*history.Watcher)(nil)
	_ Component = (*navigate.Link)(nil)
	_ Component = (*navigate.Navigation)(nil)
	_ Component = (*Mount)(nil)
)

// LocationFunc is a location callback.
type LocationFunc func(location.Location) error

// Callbacks are the named hooks a Mount reports through. Nil hooks are
// skipped.
type Callbacks struct {
	// OnChange receives the initial-load report and every back/forward
	// transition.
	OnChange LocationFunc

	// OnNavigate receives the address after every push or replace.
	OnNavigate LocationFunc

	// OnClick receives the address after an intercepted link click.
	// When nil, OnNavigate is used.
	OnClick LocationFunc
}

// Reporter receives every change as a sequenced report.
// transport.Client implements it.
type Reporter interface {
	Report(protocol.Report) error
}

// Option configures a Mount.
type Option func(*mountOptions)

type mountOptions struct {
	logger   *slog.Logger
	recorder navigate.Recorder
	reporter Reporter
	initial  bool
}

// WithLogger sets the logger shared by the watcher, commander and links.
func WithLogger(logger *slog.Logger) Option {
	return func(o *mountOptions) {
		o.logger = logger
	}
}

// WithRecorder sets the navigation outcome recorder.
func WithRecorder(r navigate.Recorder) Option {
	return func(o *mountOptions) {
		o.recorder = r
	}
}

// WithReporter sends every change to r as well as to the callbacks.
func WithReporter(r Reporter) Option {
	return func(o *mountOptions) {
		o.reporter = r
	}
}

// WithoutInitialReport suppresses the report sent on activation.
func WithoutInitialReport() Option {
	return func(o *mountOptions) {
		o.initial = false
	}
}

// Mount owns one Watcher, one Commander and the Links bound through it.
type Mount struct {
	cb       Callbacks
	reporter Reporter
	logger   *slog.Logger

	watcher *history.Watcher
	cmd     *navigate.Commander
	links   []*navigate.Link

	active     bool
	activating bool
	navCause   protocol.Cause
	seq        uint64
}

// New creates an inactive Mount on b.
func New(b browser.Browser, cb Callbacks, opts ...Option) *Mount {
	o := mountOptions{initial: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default().With("component", "bridge")
	}

	m := &Mount{
		cb:       cb,
		reporter: o.reporter,
		logger:   o.logger,
		navCause: protocol.CausePush,
	}

	watcherOpts := []history.Option{history.WithLogger(o.logger)}
	if !o.initial {
		watcherOpts = append(watcherOpts, history.WithoutInitialReport())
	}
	m.watcher = history.NewWatcher(b, m.onChange, watcherOpts...)

	cmdOpts := []navigate.Option{navigate.WithLogger(o.logger)}
	if o.recorder != nil {
		cmdOpts = append(cmdOpts, navigate.WithRecorder(o.recorder))
	}
	m.cmd = navigate.NewCommander(b, m.onNavigate, cmdOpts...)
	return m
}

// Activate starts the watcher and then every link, in the order they
// were added. If the watcher's initial report fails, the Mount is still
// active and the error is returned; call Deactivate to unwind.
func (m *Mount) Activate() error {
	if m.active {
		return nil
	}
	m.active = true

	m.activating = true
	err := m.watcher.Activate()
	m.activating = false

	for _, l := range m.links {
		if lerr := l.Activate(); lerr != nil {
			err = stderrors.Join(err, lerr)
		}
	}
	return err
}

// Deactivate stops the links and then the watcher.
func (m *Mount) Deactivate() {
	if !m.active {
		return
	}
	for i := len(m.links) - 1; i >= 0; i-- {
		m.links[i].Deactivate()
	}
	m.watcher.Deactivate()
	m.active = false
}

// Active reports whether the Mount is active.
func (m *Mount) Active() bool {
	return m.active
}

// Update replaces the callbacks, as a re-render with new props would.
// Nothing is re-registered and no report is sent.
func (m *Mount) Update(cb Callbacks) {
	m.cb = cb
}

// AddLink binds the anchor matching selector. On an active Mount the
// binding is activated immediately.
func (m *Mount) AddLink(selector string) *navigate.Link {
	l := navigate.NewLink(m.cmd, selector, m.onClick)
	m.links = append(m.links, l)
	if m.active {
		// A missing element is logged by the link and never an error.
		_ = l.Activate()
	}
	return l
}

// RemoveLink deactivates and forgets the binding for selector.
func (m *Mount) RemoveLink(selector string) bool {
	for i, l := range m.links {
		if l.Selector() == selector {
			l.Deactivate()
			m.links = append(m.links[:i], m.links[i+1:]...)
			return true
		}
	}
	return false
}

// Links returns the number of link bindings.
func (m *Mount) Links() int {
	return len(m.links)
}

// Push appends a history entry for to. See navigate.Commander.Push.
func (m *Mount) Push(to string) (navigate.Result, error) {
	return m.Navigate(to, false)
}

// Replace overwrites the current history entry. See
// navigate.Commander.Replace.
func (m *Mount) Replace(to string) (navigate.Result, error) {
	return m.Navigate(to, true)
}

// Navigate performs a push or replace for a loosely typed target, as
// received in a server command.
func (m *Mount) Navigate(to any, replace bool) (navigate.Result, error) {
	if replace {
		m.navCause = protocol.CauseReplace
		defer func() { m.navCause = protocol.CausePush }()
		return m.cmd.ReplaceValue(to)
	}
	return m.cmd.PushValue(to)
}

func (m *Mount) onChange(loc location.Location) error {
	cause := protocol.CausePopState
	if m.activating {
		cause = protocol.CauseInitial
	}
	return m.emit(cause, m.cb.OnChange, loc)
}

func (m *Mount) onNavigate(loc location.Location) error {
	return m.emit(m.navCause, m.cb.OnNavigate, loc)
}

func (m *Mount) onClick(loc location.Location) error {
	fn := m.cb.OnClick
	if fn == nil {
		fn = m.cb.OnNavigate
	}
	return m.emit(protocol.CauseLink, fn, loc)
}

// emit reports loc to the reporter and then to fn. Both run even if the
// first fails; their errors are joined.
func (m *Mount) emit(cause protocol.Cause, fn LocationFunc, loc location.Location) error {
	var errs []error
	if m.reporter != nil {
		m.seq++
		r := protocol.Report{Seq: m.seq, Cause: cause, Location: loc}
		if err := m.reporter.Report(r); err != nil {
			errs = append(errs, err)
		}
	}
	if fn != nil {
		if err := fn(loc); err != nil {
			errs = append(errs, err)
		}
	}
	m.logger.Debug("location emitted", "cause", cause.String(), "location", loc.String())
	return stderrors.Join(errs...)
}
