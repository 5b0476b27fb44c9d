package navigate

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/location"
)

// NavigateFunc receives the address after a navigation. A returned
// error is propagated to the caller of Push or Replace.
type NavigateFunc func(location.Location) error

// Recorder observes navigation outcomes. metrics.Collector implements it.
type Recorder interface {
	RecordNavigation(op, result string)
}

// Option configures a Commander.
type Option func(*Commander)

// WithLogger sets the logger used for rejected targets.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Commander) {
		c.logger = logger
	}
}

// WithRecorder sets a Recorder notified after every call.
func WithRecorder(r Recorder) Option {
	return func(c *Commander) {
		c.recorder = r
	}
}

// Commander pushes and replaces history entries and reports the result.
type Commander struct {
	browser    browser.Browser
	onNavigate NavigateFunc
	logger     *slog.Logger
	recorder   Recorder
}

// NewCommander creates a Commander that reports through onNavigate.
func NewCommander(b browser.Browser, onNavigate NavigateFunc, opts ...Option) *Commander {
	c := &Commander{
		browser:    b,
		onNavigate: onNavigate,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "navigate")
	}
	return c
}

// SetOnNavigate swaps the callback.
func (c *Commander) SetOnNavigate(fn NavigateFunc) {
	c.onNavigate = fn
}

// Push appends a history entry for to and reports the new address.
func (c *Commander) Push(to string) (Result, error) {
	return c.navigate(OpPush, to, c.onNavigate)
}

// Replace overwrites the current history entry with to and reports the
// new address.
func (c *Commander) Replace(to string) (Result, error) {
	return c.navigate(OpReplace, to, c.onNavigate)
}

// PushValue is Push for a loosely typed target, such as a value decoded
// from a transport payload. Anything but a string is rejected.
func (c *Commander) PushValue(to any) (Result, error) {
	s, ok := c.targetString(OpPush, to)
	if !ok {
		return ResultRejected, nil
	}
	return c.Push(s)
}

// ReplaceValue is Replace for a loosely typed target.
func (c *Commander) ReplaceValue(to any) (Result, error) {
	s, ok := c.targetString(OpReplace, to)
	if !ok {
		return ResultRejected, nil
	}
	return c.Replace(s)
}

// Navigate pushes, or replaces when replace is set.
func (c *Commander) Navigate(to string, replace bool) (Result, error) {
	if replace {
		return c.Replace(to)
	}
	return c.Push(to)
}

func (c *Commander) targetString(op Op, to any) (string, bool) {
	s, ok := to.(string)
	if !ok {
		c.reject(op, errors.New(errors.CodeInvalidTarget).
			WithDetailf("target has type %T, want string", to))
		c.record(op, ResultRejected)
	}
	return s, ok
}

// navigate runs resolve, mutate, snapshot and notify in one call so no
// other listener can observe the stack changed before the callback ran.
func (c *Commander) navigate(op Op, to string, notify NavigateFunc) (Result, error) {
	current := c.browser.Address()
	target, err := location.Resolve(current, to)
	if err != nil {
		c.reject(op, resolveError(to, err))
		c.record(op, ResultRejected)
		return ResultRejected, nil
	}

	result := c.mutate(op, &current, &target)
	c.record(op, result)

	if notify == nil {
		return result, nil
	}
	loc := location.Snapshot(c.browser)
	if err := notify(loc); err != nil {
		return result, errors.New(errors.CodeCallbackFailed).
			WithDetailf("onNavigate(%s) for %s", op, loc).
			Wrap(err)
	}
	return result, nil
}

func (c *Commander) mutate(op Op, current, target *url.URL) Result {
	if location.SameDocument(current, target) {
		c.logger.Debug("navigation target is current address",
			"op", op, "href", target.String())
		return ResultDeduplicated
	}
	if op == OpReplace {
		c.browser.ReplaceState(*target)
		return ResultReplaced
	}
	c.browser.PushState(*target)
	return ResultPushed
}

func (c *Commander) reject(op Op, err *errors.NavsyncError) {
	c.logger.Warn(err.Message, append([]any{"op", op}, err.LogAttrs()...)...)
}

func (c *Commander) record(op Op, r Result) {
	if c.recorder != nil {
		c.recorder.RecordNavigation(string(op), r.String())
	}
}

// validTarget reports whether to would be accepted by Push or Replace
// from the current address, without touching the stack.
func (c *Commander) validTarget(to string) bool {
	_, err := location.Resolve(c.browser.Address(), to)
	return err == nil
}

func resolveError(to string, err error) *errors.NavsyncError {
	code := errors.CodeInvalidTarget
	if stderrors.Is(err, location.ErrCrossOrigin) {
		code = errors.CodeCrossOrigin
	}
	return errors.New(code).WithDetail(fmt.Sprintf("target %q", to)).Wrap(err)
}
