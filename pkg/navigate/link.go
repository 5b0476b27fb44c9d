package navigate

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vango-dev/navsync/internal/errors"
	"github.com/vango-dev/navsync/pkg/browser"
)

// LinkClassPrefix prefixes the generated class names that tie a server
// rendered anchor to its Link binding.
const LinkClassPrefix = "link-"

// NewLinkID returns a fresh class name for a rendered anchor, such as
// "link-0f8fad5bd9cb469fa16570867728950e".
func NewLinkID() string {
	return LinkClassPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Link intercepts plain primary clicks on one anchor and turns them into
// Commander pushes. Every other click, and every click on an anchor whose
// href cannot be pushed, is left to the browser.
type Link struct {
	cmd      *Commander
	selector string
	onClick  NavigateFunc

	// remove is non-nil exactly while a click listener is registered.
	remove func()
}

// NewLink binds the element matching selector to cmd. onClick receives
// the address after an intercepted click; when nil, the Commander's own
// callback is used.
func NewLink(cmd *Commander, selector string, onClick NavigateFunc) *Link {
	return &Link{cmd: cmd, selector: selector, onClick: onClick}
}

// Selector returns the selector the Link binds to.
func (l *Link) Selector() string {
	return l.selector
}

// Activate looks the element up and registers the click listener.
// A missing element is logged and leaves the Link inactive; the anchor,
// if it appears later, then behaves as a plain link.
func (l *Link) Activate() error {
	if l.remove != nil {
		return nil
	}
	el, ok := l.cmd.browser.QuerySelector(l.selector)
	if !ok {
		err := errors.New(errors.CodeMissingElement).WithDetailf("selector %s", l.selector)
		l.cmd.logger.Warn(err.Message, err.LogAttrs()...)
		return nil
	}
	l.remove = el.OnClick(l.handleClick)
	return nil
}

// Deactivate removes the click listener.
func (l *Link) Deactivate() {
	if l.remove == nil {
		return
	}
	l.remove()
	l.remove = nil
}

// Active reports whether the click listener is registered.
func (l *Link) Active() bool {
	return l.remove != nil
}

// SetOnClick swaps the callback.
func (l *Link) SetOnClick(fn NavigateFunc) {
	l.onClick = fn
}

func (l *Link) handleClick(ev *browser.ClickEvent) error {
	if !ev.IsPlainPrimary() || ev.DefaultPrevented() {
		return nil
	}
	if ev.CurrentTarget == nil {
		return nil
	}
	href, ok := ev.CurrentTarget.Attribute("href")
	if !ok || !l.cmd.validTarget(href) {
		return nil
	}

	ev.PreventDefault()
	notify := l.onClick
	if notify == nil {
		notify = l.cmd.onNavigate
	}
	_, err := l.cmd.navigate(OpPush, href, notify)
	return err
}
