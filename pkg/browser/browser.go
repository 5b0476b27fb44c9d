package browser

import "net/url"

// Browser is the injected view of the browser's global navigation state.
// All methods must be called from the UI goroutine.
type Browser interface {
	// Address returns a copy of the current document address.
	Address() url.URL

	// PushState appends a history entry for u without reloading.
	// It never dispatches popstate.
	PushState(u url.URL)

	// ReplaceState overwrites the current history entry with u.
	// It never dispatches popstate.
	ReplaceState(u url.URL)

	// OnPopState registers fn for back/forward notifications and returns
	// the function that removes it. The listener must re-read the address
	// itself; the notification carries no location.
	OnPopState(fn func() error) (unsubscribe func())

	// QuerySelector returns the first element matching selector.
	QuerySelector(selector string) (Element, bool)
}

// Element is a document element that can be bound as a link.
type Element interface {
	// Attribute returns the named attribute, if present.
	Attribute(name string) (string, bool)

	// OnClick registers fn as a click listener and returns its remover.
	OnClick(fn func(*ClickEvent) error) (remove func())
}

// Mouse buttons as reported by MouseEvent.button.
const (
	ButtonPrimary   = 0
	ButtonAuxiliary = 1
	ButtonSecondary = 2
)

// ClickEvent is the subset of a DOM MouseEvent the link binding reads.
type ClickEvent struct {
	Button   int
	CtrlKey  bool
	MetaKey  bool
	ShiftKey bool
	AltKey   bool

	// CurrentTarget is the element the listener was registered on.
	CurrentTarget Element

	prevented bool
	prevent   func()
}

// NewClickEvent returns an event whose PreventDefault also calls prevent.
// prevent may be nil.
func NewClickEvent(target Element, prevent func()) *ClickEvent {
	return &ClickEvent{CurrentTarget: target, prevent: prevent}
}

// PreventDefault cancels the browser's native handling of the click.
func (e *ClickEvent) PreventDefault() {
	if e.prevented {
		return
	}
	e.prevented = true
	if e.prevent != nil {
		e.prevent()
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *ClickEvent) DefaultPrevented() bool {
	return e.prevented
}

// HasModifier reports whether any modifier key was held. Modified clicks
// open new tabs or windows natively and must not be intercepted.
func (e *ClickEvent) HasModifier() bool {
	return e.CtrlKey || e.MetaKey || e.ShiftKey || e.AltKey
}

// IsPlainPrimary reports whether the event is an unmodified primary click.
func (e *ClickEvent) IsPlainPrimary() bool {
	return e.Button == ButtonPrimary && !e.HasModifier()
}
