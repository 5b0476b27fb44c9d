package browser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Fake is an in-memory Browser. It models a single tab: an ordered
// history stack with a cursor, popstate dispatch on traversal, and a flat
// set of elements addressable by "#id" or ".class" selectors.
//
// Fake is not safe for concurrent use, matching the single UI thread it
// stands in for.
type Fake struct {
	entries []url.URL
	index   int

	listeners []listener
	nextID    int

	elements []*FakeElement

	pushes   int
	replaces int
}

type listener struct {
	id int
	fn func() error
}

// NewFake returns a Fake whose only history entry is href.
// It panics if href is not an absolute URL.
func NewFake(href string) *Fake {
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() {
		panic(fmt.Sprintf("browser: NewFake requires an absolute URL, got %q", href))
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Fake{entries: []url.URL{*u}}
}

// Address implements Browser.
func (f *Fake) Address() url.URL {
	return f.entries[f.index]
}

// PushState implements Browser. Entries after the cursor are discarded.
func (f *Fake) PushState(u url.URL) {
	f.entries = append(f.entries[:f.index+1], u)
	f.index++
	f.pushes++
}

// ReplaceState implements Browser.
func (f *Fake) ReplaceState(u url.URL) {
	f.entries[f.index] = u
	f.replaces++
}

// OnPopState implements Browser.
func (f *Fake) OnPopState(fn func() error) func() {
	f.nextID++
	id := f.nextID
	f.listeners = append(f.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range f.listeners {
			if l.id == id {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				return
			}
		}
	}
}

// QuerySelector implements Browser for "#id" and ".class" selectors.
func (f *Fake) QuerySelector(selector string) (Element, bool) {
	for _, el := range f.elements {
		if el.matches(selector) {
			return el, true
		}
	}
	return nil, false
}

// Back moves one entry back, like history.back().
func (f *Fake) Back() error {
	return f.Go(-1)
}

// Forward moves one entry forward, like history.forward().
func (f *Fake) Forward() error {
	return f.Go(1)
}

// Go moves delta entries through the history stack and dispatches
// popstate to every listener once the address has changed. A move past
// either end of the stack is ignored, as browsers do. Listener errors do
// not stop dispatch; they are joined and returned.
func (f *Fake) Go(delta int) error {
	target := f.index + delta
	if delta == 0 || target < 0 || target >= len(f.entries) {
		return nil
	}
	f.index = target
	return f.dispatchPopState()
}

func (f *Fake) dispatchPopState() error {
	snapshot := make([]listener, len(f.listeners))
	copy(snapshot, f.listeners)

	var errs []error
	for _, l := range snapshot {
		if err := l.fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of entries in the history stack (history.length).
func (f *Fake) Len() int {
	return len(f.entries)
}

// Index returns the position of the current entry.
func (f *Fake) Index() int {
	return f.index
}

// Entries returns a copy of the history stack.
func (f *Fake) Entries() []url.URL {
	out := make([]url.URL, len(f.entries))
	copy(out, f.entries)
	return out
}

// Listeners returns the number of registered popstate listeners.
func (f *Fake) Listeners() int {
	return len(f.listeners)
}

// Pushes returns how many times PushState was called.
func (f *Fake) Pushes() int {
	return f.pushes
}

// Replaces returns how many times ReplaceState was called.
func (f *Fake) Replaces() int {
	return f.replaces
}

// AddElement adds an element to the document. attrs may include "id",
// "class" and "href".
func (f *Fake) AddElement(attrs map[string]string) *FakeElement {
	el := &FakeElement{attrs: make(map[string]string, len(attrs))}
	for k, v := range attrs {
		el.attrs[k] = v
	}
	f.elements = append(f.elements, el)
	return el
}

// AddLink adds an anchor with the given class and href.
func (f *Fake) AddLink(class, href string) *FakeElement {
	return f.AddElement(map[string]string{"class": class, "href": href})
}

// RemoveElement detaches el from the document. Listeners stay attached
// to el itself, as in the DOM.
func (f *Fake) RemoveElement(el *FakeElement) {
	for i, e := range f.elements {
		if e == el {
			f.elements = append(f.elements[:i], f.elements[i+1:]...)
			return
		}
	}
}

// Click dispatches ev to the first element matching selector. It returns
// whether a listener prevented the default action. When nothing prevented
// it and the element has an href, the Fake follows the link natively by
// pushing the resolved address, mirroring a full navigation.
func (f *Fake) Click(selector string, ev ClickEvent) (prevented bool, err error) {
	var target *FakeElement
	for _, el := range f.elements {
		if el.matches(selector) {
			target = el
			break
		}
	}
	if target == nil {
		return false, fmt.Errorf("browser: no element matches %q", selector)
	}

	ev.CurrentTarget = target
	err = target.dispatch(&ev)
	if ev.DefaultPrevented() {
		return true, err
	}
	// Modified clicks open elsewhere and leave this tab alone.
	if href, ok := target.Attribute("href"); ok && ev.IsPlainPrimary() {
		base := f.Address()
		if ref, perr := url.Parse(href); perr == nil {
			f.PushState(*base.ResolveReference(ref))
		}
	}
	return false, err
}

// FakeElement is an element owned by a Fake document.
type FakeElement struct {
	attrs     map[string]string
	listeners []clickListener
	nextID    int
}

type clickListener struct {
	id int
	fn func(*ClickEvent) error
}

// Attribute implements Element.
func (e *FakeElement) Attribute(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// SetAttribute sets an attribute on the element.
func (e *FakeElement) SetAttribute(name, value string) {
	e.attrs[name] = value
}

// OnClick implements Element.
func (e *FakeElement) OnClick(fn func(*ClickEvent) error) func() {
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, clickListener{id: id, fn: fn})
	return func() {
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Listeners returns the number of click listeners on the element.
func (e *FakeElement) Listeners() int {
	return len(e.listeners)
}

func (e *FakeElement) dispatch(ev *ClickEvent) error {
	snapshot := make([]clickListener, len(e.listeners))
	copy(snapshot, e.listeners)

	var errs []error
	for _, l := range snapshot {
		if err := l.fn(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *FakeElement) matches(selector string) bool {
	switch {
	case strings.HasPrefix(selector, "#"):
		return e.attrs["id"] != "" && e.attrs["id"] == selector[1:]
	case strings.HasPrefix(selector, "."):
		for _, class := range strings.Fields(e.attrs["class"]) {
			if class == selector[1:] {
				return true
			}
		}
	}
	return false
}

var _ Browser = (*Fake)(nil)
