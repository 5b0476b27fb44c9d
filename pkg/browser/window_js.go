//go:build js && wasm

package browser

import (
	"net/url"
	"syscall/js"
)

var _ Browser = (*Window)(nil)

// Window is the Browser backed by the page's global window object.
type Window struct {
	window   js.Value
	document js.Value
	history  js.Value
}

// NewWindow returns a Browser bound to js.Global().
func NewWindow() *Window {
	w := js.Global()
	return &Window{
		window:   w,
		document: w.Get("document"),
		history:  w.Get("history"),
	}
}

// Address implements Browser.
func (w *Window) Address() url.URL {
	href := w.window.Get("location").Get("href").String()
	u, err := url.Parse(href)
	if err != nil {
		// window.location.href is always a serialized, valid URL.
		panic(err)
	}
	return *u
}

// PushState implements Browser.
func (w *Window) PushState(u url.URL) {
	w.history.Call("pushState", js.Null(), "", u.String())
}

// ReplaceState implements Browser.
func (w *Window) ReplaceState(u url.URL) {
	w.history.Call("replaceState", js.Null(), "", u.String())
}

// OnPopState implements Browser. A listener error is handed to
// window.reportError so it surfaces exactly like an uncaught exception.
func (w *Window) OnPopState(fn func() error) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if err := fn(); err != nil {
			throw(err)
		}
		return nil
	})
	w.window.Call("addEventListener", "popstate", cb)
	return func() {
		w.window.Call("removeEventListener", "popstate", cb)
		cb.Release()
	}
}

// QuerySelector implements Browser.
func (w *Window) QuerySelector(selector string) (Element, bool) {
	el := w.document.Call("querySelector", selector)
	if el.IsNull() || el.IsUndefined() {
		return nil, false
	}
	return &domElement{v: el}, true
}

type domElement struct {
	v js.Value
}

func (e *domElement) Attribute(name string) (string, bool) {
	attr := e.v.Call("getAttribute", name)
	if attr.IsNull() {
		return "", false
	}
	return attr.String(), true
}

func (e *domElement) OnClick(fn func(*ClickEvent) error) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		raw := args[0]
		ev := NewClickEvent(e, func() { raw.Call("preventDefault") })
		ev.Button = raw.Get("button").Int()
		ev.CtrlKey = raw.Get("ctrlKey").Bool()
		ev.MetaKey = raw.Get("metaKey").Bool()
		ev.ShiftKey = raw.Get("shiftKey").Bool()
		ev.AltKey = raw.Get("altKey").Bool()
		if err := fn(ev); err != nil {
			throw(err)
		}
		return nil
	})
	e.v.Call("addEventListener", "click", cb)
	return func() {
		e.v.Call("removeEventListener", "click", cb)
		cb.Release()
	}
}

// throw reports err to the page. A Go panic inside a js.FuncOf callback
// would kill the whole wasm instance rather than fail one event.
func throw(err error) {
	jsErr := js.Global().Get("Error").New(err.Error())
	if report := js.Global().Get("reportError"); report.Type() == js.TypeFunction {
		report.Invoke(jsErr)
		return
	}
	js.Global().Get("console").Call("error", jsErr)
}
