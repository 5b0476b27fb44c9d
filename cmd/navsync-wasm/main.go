//go:build js && wasm

// Command navsync-wasm is the in-page runtime. It mounts navsync on the
// page's window, binds every anchor carrying the data-navsync attribute
// and talks to a navsync server through the browser's WebSocket.
//
//	GOOS=js GOARCH=wasm go build -o navsync.wasm ./cmd/navsync-wasm
//
// The page sets window.navsyncURL to the WebSocket endpoint before
// starting the module. window.navsync.push(to) and
// window.navsync.replace(to) are exposed for scripts.
//
// Every Mount call happens inside a js.FuncOf callback. The page's event
// loop is paused while one runs, so popstate, click, socket and script
// callbacks are serialized exactly as they are in JavaScript and no
// bridge.Loop is needed.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/vango-dev/navsync/pkg/bridge"
	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/protocol"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var sock *socket
	var reporter bridge.Reporter = discard{}
	if u := js.Global().Get("navsyncURL"); u.Type() == js.TypeString {
		sock = dialSocket(u.String(), logger)
		reporter = sock
	}

	win := browser.NewWindow()
	mount := bridge.New(win, bridge.Callbacks{},
		bridge.WithLogger(logger),
		bridge.WithReporter(reporter),
	)
	links := js.Global().Get("document").Call("querySelectorAll", "a[data-navsync]")
	for i := 0; i < links.Length(); i++ {
		id := links.Index(i).Get("id").String()
		if id == "" {
			continue
		}
		mount.AddLink("#" + id)
	}

	expose(mount, logger)
	if sock != nil {
		// Activation waits for the socket so the initial report is
		// not lost.
		sock.mount = mount
	} else {
		js.Global().Call("queueMicrotask", js.FuncOf(func(this js.Value, args []js.Value) any {
			if err := mount.Activate(); err != nil {
				logger.Error("activate", "error", err)
			}
			return nil
		}))
	}

	select {}
}

// expose installs window.navsync.push and window.navsync.replace. Each
// returns the navigation result name.
func expose(m *bridge.Mount, logger *slog.Logger) {
	navigate := func(replace bool) js.Func {
		return js.FuncOf(func(this js.Value, args []js.Value) any {
			if len(args) == 0 {
				return nil
			}
			// Non-string targets reach the commander as-is and are
			// rejected there.
			var to any = args[0]
			if args[0].Type() == js.TypeString {
				to = args[0].String()
			}
			result, err := m.Navigate(to, replace)
			if err != nil {
				logger.Error("navigate", "error", err)
			}
			return result.String()
		})
	}
	obj := js.Global().Get("Object").New()
	obj.Set("push", navigate(false))
	obj.Set("replace", navigate(true))
	js.Global().Set("navsync", obj)
}

type discard struct{}

func (discard) Report(protocol.Report) error { return nil }

// socket is a Reporter over the page's WebSocket. Commands it receives
// are applied to the Mount from the message callback.
type socket struct {
	ws     js.Value
	mount  *bridge.Mount
	logger *slog.Logger
}

func dialSocket(url string, logger *slog.Logger) *socket {
	ws := js.Global().Get("WebSocket").New(url)
	ws.Set("binaryType", "arraybuffer")
	s := &socket{ws: ws, logger: logger.With("component", "socket")}

	ws.Call("addEventListener", "open", js.FuncOf(func(this js.Value, args []js.Value) any {
		if err := s.mount.Activate(); err != nil {
			s.logger.Error("activate", "error", err)
		}
		return nil
	}))
	ws.Call("addEventListener", "message", js.FuncOf(func(this js.Value, args []js.Value) any {
		raw := js.Global().Get("Uint8Array").New(args[0].Get("data"))
		data := make([]byte, raw.Length())
		js.CopyBytesToGo(data, raw)
		s.receive(data)
		return nil
	}))
	return s
}

func (s *socket) receive(data []byte) {
	frame, err := protocol.DecodeFrame(data)
	if err != nil {
		s.logger.Warn("frame decode error", "error", err)
		return
	}
	switch frame.Type {
	case protocol.FrameCommand:
		cmd, err := protocol.DecodeCommand(frame.Payload)
		if err != nil {
			s.logger.Warn("command decode error", "error", err)
			return
		}
		s.logger.Debug("navigation command", "to", cmd.To, "replace", cmd.Replace)
		if s.mount == nil {
			return
		}
		if _, err := s.mount.Navigate(cmd.To, cmd.Replace); err != nil {
			s.logger.Error("navigate", "error", err)
		}
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(frame.Payload)
		if err == nil {
			s.logger.Warn("server error", "code", em.Code.String(), "message", em.Message)
		}
	}
}

// Report implements bridge.Reporter. Reports made after the socket
// closed are dropped.
func (s *socket) Report(r protocol.Report) error {
	if s.ws.Get("readyState").Int() != 1 {
		return nil
	}
	data, err := protocol.ReportFrame(r).Encode()
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	buf := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(buf, data)
	s.ws.Call("send", buf)
	return nil
}
