// Package transport carries location reports and navigation commands
// over a WebSocket.
//
// The client side wraps a connection dialed from the page runtime:
//
//	client, err := transport.Dial(ctx, "ws://localhost:8080/ws")
//	mount := bridge.New(win, callbacks, bridge.WithReporter(client))
//	go bridge.Forward(ctx, client.Commands(), loop, mount)
//
// The server side is an http.Handler. Every connection becomes a
// Session; each decoded report is passed to the Handler inside an
// OpenTelemetry span named "navsync.report":
//
//	srv := transport.NewServer(transport.HandlerFunc(
//	    func(ctx context.Context, s *transport.Session, r protocol.Report) error {
//	        if r.Location.Pathname == "/old" {
//	            return s.Navigate("/new", true)
//	        }
//	        return nil
//	    }),
//	    transport.WithMetrics(metrics.New()),
//	)
//	http.Handle("/ws", srv)
//
// Malformed frames are answered with a non-fatal error frame and the
// connection stays open. A report the Handler rejects is answered the
// same way with code ErrRejected.
package transport
