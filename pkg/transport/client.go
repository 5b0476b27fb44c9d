package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/navsync/pkg/protocol"
)

// ErrClientClosed is returned by Report after Close.
var ErrClientClosed = errors.New("transport: client closed")

// ServerError is the reason a client stopped after a fatal error frame.
type ServerError struct {
	Code    protocol.ErrorCode
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("transport: server error %s: %s", e.Code, e.Message)
}

type dialConfig struct {
	dialer       *websocket.Dialer
	header       http.Header
	bufferSize   int
	writeTimeout time.Duration
	logger       *slog.Logger
	onError      func(protocol.ErrorMessage)
}

// DialOption configures Dial.
type DialOption func(*dialConfig)

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) DialOption {
	return func(c *dialConfig) {
		c.dialer = d
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) DialOption {
	return func(c *dialConfig) {
		c.header = h
	}
}

// WithCommandBuffer sets the capacity of the Commands channel.
func WithCommandBuffer(n int) DialOption {
	return func(c *dialConfig) {
		c.bufferSize = n
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) DialOption {
	return func(c *dialConfig) {
		c.logger = l
	}
}

// WithErrorHandler is called for every non-fatal error frame.
func WithErrorHandler(fn func(protocol.ErrorMessage)) DialOption {
	return func(c *dialConfig) {
		c.onError = fn
	}
}

// Client is the page side of a connection. It implements
// bridge.Reporter.
type Client struct {
	conn     *websocket.Conn
	config   dialConfig
	logger   *slog.Logger
	commands chan protocol.Command

	writeMu sync.Mutex

	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial connects to a transport server at url.
func Dial(ctx context.Context, url string, opts ...DialOption) (*Client, error) {
	config := dialConfig{
		dialer:       websocket.DefaultDialer,
		bufferSize:   16,
		writeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.logger
	if logger == nil {
		logger = slog.Default().With("component", "transport-client")
	}

	conn, _, err := config.dialer.DialContext(ctx, url, config.header)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	conn.SetReadLimit(protocol.FrameHeaderSize + protocol.MaxPayloadSize)

	c := &Client{
		conn:     conn,
		config:   config,
		logger:   logger,
		commands: make(chan protocol.Command, config.bufferSize),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Report sends r to the server.
func (c *Client) Report(r protocol.Report) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	data, err := protocol.ReportFrame(r).Encode()
	if err != nil {
		return fmt.Errorf("transport: report: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("transport: report: %w", err)
	}
	return nil
}

// Commands delivers navigation commands in arrival order. The channel
// is closed when the connection ends.
func (c *Client) Commands() <-chan protocol.Command {
	return c.commands
}

// Err returns why the connection ended, or nil while it is open or
// after a clean Close.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close closes the connection and waits for the reader to stop.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		c.conn.Close()
	})
	<-c.loopDone
	return nil
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) readLoop() {
	defer close(c.loopDone)
	defer close(c.commands)
	defer c.conn.Close()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !c.closing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.setErr(err)
			}
			return
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.logger.Warn("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameCommand:
			cmd, err := protocol.DecodeCommand(frame.Payload)
			if err != nil {
				c.logger.Warn("command decode error", "error", err)
				continue
			}
			select {
			case c.commands <- cmd:
			case <-c.done:
				return
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				c.logger.Warn("error frame decode error", "error", err)
				continue
			}
			if em.Fatal {
				c.setErr(&ServerError{Code: em.Code, Message: em.Message})
				return
			}
			c.logger.Warn("server error", "code", em.Code.String(), "message", em.Message)
			if c.config.onError != nil {
				c.config.onError(em)
			}

		default:
			c.logger.Warn("unexpected frame type", "type", frame.Type.String())
		}
	}
}
