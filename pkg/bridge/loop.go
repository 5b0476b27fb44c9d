package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vango-dev/navsync/pkg/protocol"
)

// DefaultLoopSize is the task queue capacity used by NewLoop when size
// is not positive.
const DefaultLoopSize = 64

// Loop runs tasks one at a time on a single goroutine, standing in for
// the browser's main thread in native hosts such as tests and the
// simulator. Send is safe from any goroutine; the tasks themselves are
// the only code that touches the Browser. The wasm runtime does not use
// a Loop because the page's event loop already serializes its callbacks.
type Loop struct {
	tasks  chan func() error
	logger *slog.Logger
}

// NewLoop creates a Loop with the given queue capacity.
func NewLoop(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = DefaultLoopSize
	}
	if logger == nil {
		logger = slog.Default().With("component", "loop")
	}
	return &Loop{tasks: make(chan func() error, size), logger: logger}
}

// Send queues fn, waiting for room in the queue until ctx is done.
func (l *Loop) Send(ctx context.Context, fn func() error) error {
	select {
	case l.tasks <- fn:
		return nil
	default:
	}
	l.logger.Debug("loop queue full, waiting for room")
	select {
	case l.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes queued tasks until ctx is done or a task fails. A failed
// task stops the loop: its error means a callback contract was broken.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.tasks:
			if err := fn(); err != nil {
				l.logger.Error("task failed", "error", err)
				return fmt.Errorf("bridge: task failed: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Forward sends every command received on cmds to l as a navigation on
// m. A full queue holds Forward back rather than dropping the command.
// It returns when cmds is closed or ctx is done.
func Forward(ctx context.Context, cmds <-chan protocol.Command, l *Loop, m *Mount) error {
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			if err := l.Send(ctx, func() error {
				_, err := m.Navigate(cmd.To, cmd.Replace)
				return err
			}); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
