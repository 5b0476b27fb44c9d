package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/protocol"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := NewLoop(4, nil)
	ctx, cancel := context.WithCancel(context.Background())

	var order []int
	for i := 1; i <= 3; i++ {
		if err := l.Send(ctx, func() error { order = append(order, i); return nil }); err != nil {
			t.Fatal(err)
		}
	}
	l.Send(ctx, func() error { cancel(); return nil })

	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[2] != 3 {
		t.Errorf("order = %v", order)
	}
}

func TestLoopStopsOnTaskError(t *testing.T) {
	l := NewLoop(2, nil)
	boom := errors.New("boom")
	l.Send(context.Background(), func() error { return boom })

	if err := l.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
}

func TestForwardRunsCommandsOnLoop(t *testing.T) {
	b := browser.NewFake("https://example.com/a")
	sink := &reportSink{}
	m := New(b, Callbacks{}, WithReporter(sink))
	l := NewLoop(8, nil)

	cmds := make(chan protocol.Command, 2)
	cmds <- protocol.Command{Seq: 1, To: "/b"}
	cmds <- protocol.Command{Seq: 2, To: "/login", Replace: true}
	close(cmds)

	if err := Forward(context.Background(), cmds, l, m); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.Send(ctx, func() error { cancel(); return nil })
	l.Run(ctx)

	if b.Len() != 2 || b.Address().Path != "/login" {
		t.Errorf("Len()=%d path=%q", b.Len(), b.Address().Path)
	}
	if len(sink.reports) != 2 || sink.reports[1].Cause != protocol.CauseReplace {
		t.Errorf("reports = %+v", sink.reports)
	}
}

func TestLoopSendWaitsForRoom(t *testing.T) {
	l := NewLoop(1, nil)
	l.Send(context.Background(), func() error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Send(ctx, func() error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() on a full, idle loop error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestForwardBurstLargerThanQueue(t *testing.T) {
	b := browser.NewFake("https://example.com/a")
	m := New(b, Callbacks{})
	l := NewLoop(1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	cmds := make(chan protocol.Command, 3)
	cmds <- protocol.Command{Seq: 1, To: "/b"}
	cmds <- protocol.Command{Seq: 2, To: "/c"}
	cmds <- protocol.Command{Seq: 3, To: "/d"}
	close(cmds)

	if err := Forward(ctx, cmds, l, m); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	type state struct {
		n    int
		path string
	}
	got := make(chan state, 1)
	if err := l.Send(ctx, func() error {
		got <- state{b.Len(), b.Address().Path}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-got:
		if s.n != 4 || s.path != "/d" {
			t.Errorf("Len()=%d path=%q, want 4 and /d", s.n, s.path)
		}
	case <-ctx.Done():
		t.Fatal("loop did not drain")
	}
	cancel()
	<-done
}
