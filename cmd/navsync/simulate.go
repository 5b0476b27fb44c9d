package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/navsync/pkg/bridge"
	"github.com/vango-dev/navsync/pkg/browser"
	"github.com/vango-dev/navsync/pkg/metrics"
	"github.com/vango-dev/navsync/pkg/navigate"
	"github.com/vango-dev/navsync/pkg/protocol"
	"github.com/vango-dev/navsync/pkg/transport"
)

// stepKind is one simulated user or program action.
type stepKind string

const (
	stepPush    stepKind = "push"
	stepReplace stepKind = "replace"
	stepClick   stepKind = "click"
	stepBack    stepKind = "back"
	stepForward stepKind = "forward"
	stepUnmount stepKind = "unmount"
	stepMount   stepKind = "mount"
)

type step struct {
	kind stepKind
	arg  string
}

func (s step) String() string {
	if s.arg == "" {
		return string(s.kind)
	}
	return string(s.kind) + ":" + s.arg
}

// parseStep parses "push:/a", "click:.nav", "back" and so on.
func parseStep(raw string) (step, error) {
	name, arg, hasArg := strings.Cut(raw, ":")
	s := step{kind: stepKind(name), arg: arg}
	switch s.kind {
	case stepPush, stepReplace, stepClick:
		if !hasArg || arg == "" {
			return step{}, fmt.Errorf("step %q needs an argument (%s:<value>)", raw, name)
		}
	case stepBack, stepForward, stepUnmount, stepMount:
		if hasArg {
			return step{}, fmt.Errorf("step %q takes no argument", raw)
		}
	default:
		return step{}, fmt.Errorf("unknown step %q", raw)
	}
	return s, nil
}

// parseLink parses a --link value "class=href".
func parseLink(raw string) (class, href string, err error) {
	class, href, ok := strings.Cut(raw, "=")
	if !ok || class == "" {
		return "", "", fmt.Errorf("link %q must be class=href", raw)
	}
	return class, href, nil
}

// reportLine is one line of simulate output.
type reportLine struct {
	Seq      uint64 `json:"seq"`
	Cause    string `json:"cause"`
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
}

// printer writes every report as a JSON line.
type printer struct {
	enc *json.Encoder
}

func (p *printer) Report(r protocol.Report) error {
	return p.enc.Encode(reportLine{
		Seq:      r.Seq,
		Cause:    r.Cause.String(),
		Pathname: r.Location.Pathname,
		Search:   r.Location.Search,
	})
}

// tee reports to every reporter in order and stops at the first error.
type tee []bridge.Reporter

func (t tee) Report(r protocol.Report) error {
	for _, rep := range t {
		if err := rep.Report(r); err != nil {
			return err
		}
	}
	return nil
}

type simulation struct {
	start    string
	links    []string
	steps    []step
	recorder navigate.Recorder

	// connect is a report server WebSocket URL. When set, reports are
	// also sent there and its commands are applied between steps.
	connect string
	settle  time.Duration
}

func simulateCmd() *cobra.Command {
	var (
		start   string
		links   []string
		verbose bool
		stats   bool
		connect string
		settle  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate <step>...",
		Short: "Drive an in-memory browser and print each reported location",
		Long: `Mount navsync on an in-memory browser, run the steps in order and
print every reported location as a JSON line.

Steps:
  push:<to>          programmatic push
  replace:<to>       programmatic replace
  click:<selector>   plain primary click on "#id" or ".class"
  back, forward      history traversal
  unmount, mount     deactivate or reactivate everything

Examples:
  navsync simulate push:/a push:/b back forward
  navsync simulate --link nav=/about click:.nav back
  navsync simulate --start 'https://app.test/list?page=2' replace:?page=3
  navsync simulate --connect ws://localhost:8080/ws push:/old`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sim := simulation{start: start, links: links, connect: connect, settle: settle}
			for _, raw := range args {
				s, err := parseStep(raw)
				if err != nil {
					return err
				}
				sim.steps = append(sim.steps, s)
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			var reg *prometheus.Registry
			if stats {
				reg = prometheus.NewRegistry()
				sim.recorder = metrics.New(metrics.WithRegistry(reg))
			}
			if err := sim.run(cmd.Context(), cmd.OutOrStdout(), logger); err != nil {
				return err
			}
			if stats {
				return printStats(cmd.ErrOrStderr(), reg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "http://localhost/", "Initial address of the browser")
	cmd.Flags().StringArrayVar(&links, "link", nil, "Add an intercepted anchor, as class=href (repeatable)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print navigation outcome counts to stderr")
	cmd.Flags().StringVar(&connect, "connect", "", "Also report to a navsync server at this WebSocket URL")
	cmd.Flags().DurationVar(&settle, "settle", 200*time.Millisecond, "With --connect, time to wait for server commands after the last step")

	return cmd
}

func (sim simulation) run(ctx context.Context, w io.Writer, logger *slog.Logger) error {
	if u, err := url.Parse(sim.start); err != nil || !u.IsAbs() {
		return fmt.Errorf("--start %q must be an absolute URL", sim.start)
	}
	fake := browser.NewFake(sim.start)

	var reporter bridge.Reporter = &printer{enc: json.NewEncoder(w)}
	var client *transport.Client
	if sim.connect != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		c, err := transport.Dial(dialCtx, sim.connect, transport.WithClientLogger(logger.With("component", "client")))
		cancel()
		if err != nil {
			return err
		}
		defer c.Close()
		client = c
		reporter = tee{reporter, client}
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithReporter(reporter),
	}
	if sim.recorder != nil {
		opts = append(opts, bridge.WithRecorder(sim.recorder))
	}
	m := bridge.New(fake, bridge.Callbacks{}, opts...)
	for _, raw := range sim.links {
		class, href, err := parseLink(raw)
		if err != nil {
			return err
		}
		fake.AddLink(class, href)
		m.AddLink("." + class)
	}

	if client == nil {
		if err := m.Activate(); err != nil {
			return err
		}
		for _, s := range sim.steps {
			if err := sim.apply(fake, m, s); err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
		}
		m.Deactivate()
		return nil
	}
	return sim.runConnected(ctx, client, fake, m, logger)
}

// runConnected runs the steps on a Loop while server commands are
// forwarded onto the same Loop.
func (sim simulation) runConnected(ctx context.Context, client *transport.Client, fake *browser.Fake, m *bridge.Mount, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := bridge.NewLoop(0, logger.With("component", "loop"))
	loopDone := make(chan struct{})
	var loopErr error
	go func() {
		defer close(loopDone)
		loopErr = loop.Run(ctx)
	}()
	go bridge.Forward(ctx, client.Commands(), loop, m)

	do := func(fn func() error) error {
		res := make(chan error, 1)
		if err := loop.Send(ctx, func() error {
			res <- fn()
			return nil
		}); err != nil {
			return err
		}
		select {
		case err := <-res:
			return err
		case <-loopDone:
			return loopErr
		}
	}

	if err := do(m.Activate); err != nil {
		return err
	}
	for _, s := range sim.steps {
		if err := do(func() error { return sim.apply(fake, m, s) }); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}

	select {
	case <-time.After(sim.settle):
	case <-loopDone:
		return loopErr
	}
	if err := do(func() error { m.Deactivate(); return nil }); err != nil {
		return err
	}
	cancel()
	<-loopDone
	return client.Err()
}

func (sim simulation) apply(fake *browser.Fake, m *bridge.Mount, s step) error {
	switch s.kind {
	case stepPush:
		_, err := m.Push(s.arg)
		return err
	case stepReplace:
		_, err := m.Replace(s.arg)
		return err
	case stepClick:
		_, err := fake.Click(s.arg, browser.ClickEvent{Button: browser.ButtonPrimary})
		return err
	case stepBack:
		return fake.Back()
	case stepForward:
		return fake.Forward()
	case stepUnmount:
		m.Deactivate()
		return nil
	case stepMount:
		return m.Activate()
	}
	return fmt.Errorf("unknown step %q", s.kind)
}

// printStats writes one line per navigation outcome counter in reg.
func printStats(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "navigations_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(w, "navigations %s %v\n", strings.Join(labels, " "), m.GetCounter().GetValue())
		}
	}
	return nil
}
