package vitalpipe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type staticSource struct {
	batch Batch
	calls int
}

func (s *staticSource) Next(ctx context.Context) (Batch, error) {
	s.calls++
	return s.batch, nil
}

func TestMonitorProcessesOnceThenStops(t *testing.T) {
	buf := &bytes.Buffer{}
	src := &staticSource{batch: testBatch()}
	m := NewMonitor(src, &Pipeline{WidgetsPerRow: 3})
	m.Interval = time.Hour // never ticks in this test
	m.Out = buf

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1 immediate run", src.calls)
	}
	out := buf.String()
	if !strings.Contains(out, "Heart Rate") || !strings.Contains(out, "[CRIT]") {
		t.Fatalf("board not rendered: %q", out)
	}
}

func TestMonitorNilDependencies(t *testing.T) {
	m := &Monitor{}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for nil source")
	}
	m.Source = &staticSource{}
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for nil pipeline")
	}
}

type countingSink struct {
	consumed int
}

func (c *countingSink) Consume(res Result) error {
	c.consumed++
	return nil
}

func TestMonitorFeedsSink(t *testing.T) {
	sink := &countingSink{}
	m := NewMonitor(&staticSource{batch: testBatch()}, &Pipeline{})
	m.Out = &bytes.Buffer{}
	m.Sink = sink

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = m.Run(ctx)

	if sink.consumed != 1 {
		t.Fatalf("sink consumed = %d, want 1", sink.consumed)
	}
}
