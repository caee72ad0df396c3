package vitalpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// BatchSource produces the next batch of rows for one pipeline run.
type BatchSource interface {
	Next(ctx context.Context) (Batch, error)
}

// Monitor re-runs the pipeline over a source at a fixed interval, rendering
// each board and feeding an optional sink. Each tick is one independent
// pipeline invocation over a fresh batch.
type Monitor struct {
	Source   BatchSource
	Pipeline *Pipeline
	Interval time.Duration
	Out      io.Writer
	Sink     ResultSink
}

func NewMonitor(src BatchSource, pipe *Pipeline) *Monitor {
	return &Monitor{
		Source:   src,
		Pipeline: pipe,
		Interval: 5 * time.Second,
		Out:      os.Stdout,
	}
}

// Run blocks until ctx is done. It processes immediately once, then every
// interval.
func (m *Monitor) Run(ctx context.Context) error {
	if m.Source == nil {
		return errors.New("monitor: Source is nil")
	}
	if m.Pipeline == nil {
		return errors.New("monitor: Pipeline is nil")
	}
	if m.Interval <= 0 {
		m.Interval = 5 * time.Second
	}
	if m.Out == nil {
		m.Out = io.Discard
	}

	if err := m.processOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.processOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) processOnce(ctx context.Context) error {
	batch, err := m.Source.Next(ctx)
	if err != nil {
		fmt.Fprintf(m.Out, "source error: %v\n", err)
		return err
	}
	res, err := m.Pipeline.Process(ctx, batch)
	if err != nil {
		fmt.Fprintf(m.Out, "process error: %v\n", err)
		return err
	}
	if err := RenderBoard(m.Out, res); err != nil {
		return err
	}
	if m.Sink != nil {
		if err := m.Sink.Consume(res); err != nil {
			fmt.Fprintf(m.Out, "sink error: %v\n", err)
		}
	}
	return nil
}
