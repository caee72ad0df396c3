package vitalpipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardview/vitalpipe/downsample"
)

// Batch is one pipeline invocation's worth of already-fetched rows. User and
// patient identity travel with the batch instead of ambient state so
// invocations stay pure and can run concurrently.
type Batch struct {
	UserID    string
	PatientID string

	// Rows holds the latest observation per parameter, already normalized.
	Rows []MetricRow
	// History holds raw per-parameter series in storage order (newest
	// first). Optional; only parameters with history get chart series.
	History map[string][]downsample.Point
	// Preferences holds this user's per-parameter overrides. Missing keys
	// fall back to reference defaults.
	Preferences map[string]UserPreference
}

// Result is everything one invocation produces. Owned by the caller;
// nothing is retained by the pipeline.
type Result struct {
	// Payloads is the priority-sorted, visibility-filtered board.
	Payloads []ViewPayload
	// Alerts holds the notifications that survived dedup and rate limits.
	Alerts []Alert
	// Series maps parameter id to its downsampled history, ascending time.
	Series map[string][]downsample.Point
}

// Pipeline turns metric batches into render-ready boards and alerts. The
// classify, rank, merge, and build stages are pure; only alert delivery
// touches the outside world. A Pipeline is safe for concurrent use: its
// fields are read-only during Process and the alert filters lock internally.
type Pipeline struct {
	WidgetsPerRow   int
	SparklinePoints int
	// SeriesThreshold caps each downsampled chart series. Zero disables
	// downsampling (series pass through); negative is a caller bug.
	SeriesThreshold int

	Deduper    *AlertDeduper
	Limiter    *AlertRateLimiter
	Router     *NotifyRouter
	Responders *ResponderPipeline // used when Router is nil

	IDSource func() string    // alert ids; default uuid
	Now      func() time.Time // default time.Now
}

// Process runs the full pipeline over one batch. Data-shape oddities never
// fail it; the only error paths are a nil pipeline, a negative series
// threshold, and context cancellation during downsampling.
func (p *Pipeline) Process(ctx context.Context, b Batch) (Result, error) {
	if p == nil {
		return Result{}, errors.New("pipeline: nil pipeline")
	}
	if p.SeriesThreshold < 0 {
		return Result{}, fmt.Errorf("pipeline: negative series threshold %d", p.SeriesThreshold)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ranked := make([]rankedMetric, 0, len(b.Rows))
	for i, row := range b.Rows {
		cm := ClassifyRow(row)
		var pref *UserPreference
		if up, ok := b.Preferences[row.Point.ParameterID]; ok {
			pref = &up
		}
		ranked = append(ranked, rankedMetric{
			Metric: cm,
			View:   ResolveView(i, p.WidgetsPerRow, row.Reference, pref),
		})
	}
	sortRanked(ranked)

	series, err := p.downsampleAll(ctx, b.History)
	if err != nil {
		return Result{}, err
	}

	res := Result{Series: series}
	for _, rm := range ranked {
		show, forced := visible(rm.View.Hidden, rm.Metric.Priority)
		if !show {
			continue
		}
		payload := BuildPayload(rm.Metric, rm.View, b.History[rm.Metric.Point.ParameterID], p.SparklinePoints)
		payload.ForceShown = forced
		res.Payloads = append(res.Payloads, payload)
	}

	res.Alerts = p.deliverAlerts(ranked)
	return res, nil
}

// downsampleAll reduces every history series concurrently. Each series is
// independent, so one goroutine per parameter with no shared state beyond
// the output map.
func (p *Pipeline) downsampleAll(ctx context.Context, history map[string][]downsample.Point) (map[string][]downsample.Point, error) {
	if len(history) == 0 {
		return nil, nil
	}

	out := make(map[string][]downsample.Point, len(history))
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for id, pts := range history {
		wg.Add(1)
		go func(id string, pts []downsample.Point) {
			defer wg.Done()
			asc := reversePoints(pts)
			reduced := asc
			if p.SeriesThreshold > 0 {
				var err error
				reduced, err = downsample.LTTBContext(ctx, asc, p.SeriesThreshold)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
			}
			mu.Lock()
			out[id] = reduced
			mu.Unlock()
		}(id, pts)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// deliverAlerts formats, enriches, filters, and routes alerts for every
// out-of-range metric, hidden or not.
func (p *Pipeline) deliverAlerts(ranked []rankedMetric) []Alert {
	var alerts []Alert
	for _, rm := range ranked {
		a, ok := FormatAlert(rm.Metric)
		if !ok {
			continue
		}
		if a.ID == "" {
			if p.IDSource != nil {
				a.ID = p.IDSource()
			} else {
				a.ID = uuid.NewString()
			}
		}
		if a.At.IsZero() {
			if p.Now != nil {
				a.At = p.Now()
			} else {
				a.At = time.Now()
			}
		}
		alerts = append(alerts, a)
	}
	alerts = p.Deduper.Filter(alerts)
	alerts = p.Limiter.Filter(alerts)

	if p.Router != nil {
		p.Router.Run(alerts)
	} else if p.Responders != nil {
		p.Responders.Run(alerts)
	}
	return alerts
}

// reversePoints returns a newest-first slice in ascending time order.
func reversePoints(pts []downsample.Point) []downsample.Point {
	if len(pts) == 0 {
		return nil
	}
	out := make([]downsample.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
