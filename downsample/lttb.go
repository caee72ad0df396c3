// Package downsample reduces ordered time series to a bounded number of
// points while preserving visual shape, using largest-triangle-three-buckets
// (LTTB). It offers an in-memory variant and a bounded-memory streaming
// variant that produce identical output for identical input.
package downsample

import (
	"context"
	"math"
	"time"
)

// Point is one sample of a series. Flagged carries a device-level alert
// marker through downsampling untouched.
type Point struct {
	T       time.Time `json:"t"`
	V       float64   `json:"v"`
	Flagged bool      `json:"flagged,omitempty"`
}

// LTTB returns at most threshold points of pts, always keeping the first and
// last input points. Degenerate inputs (empty series, threshold <= 2,
// threshold >= len(pts)) are returned unchanged.
func LTTB(pts []Point, threshold int) []Point {
	out, _ := lttb(context.Background(), pts, threshold)
	return out
}

// LTTBContext is LTTB with cancellation checked once per bucket, for large
// series inside an abortable request.
func LTTBContext(ctx context.Context, pts []Point, threshold int) ([]Point, error) {
	return lttb(ctx, pts, threshold)
}

func lttb(ctx context.Context, pts []Point, threshold int) ([]Point, error) {
	n := len(pts)
	if n == 0 || threshold <= 2 || threshold >= n {
		return pts, nil
	}

	out := make([]Point, 0, threshold)
	out = append(out, pts[0])

	every := float64(n-2) / float64(threshold-2)
	a := 0
	for i := 0; i < threshold-2; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := bucketStart(i, every)
		end := bucketStart(i+1, every)

		avgStart := end
		avgEnd := bucketStart(i+2, every)
		if avgEnd > n {
			avgEnd = n
		}
		cx, cy := centroid(pts[avgStart:avgEnd])

		sel := selectPoint(pts[a], pts[start:end], cx, cy) + start
		out = append(out, pts[sel])
		a = sel
	}

	out = append(out, pts[n-1])
	return out, nil
}

// bucketStart maps interior bucket i to its first index. Index 0 is the fixed
// first point, so interior buckets tile [1, n-1).
func bucketStart(i int, every float64) int {
	return int(math.Floor(float64(i)*every)) + 1
}

func centroid(pts []Point) (float64, float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	var sx, sy float64
	for _, p := range pts {
		sx += axis(p.T)
		sy += p.V
	}
	f := float64(len(pts))
	return sx / f, sy / f
}

// selectPoint returns the index within bucket of the point forming the
// largest triangle with anchor a and centroid (cx, cy). When no candidate
// yields a comparable area (NaN inputs, degenerate bucket) the last evaluated
// index wins rather than failing.
func selectPoint(a Point, bucket []Point, cx, cy float64) int {
	ax := axis(a.T)
	ay := a.V
	sel := len(bucket) - 1
	maxArea := -1.0
	for i, p := range bucket {
		area := math.Abs((ax-cx)*(p.V-ay)-(ax-axis(p.T))*(cy-ay)) / 2
		if area > maxArea {
			maxArea = area
			sel = i
		}
	}
	return sel
}

// axis converts a timestamp to the numeric x-axis used for area computation.
func axis(t time.Time) float64 {
	return float64(t.UnixMilli())
}
