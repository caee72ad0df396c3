package vitalpipe

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wardview/vitalpipe/downsample"
)

func testBatch() Batch {
	hr := MetricRow{
		Point: MetricPoint{ParameterID: "hr", Value: fptr(150)},
		Reference: ParameterReference{
			DisplayName: "Heart Rate",
			Category:    "cardiac",
			Unit:        "bpm",
			Thresholds: Thresholds{
				NormalMin:   fptr(60),
				NormalMax:   fptr(100),
				CriticalMin: fptr(40),
				CriticalMax: fptr(140),
			},
			DefaultChart: ChartLine,
		},
	}
	temp := MetricRow{
		Point: MetricPoint{ParameterID: "temp", Value: fptr(37)},
		Reference: ParameterReference{
			DisplayName:  "Body Temp",
			Category:     "general",
			Unit:         "°C",
			Thresholds:   bodyTempThresholds(),
			DefaultChart: ChartArea,
		},
	}
	spo2 := MetricRow{
		Point: MetricPoint{ParameterID: "spo2", Value: fptr(91)},
		Reference: ParameterReference{
			DisplayName:  "SpO2",
			Category:     "resp",
			Unit:         "%",
			Thresholds:   Thresholds{NormalMin: fptr(94), CriticalMin: fptr(88)},
			DefaultChart: ChartLine,
		},
	}
	resp := MetricRow{
		Point: MetricPoint{ParameterID: "rr", Value: fptr(14)},
		Reference: ParameterReference{
			DisplayName:  "Respiration",
			Category:     "resp",
			Unit:         "rpm",
			Thresholds:   Thresholds{NormalMin: fptr(10), NormalMax: fptr(22)},
			DefaultChart: ChartLine,
		},
	}
	return Batch{
		UserID:    "u1",
		PatientID: "p1",
		Rows:      []MetricRow{hr, temp, spo2, resp},
	}
}

func TestPipelineProcessOrdersAndAlerts(t *testing.T) {
	buf := &bytes.Buffer{}
	seq := 0
	pipe := &Pipeline{
		WidgetsPerRow:   3,
		SparklinePoints: 24,
		Responders:      &ResponderPipeline{Responders: []AlertResponder{&LogResponder{Out: buf}}},
		IDSource: func() string {
			seq++
			return fmt.Sprintf("a%d", seq)
		},
		Now: func() time.Time { return time.Unix(1000, 0) },
	}

	res, err := pipe.Process(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// hr is critical, spo2 warning, temp and rr normal (category/name ties)
	wantOrder := []string{"Heart Rate", "SpO2", "Body Temp", "Respiration"}
	if len(res.Payloads) != len(wantOrder) {
		t.Fatalf("payloads = %d, want %d", len(res.Payloads), len(wantOrder))
	}
	for i, name := range wantOrder {
		if res.Payloads[i].DisplayName != name {
			t.Fatalf("position %d = %s, want %s", i, res.Payloads[i].DisplayName, name)
		}
	}

	if len(res.Alerts) != 2 {
		t.Fatalf("alerts = %d, want 2", len(res.Alerts))
	}
	if res.Alerts[0].Severity != SeverityError || res.Alerts[1].Severity != SeverityWarning {
		t.Fatalf("alert severities = %s/%s", res.Alerts[0].Severity, res.Alerts[1].Severity)
	}
	if res.Alerts[0].ID != "a1" || res.Alerts[0].At != time.Unix(1000, 0) {
		t.Fatalf("alert not enriched: %+v", res.Alerts[0])
	}
	if !strings.Contains(buf.String(), "Heart Rate") {
		t.Fatalf("responder output missing alert: %s", buf.String())
	}
}

func TestPipelineHiddenButCriticalOverride(t *testing.T) {
	batch := testBatch()
	batch.Preferences = map[string]UserPreference{
		"hr": {Hidden: true}, // critical -> force shown
		"rr": {Hidden: true}, // normal -> excluded
	}
	pipe := &Pipeline{WidgetsPerRow: 3}

	res, err := pipe.Process(context.Background(), batch)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	var hr *ViewPayload
	for i := range res.Payloads {
		if res.Payloads[i].ParameterID == "hr" {
			hr = &res.Payloads[i]
		}
		if res.Payloads[i].ParameterID == "rr" {
			t.Fatal("hidden normal metric leaked into the board")
		}
	}
	if hr == nil {
		t.Fatal("hidden critical metric missing from the board")
	}
	if !hr.ForceShown {
		t.Fatal("hidden critical metric not flagged force-shown")
	}
}

func TestPipelineDownsamplesSeries(t *testing.T) {
	batch := testBatch()
	base := time.Unix(1_700_000_000, 0)
	var hist []downsample.Point
	for i := 0; i < 600; i++ {
		// newest first, storage order
		hist = append(hist, downsample.Point{
			T: base.Add(-time.Duration(i) * time.Minute),
			V: float64(i % 50),
		})
	}
	batch.History = map[string][]downsample.Point{"hr": hist}

	pipe := &Pipeline{WidgetsPerRow: 3, SeriesThreshold: 120}
	res, err := pipe.Process(context.Background(), batch)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	series := res.Series["hr"]
	if len(series) != 120 {
		t.Fatalf("series len = %d, want 120", len(series))
	}
	for i := 1; i < len(series); i++ {
		if !series[i].T.After(series[i-1].T) {
			t.Fatalf("series not ascending at %d", i)
		}
	}
	// endpoints preserved: oldest and newest samples survive
	if series[0].T != hist[len(hist)-1].T || series[len(series)-1].T != hist[0].T {
		t.Fatal("series endpoints not preserved")
	}
}

func TestPipelineStructuralErrors(t *testing.T) {
	var nilPipe *Pipeline
	if _, err := nilPipe.Process(context.Background(), Batch{}); err == nil {
		t.Fatal("nil pipeline should error")
	}
	pipe := &Pipeline{SeriesThreshold: -1}
	if _, err := pipe.Process(context.Background(), Batch{}); err == nil {
		t.Fatal("negative threshold should error")
	}
}

func TestPipelineEmptyBatch(t *testing.T) {
	pipe := &Pipeline{}
	res, err := pipe.Process(context.Background(), Batch{})
	if err != nil {
		t.Fatalf("empty batch should not error: %v", err)
	}
	if len(res.Payloads) != 0 || len(res.Alerts) != 0 {
		t.Fatalf("empty batch produced output: %+v", res)
	}
}

func TestPipelineCancelledDownsampling(t *testing.T) {
	batch := testBatch()
	base := time.Unix(1_700_000_000, 0)
	var hist []downsample.Point
	for i := 0; i < 5000; i++ {
		hist = append(hist, downsample.Point{T: base.Add(-time.Duration(i) * time.Second), V: float64(i)})
	}
	batch.History = map[string][]downsample.Point{"hr": hist}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pipe := &Pipeline{SeriesThreshold: 100}
	if _, err := pipe.Process(ctx, batch); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func BenchmarkPipelineProcess(b *testing.B) {
	batch := testBatch()
	base := time.Unix(1_700_000_000, 0)
	hist := make([]downsample.Point, 10_000)
	for i := range hist {
		hist[i] = downsample.Point{T: base.Add(-time.Duration(i) * time.Second), V: float64(i % 97)}
	}
	batch.History = map[string][]downsample.Point{"hr": hist, "temp": hist, "spo2": hist}
	pipe := &Pipeline{WidgetsPerRow: 3, SeriesThreshold: 200}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = pipe.Process(context.Background(), batch)
	}
}
