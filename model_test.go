package vitalpipe

import (
	"testing"
	"time"
)

func TestParseOptionalFloat(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want *float64
	}{
		{name: "nil", in: nil, want: nil},
		{name: "float64", in: 36.6, want: fptr(36.6)},
		{name: "int", in: 72, want: fptr(72)},
		{name: "int64", in: int64(98), want: fptr(98)},
		{name: "numeric string", in: "12.5", want: fptr(12.5)},
		{name: "padded numeric string", in: " 40 ", want: fptr(40)},
		{name: "null sentinel", in: "null", want: nil},
		{name: "NULL sentinel", in: "NULL", want: nil},
		{name: "empty string", in: "", want: nil},
		{name: "garbage string", in: "n/a", want: nil},
		{name: "unsupported type", in: []int{1}, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseOptionalFloat(tc.in)
			switch {
			case got == nil && tc.want == nil:
			case got == nil || tc.want == nil:
				t.Fatalf("ParseOptionalFloat(%v) = %v, want %v", tc.in, got, tc.want)
			case *got != *tc.want:
				t.Fatalf("ParseOptionalFloat(%v) = %v, want %v", tc.in, *got, *tc.want)
			}
		})
	}
}

func TestParseOptionalTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

	if got := ParseOptionalTime(at); got == nil || !got.Equal(at) {
		t.Fatalf("time.Time passthrough failed: %v", got)
	}
	if got := ParseOptionalTime(at.UnixMilli()); got == nil || !got.Equal(at) {
		t.Fatalf("epoch millis failed: %v", got)
	}
	if got := ParseOptionalTime("2025-03-01T12:30:00Z"); got == nil || !got.Equal(at) {
		t.Fatalf("RFC3339 failed: %v", got)
	}
	for _, bad := range []any{nil, "", "null", "yesterday", time.Time{}} {
		if got := ParseOptionalTime(bad); got != nil {
			t.Fatalf("ParseOptionalTime(%v) = %v, want nil", bad, got)
		}
	}
}

func TestParseChartType(t *testing.T) {
	cases := []struct {
		in   string
		want ChartType
	}{
		{"line", ChartLine},
		{"BAR", ChartBar},
		{" area ", ChartArea},
		{"gauge", ChartGauge},
		{"pie", ChartLine}, // unknown falls back
		{"", ChartLine},
	}
	for _, tc := range cases {
		if got := ParseChartType(tc.in); got != tc.want {
			t.Fatalf("ParseChartType(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	row := NormalizeRow(RawRow{
		ParameterID: "hr",
		Value:       "150",
		Timestamp:   "2025-03-01T12:30:00Z",
		AlertFlag:   true,
		DisplayName: " Heart Rate ",
		Category:    "cardiac",
		Unit:        "bpm",
		NormalMin:   60, NormalMax: "100",
		CriticalMin: "null", CriticalMax: 140.0,
		DefaultChart:  "line",
		AllowedCharts: []RawChartOption{{Type: "line", IsDefault: true}, {Type: "nonsense"}},
	})

	if row.Point.Value == nil || *row.Point.Value != 150 {
		t.Fatalf("value = %v", row.Point.Value)
	}
	if row.Point.At == nil || !row.Point.AlertFlag {
		t.Fatalf("point = %+v", row.Point)
	}
	if row.Reference.DisplayName != "Heart Rate" {
		t.Fatalf("display name = %q", row.Reference.DisplayName)
	}
	th := row.Reference.Thresholds
	if th.NormalMin == nil || th.NormalMax == nil || *th.NormalMax != 100 {
		t.Fatalf("normal bounds = %+v", th)
	}
	if th.CriticalMin != nil {
		t.Fatalf("critical min should be absent, got %v", *th.CriticalMin)
	}
	if th.CriticalMax == nil || *th.CriticalMax != 140 {
		t.Fatalf("critical max = %+v", th.CriticalMax)
	}
	if len(row.Reference.AllowedCharts) != 2 || row.Reference.AllowedCharts[1].Type != ChartLine {
		t.Fatalf("allowed charts = %+v", row.Reference.AllowedCharts)
	}
}

func TestNormalizeRowFallsBackToParameterID(t *testing.T) {
	row := NormalizeRow(RawRow{ParameterID: "spo2"})
	if row.Reference.DisplayName != "spo2" {
		t.Fatalf("display name = %q, want parameter id fallback", row.Reference.DisplayName)
	}
	if row.Point.Value != nil || row.Point.At != nil {
		t.Fatalf("empty row should normalize to absent fields: %+v", row.Point)
	}
}
