package vitalpipe

import (
	"strconv"
	"strings"
	"time"

	"github.com/wardview/vitalpipe/downsample"
)

// MissingValueText is rendered for absent readings. An em-dash, never "0" or
// blank, so a missing value can not be mistaken for a real zero.
const MissingValueText = "—"

// DefaultSparklinePoints bounds the inline recent-history slice.
const DefaultSparklinePoints = 24

// ViewLimits bundles the threshold bands and display bounds a chart consumer
// needs to draw color zones without recomputation.
type ViewLimits struct {
	Thresholds Thresholds `json:"thresholds"`
	DisplayMin *float64   `json:"display_min,omitempty"`
	DisplayMax *float64   `json:"display_max,omitempty"`
}

// ChartConfig is the serialized chart contract. Labels and Data are aligned,
// time-ascending arrays.
type ChartConfig struct {
	Type   ChartType  `json:"type"`
	Title  string     `json:"title"`
	Labels []string   `json:"labels"`
	Data   []float64  `json:"data"`
	Limits ViewLimits `json:"limits"`
}

// ViewPayload is the render-ready representation of one parameter, the only
// artifact exposed to the presentation boundary.
type ViewPayload struct {
	ParameterID   string             `json:"parameter_id"`
	DisplayName   string             `json:"display_name"`
	Slug          string             `json:"slug"`
	Category      string             `json:"category"`
	Unit          string             `json:"unit"`
	Description   string             `json:"description,omitempty"`
	Value         *float64           `json:"value,omitempty"`
	ValueText     string             `json:"value_text"`
	Status        Status             `json:"status"`
	Priority      int                `json:"priority"`
	ForceShown    bool               `json:"force_shown,omitempty"`
	Hidden        bool               `json:"hidden,omitempty"`
	Chart         ChartType          `json:"chart"`
	AllowedCharts []ChartOption      `json:"allowed_charts,omitempty"`
	Limits        ViewLimits         `json:"limits"`
	Grid          GridRect           `json:"grid"`
	DisplayOrder  int                `json:"display_order"`
	History       []downsample.Point `json:"history,omitempty"`
	ChartConfig   ChartConfig        `json:"chart_config"`
}

// BuildPayload assembles the final render payload for one metric. history is
// the raw recent slice in storage order (newest first); it is truncated to
// sparklinePoints and reversed to ascending time before charting.
func BuildPayload(cm ClassifiedMetric, rv ResolvedView, history []downsample.Point, sparklinePoints int) ViewPayload {
	if sparklinePoints <= 0 {
		sparklinePoints = DefaultSparklinePoints
	}
	recent := ascendingRecent(history, sparklinePoints)
	limits := ViewLimits{
		Thresholds: cm.Reference.Thresholds,
		DisplayMin: cm.Reference.DisplayMin,
		DisplayMax: cm.Reference.DisplayMax,
	}

	labels := make([]string, len(recent))
	data := make([]float64, len(recent))
	for i, p := range recent {
		labels[i] = p.T.Format("15:04:05")
		data[i] = p.V
	}

	return ViewPayload{
		ParameterID:   cm.Point.ParameterID,
		DisplayName:   cm.Reference.DisplayName,
		Slug:          Slug(cm.Reference.DisplayName),
		Category:      cm.Reference.Category,
		Unit:          cm.Reference.Unit,
		Description:   cm.Reference.Description,
		Value:         cm.Point.Value,
		ValueText:     FormatValue(cm.Point.Value),
		Status:        cm.Status,
		Priority:      cm.Priority,
		Hidden:        rv.Hidden,
		Chart:         rv.Chart,
		AllowedCharts: cm.Reference.AllowedCharts,
		Limits:        limits,
		Grid:          rv.Grid,
		DisplayOrder:  rv.DisplayOrder,
		History:       recent,
		ChartConfig: ChartConfig{
			Type:   rv.Chart,
			Title:  cm.Reference.DisplayName,
			Labels: labels,
			Data:   data,
			Limits: limits,
		},
	}
}

// ascendingRecent keeps the newest limit points of a newest-first slice and
// returns them oldest first.
func ascendingRecent(history []downsample.Point, limit int) []downsample.Point {
	if len(history) == 0 {
		return nil
	}
	if len(history) > limit {
		history = history[:limit]
	}
	out := make([]downsample.Point, len(history))
	for i, p := range history {
		out[len(history)-1-i] = p
	}
	return out
}

// Slug derives a stable URL/DOM-safe key from a display name: lower case,
// runs of non-alphanumerics collapsed to a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// FormatValue renders a reading for display. Absent values get the em-dash
// placeholder; present values keep at most two decimals with trailing zeros
// trimmed.
func FormatValue(v *float64) string {
	if v == nil {
		return MissingValueText
	}
	s := strconv.FormatFloat(*v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

// FormatValueUnit appends the unit when one is configured and the value is
// present.
func FormatValueUnit(v *float64, unit string) string {
	s := FormatValue(v)
	if v == nil || unit == "" {
		return s
	}
	return s + " " + unit
}

// FormatTimestamp renders an observation time, or the placeholder when the
// row carried none.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return MissingValueText
	}
	return t.Format("2006-01-02 15:04:05")
}
