package vitalpipe

import (
	"strconv"
	"strings"
	"time"
)

// Status is the classification tier of a single observation.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// ChartType identifies how a parameter is rendered.
type ChartType string

const (
	ChartLine  ChartType = "line"
	ChartBar   ChartType = "bar"
	ChartArea  ChartType = "area"
	ChartGauge ChartType = "gauge"
)

// ParseChartType validates a free-form chart name at the ingestion boundary.
// Unknown names fall back to line so a bad row never breaks rendering.
func ParseChartType(s string) ChartType {
	switch ChartType(strings.ToLower(strings.TrimSpace(s))) {
	case ChartLine:
		return ChartLine
	case ChartBar:
		return ChartBar
	case ChartArea:
		return ChartArea
	case ChartGauge:
		return ChartGauge
	default:
		return ChartLine
	}
}

// MetricPoint is one observation as read from storage. Immutable after
// normalization; nil Value/At mean the row carried no usable reading.
type MetricPoint struct {
	ParameterID string     `json:"parameter_id"`
	Value       *float64   `json:"value,omitempty"`
	At          *time.Time `json:"at,omitempty"`
	AlertFlag   bool       `json:"alert_flag,omitempty"`
}

// Thresholds holds the per-parameter classification bounds. Any bound may be
// absent; absent bounds never trigger their tier.
type Thresholds struct {
	NormalMin   *float64 `json:"normal_min,omitempty"`
	NormalMax   *float64 `json:"normal_max,omitempty"`
	CriticalMin *float64 `json:"critical_min,omitempty"`
	CriticalMax *float64 `json:"critical_max,omitempty"`
}

// ChartOption is one entry of a parameter's allowed chart list.
type ChartOption struct {
	Type      ChartType `json:"type"`
	IsDefault bool      `json:"is_default,omitempty"`
}

// ParameterReference is the static per-parameter metadata used for
// classification and display.
type ParameterReference struct {
	DisplayName   string        `json:"display_name"`
	Category      string        `json:"category"`
	Unit          string        `json:"unit"`
	Description   string        `json:"description,omitempty"`
	Thresholds    Thresholds    `json:"thresholds"`
	DisplayMin    *float64      `json:"display_min,omitempty"`
	DisplayMax    *float64      `json:"display_max,omitempty"`
	DefaultChart  ChartType     `json:"default_chart"`
	AllowedCharts []ChartOption `json:"allowed_charts,omitempty"`
}

// GridRect is a saved widget placement on the 12-column layout grid.
type GridRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// UserPreference is the per-user, per-parameter override set. A missing
// preference row means defaults; zero DisplayOrder is treated as unset.
type UserPreference struct {
	Chart        ChartType `json:"chart,omitempty"` // empty = no override
	Hidden       bool      `json:"hidden,omitempty"`
	DisplayOrder int       `json:"display_order,omitempty"`
	Grid         *GridRect `json:"grid,omitempty"`
}

// MetricRow is the normalized join of one observation with its reference
// metadata, the unit the pipeline stages operate on.
type MetricRow struct {
	Point     MetricPoint
	Reference ParameterReference
}

// ClassifiedMetric is a MetricRow tagged with its computed status and
// priority. Created per invocation, never persisted.
type ClassifiedMetric struct {
	Point     MetricPoint
	Reference ParameterReference
	Status    Status
	Priority  int
}

// RawChartOption mirrors a loosely typed allowed-chart row.
type RawChartOption struct {
	Type      string
	IsDefault bool
}

// RawRow mirrors one loosely typed latest-value storage row. Numeric fields
// arrive as whatever the driver produced (float64, int64, numeric string,
// "null", nil) and are normalized exactly once by NormalizeRow so downstream
// stages never re-check shapes.
type RawRow struct {
	ParameterID string
	Value       any
	Timestamp   any // time.Time, epoch millis, or RFC3339 string
	AlertFlag   bool

	DisplayName string
	Category    string
	Unit        string
	Description string

	NormalMin, NormalMax     any
	CriticalMin, CriticalMax any
	DisplayMin, DisplayMax   any

	DefaultChart  string
	AllowedCharts []RawChartOption
}

// NormalizeRow converts a loose storage row into a typed MetricRow.
// Malformed fields become absent values, never errors; the pipeline stays
// total over arbitrary row shapes.
func NormalizeRow(raw RawRow) MetricRow {
	ref := ParameterReference{
		DisplayName: strings.TrimSpace(raw.DisplayName),
		Category:    strings.TrimSpace(raw.Category),
		Unit:        strings.TrimSpace(raw.Unit),
		Description: strings.TrimSpace(raw.Description),
		Thresholds: Thresholds{
			NormalMin:   ParseOptionalFloat(raw.NormalMin),
			NormalMax:   ParseOptionalFloat(raw.NormalMax),
			CriticalMin: ParseOptionalFloat(raw.CriticalMin),
			CriticalMax: ParseOptionalFloat(raw.CriticalMax),
		},
		DisplayMin:   ParseOptionalFloat(raw.DisplayMin),
		DisplayMax:   ParseOptionalFloat(raw.DisplayMax),
		DefaultChart: ParseChartType(raw.DefaultChart),
	}
	for _, opt := range raw.AllowedCharts {
		ref.AllowedCharts = append(ref.AllowedCharts, ChartOption{
			Type:      ParseChartType(opt.Type),
			IsDefault: opt.IsDefault,
		})
	}
	if ref.DisplayName == "" {
		ref.DisplayName = raw.ParameterID
	}
	return MetricRow{
		Point: MetricPoint{
			ParameterID: raw.ParameterID,
			Value:       ParseOptionalFloat(raw.Value),
			At:          ParseOptionalTime(raw.Timestamp),
			AlertFlag:   raw.AlertFlag,
		},
		Reference: ref,
	}
}

// ParseOptionalFloat coerces a loosely typed numeric field. Strings "null",
// "", and anything non-numeric map to nil.
func ParseOptionalFloat(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		f := val
		return &f
	case float32:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case int32:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case *float64:
		if val == nil {
			return nil
		}
		f := *val
		return &f
	case string:
		s := strings.TrimSpace(val)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ParseOptionalTime coerces a loosely typed timestamp field. Epoch values are
// taken as milliseconds; strings must be RFC3339.
func ParseOptionalTime(v any) *time.Time {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		if val.IsZero() {
			return nil
		}
		t := val
		return &t
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil
		}
		t := *val
		return &t
	case int64:
		t := time.UnixMilli(val)
		return &t
	case float64:
		t := time.UnixMilli(int64(val))
		return &t
	case string:
		s := strings.TrimSpace(val)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}
