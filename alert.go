package vitalpipe

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// AlertSeverity is the urgency of a user-facing notification.
type AlertSeverity string

const (
	SeverityError   AlertSeverity = "error"
	SeverityWarning AlertSeverity = "warning"
	SeverityInfo    AlertSeverity = "info"
)

// AlertDirection says which side of the range was crossed.
type AlertDirection string

const (
	DirectionLow  AlertDirection = "low"
	DirectionHigh AlertDirection = "high"
)

// Alert is one user-facing notification for an out-of-range metric.
type Alert struct {
	ID          string         `json:"id"`
	Severity    AlertSeverity  `json:"severity"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	ParameterID string         `json:"parameter_id"`
	Value       *float64       `json:"value,omitempty"`
	Unit        string         `json:"unit,omitempty"`
	Threshold   *float64       `json:"threshold,omitempty"`
	Direction   AlertDirection `json:"direction,omitempty"`
	At          time.Time      `json:"at"`
	DedupKey    string         `json:"dedup_key,omitempty"`
	RateLimited bool           `json:"rate_limited,omitempty"`
}

// FormatAlert turns a classified metric into a notification. Normal and
// Unknown metrics produce none. Exactly one threshold is reported: the
// minimum when the value is low, the maximum when high; a device-flagged
// alarm with no numeric crossing reports the alarm itself.
func FormatAlert(cm ClassifiedMetric) (Alert, bool) {
	var severity AlertSeverity
	switch cm.Status {
	case StatusCritical:
		severity = SeverityError
	case StatusWarning:
		severity = SeverityWarning
	default:
		return Alert{}, false
	}

	a := Alert{
		Severity:    severity,
		Title:       fmt.Sprintf("%s: %s", strings.ToUpper(string(cm.Status)), cm.Reference.DisplayName),
		ParameterID: cm.Point.ParameterID,
		Value:       cm.Point.Value,
		Unit:        cm.Reference.Unit,
		DedupKey:    fmt.Sprintf("%s|%s", cm.Point.ParameterID, cm.Status),
	}
	if cm.Point.At != nil {
		a.At = *cm.Point.At
	}

	threshold, dir, ok := crossedBound(cm)
	if !ok {
		a.Message = fmt.Sprintf("%s: device alarm raised (reading %s)",
			cm.Reference.DisplayName, FormatValueUnit(cm.Point.Value, cm.Reference.Unit))
		return a, true
	}
	a.Threshold = &threshold
	a.Direction = dir

	word := "above"
	limit := "maximum"
	if dir == DirectionLow {
		word = "below"
		limit = "minimum"
	}
	tier := "normal"
	if cm.Status == StatusCritical {
		tier = "critical"
	}
	a.Message = fmt.Sprintf("%s is %s: %s at or %s %s %s %s",
		cm.Reference.DisplayName, cm.Status,
		FormatValueUnit(cm.Point.Value, cm.Reference.Unit),
		word, tier, limit, FormatValue(&threshold))
	return a, true
}

// crossedBound mirrors the classifier's branch order so the reported
// threshold is always the one that produced the status.
func crossedBound(cm ClassifiedMetric) (float64, AlertDirection, bool) {
	v := cm.Point.Value
	if v == nil {
		return 0, "", false
	}
	t := cm.Reference.Thresholds
	if cm.Status == StatusCritical {
		if t.CriticalMin != nil && *v <= *t.CriticalMin {
			return *t.CriticalMin, DirectionLow, true
		}
		if t.CriticalMax != nil && *v >= *t.CriticalMax {
			return *t.CriticalMax, DirectionHigh, true
		}
		// flagged critical without a numeric crossing
		return 0, "", false
	}
	if t.NormalMin != nil && *v <= *t.NormalMin {
		return *t.NormalMin, DirectionLow, true
	}
	if t.NormalMax != nil && *v >= *t.NormalMax {
		return *t.NormalMax, DirectionHigh, true
	}
	return 0, "", false
}

// AlertDeduper suppresses repeated alerts with the same key within a window.
type AlertDeduper struct {
	Window time.Duration
	Now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// Filter returns alerts that are not duplicates within the window.
func (d *AlertDeduper) Filter(alerts []Alert) []Alert {
	if d == nil || d.Window <= 0 {
		return alerts
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]time.Time)
	}
	var out []Alert
	for _, a := range alerts {
		key := a.DedupKey
		if key == "" {
			key = a.ParameterID
		}
		if exp, ok := d.seen[key]; ok && now.Before(exp) {
			continue
		}
		out = append(out, a)
		d.seen[key] = now.Add(d.Window)
	}
	return out
}

// AlertRateLimiter drops alerts past a per-key burst within a window.
type AlertRateLimiter struct {
	Window time.Duration
	Burst  int
	Now    func() time.Time
	// OnDropped receives each suppressed alert, flagged RateLimited.
	OnDropped func(Alert)

	mu    sync.Mutex
	count map[string]int
	reset map[string]time.Time
}

// Filter returns alerts within rate limits. Suppressed alerts go to
// OnDropped with RateLimited set.
func (r *AlertRateLimiter) Filter(alerts []Alert) []Alert {
	if r == nil || r.Window <= 0 || r.Burst <= 0 {
		return alerts
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == nil {
		r.count = make(map[string]int)
		r.reset = make(map[string]time.Time)
	}
	var out []Alert
	for _, a := range alerts {
		key := a.DedupKey
		if key == "" {
			key = a.ParameterID
		}
		resetAt, ok := r.reset[key]
		if !ok || now.After(resetAt) {
			r.count[key] = 0
			r.reset[key] = now.Add(r.Window)
		}
		if r.count[key] >= r.Burst {
			if r.OnDropped != nil {
				a.RateLimited = true
				r.OnDropped(a)
			}
			continue
		}
		r.count[key]++
		out = append(out, a)
	}
	return out
}
