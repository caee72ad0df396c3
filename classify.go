package vitalpipe

import "fmt"

// Classify computes the status tier for one observation.
//
// An external alert flag always wins: device-level alarms bypass threshold
// math entirely. A nil value is Unknown, rendered downstream as a placeholder
// rather than treated as an error. Bounds are inclusive at the boundary, so a
// value touching a threshold lands in the more severe tier; absent bounds
// never trigger their branch.
func Classify(value *float64, t Thresholds, alertFlag bool) Status {
	if alertFlag {
		return StatusCritical
	}
	if value == nil {
		return StatusUnknown
	}
	v := *value
	if (t.CriticalMin != nil && v <= *t.CriticalMin) || (t.CriticalMax != nil && v >= *t.CriticalMax) {
		return StatusCritical
	}
	if (t.NormalMin != nil && v <= *t.NormalMin) || (t.NormalMax != nil && v >= *t.NormalMax) {
		return StatusWarning
	}
	return StatusNormal
}

// ClassifyRow tags one normalized row with its status and priority.
func ClassifyRow(row MetricRow) ClassifiedMetric {
	status := Classify(row.Point.Value, row.Reference.Thresholds, row.Point.AlertFlag)
	return ClassifiedMetric{
		Point:     row.Point,
		Reference: row.Reference,
		Status:    status,
		Priority:  PriorityFor(status),
	}
}

// Validate reports inconsistent threshold configuration (a critical bound
// tighter than its normal bound). Classification stays total either way; this
// exists so a collaborator layer can log data-quality warnings at load time.
func (t Thresholds) Validate() error {
	if t.CriticalMin != nil && t.NormalMin != nil && *t.CriticalMin > *t.NormalMin {
		return fmt.Errorf("critical min %.4g above normal min %.4g", *t.CriticalMin, *t.NormalMin)
	}
	if t.CriticalMax != nil && t.NormalMax != nil && *t.CriticalMax < *t.NormalMax {
		return fmt.Errorf("critical max %.4g below normal max %.4g", *t.CriticalMax, *t.NormalMax)
	}
	return nil
}
