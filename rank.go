package vitalpipe

import "sort"

// Severity ranks used for ordering and visibility overrides.
const (
	PriorityNormal   = 0
	PriorityWarning  = 1
	PriorityCritical = 2
)

// DefaultDisplayOrder sorts unranked parameters after every explicitly
// ordered one.
const DefaultDisplayOrder = 9999

// PriorityFor maps a status to its integer severity rank. Unknown ranks with
// Normal: a missing reading is a display concern, not an emergency.
func PriorityFor(s Status) int {
	switch s {
	case StatusCritical:
		return PriorityCritical
	case StatusWarning:
		return PriorityWarning
	default:
		return PriorityNormal
	}
}

// rankedMetric pairs a classified metric with its resolved view so sorting
// can use the user's display order.
type rankedMetric struct {
	Metric ClassifiedMetric
	View   ResolvedView
}

// sortRanked orders metrics by priority descending, then display order,
// category, and display name ascending. The order is deterministic for
// identical inputs.
func sortRanked(ms []rankedMetric) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Metric.Priority != b.Metric.Priority {
			return a.Metric.Priority > b.Metric.Priority
		}
		if a.View.DisplayOrder != b.View.DisplayOrder {
			return a.View.DisplayOrder < b.View.DisplayOrder
		}
		if a.Metric.Reference.Category != b.Metric.Reference.Category {
			return a.Metric.Reference.Category < b.Metric.Reference.Category
		}
		return a.Metric.Reference.DisplayName < b.Metric.Reference.DisplayName
	})
}

// visible reports whether a metric belongs on the normal (non-priority)
// view, and whether it is being force-shown. A hidden metric with priority
// Warning or above is surfaced anyway so the user cannot hide a metric that
// is currently out of range.
func visible(hidden bool, priority int) (show, forced bool) {
	if !hidden {
		return true, false
	}
	if priority >= PriorityWarning {
		return true, true
	}
	return false, false
}
