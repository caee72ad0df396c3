package vitalpipe

// Layout grid geometry. Widgets live on a 12-column grid; clamping keeps
// every slot at least readable.
const (
	GridColumns = 12
	MinWidgetW  = 4
	MinWidgetH  = 3
	MaxWidgetH  = 10

	defaultWidgetW = 4
	defaultWidgetH = 3
)

// ResolvedView is the per-parameter view configuration after overlaying the
// user's preferences on the reference defaults.
type ResolvedView struct {
	Chart        ChartType
	Grid         GridRect
	Hidden       bool
	DisplayOrder int
}

// ResolveView merges a user's preference row (nil when absent) with the
// parameter reference. index is the parameter's position in the collection
// and drives default round-robin grid placement for users who never arranged
// their board.
//
// Chart resolution: explicit user override, then the reference's
// default-flagged allowed entry, then the reference's hard default.
func ResolveView(index, widgetsPerRow int, ref ParameterReference, pref *UserPreference) ResolvedView {
	if widgetsPerRow <= 0 {
		widgetsPerRow = GridColumns / defaultWidgetW
	}
	// More slots per row than minimum-width widgets fit would push default
	// placements past the grid edge.
	if max := GridColumns / MinWidgetW; widgetsPerRow > max {
		widgetsPerRow = max
	}

	rv := ResolvedView{
		Chart:        ref.DefaultChart,
		DisplayOrder: DefaultDisplayOrder,
	}
	for _, opt := range ref.AllowedCharts {
		if opt.IsDefault {
			rv.Chart = opt.Type
			break
		}
	}
	if pref != nil {
		if pref.Chart != "" {
			rv.Chart = pref.Chart
		}
		rv.Hidden = pref.Hidden
		if pref.DisplayOrder > 0 {
			rv.DisplayOrder = pref.DisplayOrder
		}
	}

	if pref != nil && pref.Grid != nil {
		rv.Grid = clampRect(*pref.Grid)
	} else {
		rv.Grid = defaultSlot(index, widgetsPerRow)
	}
	return rv
}

// defaultSlot places widget index on the grid round-robin, left to right,
// top to bottom.
func defaultSlot(index, widgetsPerRow int) GridRect {
	if index < 0 {
		index = 0
	}
	col := index % widgetsPerRow
	row := index / widgetsPerRow
	w := GridColumns / widgetsPerRow
	if w < MinWidgetW {
		w = MinWidgetW
	}
	return GridRect{
		X: col * w,
		Y: row * defaultWidgetH,
		W: w,
		H: defaultWidgetH,
	}
}

// LayoutItem is one entry of a layout-save submission from a drag/resize UI.
type LayoutItem struct {
	ID      string `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	Visible bool   `json:"visible"`
}

// ClampLayout validates a submitted layout. Out-of-range coordinates are
// clamped into grid bounds rather than rejected, so a save can never produce
// an invalid layout. The returned list is the acknowledgement handed back
// for persistence.
func ClampLayout(items []LayoutItem) []LayoutItem {
	out := make([]LayoutItem, len(items))
	for i, it := range items {
		r := clampRect(GridRect{X: it.X, Y: it.Y, W: it.W, H: it.H})
		out[i] = LayoutItem{ID: it.ID, X: r.X, Y: r.Y, W: r.W, H: r.H, Visible: it.Visible}
	}
	return out
}

func clampRect(r GridRect) GridRect {
	r.X = clampInt(r.X, 0, GridColumns-1)
	if r.Y < 0 {
		r.Y = 0
	}
	r.W = clampInt(r.W, MinWidgetW, GridColumns)
	r.H = clampInt(r.H, MinWidgetH, MaxWidgetH)
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
