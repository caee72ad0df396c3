package vitalpipe

import (
	"fmt"
	"io"
	"strings"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const sparkWidth = 12

// RenderBoard writes a text rendering of one pipeline result: the ranked
// widget cards with status markers and sparklines, followed by any alerts.
// It is the non-HTML presentation surface used by the CLI.
func RenderBoard(w io.Writer, res Result) error {
	if w == nil {
		return fmt.Errorf("render board: writer is nil")
	}
	if len(res.Payloads) == 0 {
		_, err := fmt.Fprintln(w, "(no parameters)")
		return err
	}

	for _, p := range res.Payloads {
		marker := statusMarker(p.Status)
		forced := ""
		if p.ForceShown {
			forced = " (force-shown)"
		}
		value := p.ValueText
		if p.Unit != "" && p.ValueText != MissingValueText {
			value += " " + p.Unit
		}
		if _, err := fmt.Fprintf(w, "%s %-22s %10s  %s%s\n",
			marker, p.DisplayName, value, sparkline(p.ChartConfig.Data), forced); err != nil {
			return err
		}
	}

	for _, a := range res.Alerts {
		if _, err := fmt.Fprintf(w, "%s %s\n", alertMarker(a.Severity), a.Message); err != nil {
			return err
		}
	}
	return nil
}

func statusMarker(s Status) string {
	switch s {
	case StatusCritical:
		return "[CRIT]"
	case StatusWarning:
		return "[WARN]"
	case StatusNormal:
		return "[ ok ]"
	default:
		return "[ -- ]"
	}
}

func alertMarker(s AlertSeverity) string {
	switch s {
	case SeverityError:
		return "!!"
	case SeverityWarning:
		return " !"
	default:
		return " i"
	}
}

// sparkline renders up to sparkWidth values as block runes scaled to the
// window's own min/max.
func sparkline(values []float64) string {
	if len(values) == 0 {
		return strings.Repeat("·", sparkWidth)
	}
	if len(values) > sparkWidth {
		values = values[len(values)-sparkWidth:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for range sparkWidth - len(values) {
		b.WriteRune('·')
	}
	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkBlocks)-1))
		}
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}
