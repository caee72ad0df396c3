// Package hostfeed turns live host readings into pipeline batches so the CLI
// can exercise the full monitoring pipeline without a database. The host's
// CPU, memory, swap, and disk usage play the role of vital-sign parameters.
package hostfeed

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/wardview/vitalpipe"
	"github.com/wardview/vitalpipe/downsample"
)

// DefaultMaxHistory bounds the retained per-parameter series.
const DefaultMaxHistory = 512

// Feed samples the local host and implements vitalpipe.BatchSource. Each
// Next call takes one sample, appends it to the retained history, and
// returns a fresh batch. Capture functions are injectable for tests.
type Feed struct {
	// Catalog supplies references and preferences; parameters the catalog
	// does not know fall back to built-in references.
	Catalog *vitalpipe.Catalog

	DiskPath   string
	MaxHistory int

	Now       func() time.Time
	PercentFn func(interval time.Duration, percpu bool) ([]float64, error)
	VirtualFn func() (*mem.VirtualMemoryStat, error)
	SwapFn    func() (*mem.SwapMemoryStat, error)
	UsageFn   func(path string) (*disk.UsageStat, error)

	mu      sync.Mutex
	history map[string][]downsample.Point // newest first
}

func NewFeed(catalog *vitalpipe.Catalog) *Feed {
	return &Feed{
		Catalog:    catalog,
		DiskPath:   "/",
		MaxHistory: DefaultMaxHistory,
		Now:        time.Now,
		PercentFn:  cpu.Percent,
		VirtualFn:  mem.VirtualMemory,
		SwapFn:     mem.SwapMemory,
		UsageFn:    disk.Usage,
	}
}

// Next samples the host once and returns the resulting batch.
func (f *Feed) Next(ctx context.Context) (vitalpipe.Batch, error) {
	if f == nil {
		return vitalpipe.Batch{}, errors.New("hostfeed: nil feed")
	}
	if err := ctx.Err(); err != nil {
		return vitalpipe.Batch{}, err
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	at := now()

	samples := f.sample()

	f.mu.Lock()
	if f.history == nil {
		f.history = make(map[string][]downsample.Point)
	}
	maxHist := f.MaxHistory
	if maxHist <= 0 {
		maxHist = DefaultMaxHistory
	}

	rows := make([]vitalpipe.MetricRow, 0, len(samples))
	history := make(map[string][]downsample.Point, len(samples))
	for _, s := range samples {
		row := vitalpipe.NormalizeRow(vitalpipe.RawRow{
			ParameterID: s.id,
			Value:       s.value,
			Timestamp:   at,
		})
		row.Reference = f.reference(s.id)
		rows = append(rows, row)

		if s.value != nil {
			// prepend: history is kept newest first, storage order.
			h := append([]downsample.Point{{T: at, V: *s.value}}, f.history[s.id]...)
			if len(h) > maxHist {
				h = h[:maxHist]
			}
			f.history[s.id] = h
		}
		history[s.id] = append([]downsample.Point(nil), f.history[s.id]...)
	}
	f.mu.Unlock()

	host, _ := os.Hostname()
	batch := vitalpipe.Batch{
		UserID:    "local",
		PatientID: host,
		Rows:      rows,
		History:   history,
	}
	if f.Catalog != nil {
		batch.Preferences = f.Catalog.Preferences
	}
	return batch, nil
}

type hostSample struct {
	id    string
	value *float64 // nil when the probe failed; classified as Unknown
}

// sample reads every probe, tolerating individual failures: a probe error
// becomes a missing value, not a feed error.
func (f *Feed) sample() []hostSample {
	var out []hostSample

	var cpuVal *float64
	if f.PercentFn != nil {
		if pcts, err := f.PercentFn(0, false); err == nil && len(pcts) > 0 {
			cpuVal = &pcts[0]
		}
	}
	out = append(out, hostSample{id: "cpu_used_pct", value: cpuVal})

	var memVal, swapVal *float64
	if f.VirtualFn != nil {
		if v, err := f.VirtualFn(); err == nil && v != nil && v.Total > 0 {
			used := float64(v.Total-v.Available) / float64(v.Total) * 100
			memVal = &used
		}
	}
	if f.SwapFn != nil {
		if s, err := f.SwapFn(); err == nil && s != nil && s.Total > 0 {
			used := float64(s.Used) / float64(s.Total) * 100
			swapVal = &used
		}
	}
	out = append(out, hostSample{id: "mem_used_pct", value: memVal})
	out = append(out, hostSample{id: "swap_used_pct", value: swapVal})

	var diskVal *float64
	if f.UsageFn != nil {
		path := f.DiskPath
		if path == "" {
			path = "/"
		}
		if u, err := f.UsageFn(path); err == nil && u != nil {
			pct := u.UsedPercent
			diskVal = &pct
		}
	}
	out = append(out, hostSample{id: "disk_used_pct", value: diskVal})

	return out
}

// reference resolves a parameter's metadata, preferring the catalog.
func (f *Feed) reference(id string) vitalpipe.ParameterReference {
	if f.Catalog != nil {
		if ref, ok := f.Catalog.References[id]; ok {
			return ref
		}
	}
	if ref, ok := builtinReferences[id]; ok {
		return ref
	}
	return vitalpipe.ParameterReference{DisplayName: id, DefaultChart: vitalpipe.ChartLine}
}

func fptr(v float64) *float64 { return &v }

var builtinReferences = map[string]vitalpipe.ParameterReference{
	"cpu_used_pct": {
		DisplayName: "CPU Usage",
		Category:    "compute",
		Unit:        "%",
		Thresholds: vitalpipe.Thresholds{
			NormalMax:   fptr(85),
			CriticalMax: fptr(95),
		},
		DisplayMin:   fptr(0),
		DisplayMax:   fptr(100),
		DefaultChart: vitalpipe.ChartLine,
	},
	"mem_used_pct": {
		DisplayName: "Memory Usage",
		Category:    "memory",
		Unit:        "%",
		Thresholds: vitalpipe.Thresholds{
			NormalMax:   fptr(90),
			CriticalMax: fptr(97),
		},
		DisplayMin:   fptr(0),
		DisplayMax:   fptr(100),
		DefaultChart: vitalpipe.ChartArea,
	},
	"swap_used_pct": {
		DisplayName: "Swap Usage",
		Category:    "memory",
		Unit:        "%",
		Thresholds: vitalpipe.Thresholds{
			NormalMax: fptr(60),
		},
		DisplayMin:   fptr(0),
		DisplayMax:   fptr(100),
		DefaultChart: vitalpipe.ChartLine,
	},
	"disk_used_pct": {
		DisplayName: "Disk Usage",
		Category:    "storage",
		Unit:        "%",
		Thresholds: vitalpipe.Thresholds{
			NormalMax:   fptr(85),
			CriticalMax: fptr(95),
		},
		DisplayMin:   fptr(0),
		DisplayMax:   fptr(100),
		DefaultChart: vitalpipe.ChartBar,
	},
}
