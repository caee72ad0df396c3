package vitalpipe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AlertResponder delivers one alert to a notification channel.
type AlertResponder interface {
	Name() string
	Handle(alert Alert) error
}

// ResponderPipeline fans out alerts to responders and collects errors.
type ResponderPipeline struct {
	Responders []AlertResponder
}

func (p *ResponderPipeline) Run(alerts []Alert) []error {
	if p == nil || len(p.Responders) == 0 || len(alerts) == 0 {
		return nil
	}
	var errs []error
	for _, a := range alerts {
		for _, r := range p.Responders {
			if r == nil {
				continue
			}
			if err := r.Handle(a); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			}
		}
	}
	return errs
}

// NotifyPolicy decides whether an alert should reach responders.
type NotifyPolicy struct {
	MinSeverity AlertSeverity
	AllowParams []string
	DenyParams  []string
	Cooldown    time.Duration // per dedup key

	mu   sync.Mutex
	last map[string]time.Time
}

// ShouldNotify returns true if the alert passes policy checks.
func (p *NotifyPolicy) ShouldNotify(a Alert) bool {
	if p == nil {
		return true
	}
	if inList(a.ParameterID, p.DenyParams) {
		return false
	}
	if len(p.AllowParams) > 0 && !inList(a.ParameterID, p.AllowParams) {
		return false
	}
	if p.MinSeverity != "" && severityRank(a.Severity) < severityRank(p.MinSeverity) {
		return false
	}
	if p.Cooldown > 0 {
		key := a.DedupKey
		if key == "" {
			key = a.ParameterID
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.last == nil {
			p.last = make(map[string]time.Time)
		}
		if until, ok := p.last[key]; ok && time.Now().Before(until) {
			return false
		}
		p.last[key] = time.Now().Add(p.Cooldown)
	}
	return true
}

// NotifyRouter filters alerts via policy then fans out to responders.
type NotifyRouter struct {
	Policy    *NotifyPolicy
	Pipeline  *ResponderPipeline
	OnDropped func(Alert) // optional hook for dropped alerts
}

func (r *NotifyRouter) Run(alerts []Alert) []error {
	if r == nil || len(alerts) == 0 {
		return nil
	}
	var filtered []Alert
	for _, a := range alerts {
		if r.Policy == nil || r.Policy.ShouldNotify(a) {
			filtered = append(filtered, a)
		} else if r.OnDropped != nil {
			r.OnDropped(a)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if r.Pipeline == nil {
		return []error{fmt.Errorf("notify router: pipeline is nil")}
	}
	return r.Pipeline.Run(filtered)
}

func inList(val string, list []string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// LogResponder writes alerts as JSON lines to an io.Writer.
type LogResponder struct {
	Out io.Writer
}

func (r *LogResponder) Name() string { return "log" }

func (r *LogResponder) Handle(alert Alert) error {
	if r.Out == nil {
		return fmt.Errorf("log responder: writer is nil")
	}
	enc := json.NewEncoder(r.Out)
	return enc.Encode(alert)
}

// AlertFileResponder writes alerts as JSON lines with size-based rotation.
type AlertFileResponder struct {
	Path     string
	MaxBytes int64 // rotate when file size exceeds this (bytes). Zero -> default 5MB.

	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	size int64
}

func NewAlertFileResponder(path string, maxBytes int64) *AlertFileResponder {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &AlertFileResponder{Path: path, MaxBytes: maxBytes}
}

func (r *AlertFileResponder) Name() string { return "alert_file" }

func (r *AlertFileResponder) Handle(alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFile(); err != nil {
		return err
	}
	if err := r.enc.Encode(alert); err != nil {
		return err
	}
	if stat, err := r.f.Stat(); err == nil {
		r.size = stat.Size()
	}
	if r.size >= r.MaxBytes {
		return r.rotate()
	}
	return nil
}

func (r *AlertFileResponder) ensureFile() error {
	if r.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir for alert file: %w", err)
	}
	f, err := os.OpenFile(r.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open alert file: %w", err)
	}
	r.f = f
	r.enc = json.NewEncoder(f)
	if st, err := f.Stat(); err == nil {
		r.size = st.Size()
	}
	return nil
}

func (r *AlertFileResponder) rotate() error {
	if r.f != nil {
		_ = r.f.Close()
		r.f = nil
	}
	ts := time.Now().UnixMilli()
	rotated := fmt.Sprintf("%s.%d", r.Path, ts)
	if err := os.Rename(r.Path, rotated); err != nil {
		return fmt.Errorf("rotate alert file: %w", err)
	}
	return r.ensureFile()
}
