package vitalpipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ResultSink consumes processed results for persistence or forwarding.
type ResultSink interface {
	Consume(res Result) error
}

// sinkRecord is one archive line. Board entries are trimmed to their display
// fields; chart series stay out of the archive.
type sinkRecord struct {
	At          time.Time     `json:"at"`
	Kind        string        `json:"kind"` // "metric" or "alert"
	ParameterID string        `json:"parameter_id"`
	Status      Status        `json:"status,omitempty"`
	Value       string        `json:"value,omitempty"`
	Unit        string        `json:"unit,omitempty"`
	ForceShown  bool          `json:"force_shown,omitempty"`
	Severity    AlertSeverity `json:"severity,omitempty"`
	Title       string        `json:"title,omitempty"`
}

// JSONFileSink archives results as line-delimited JSON records, one per board
// entry and one per alert, with simple size-based rotation.
type JSONFileSink struct {
	Path     string
	MaxBytes int64            // rotate when file size exceeds this (bytes). Zero -> default 5MB.
	Now      func() time.Time // record timestamps; default time.Now

	mu   sync.Mutex
	f    *os.File
	enc  *json.Encoder
	size int64
}

func NewJSONFileSink(path string, maxBytes int64) *JSONFileSink {
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &JSONFileSink{Path: path, MaxBytes: maxBytes}
}

func (s *JSONFileSink) Consume(res Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	for _, p := range res.Payloads {
		rec := sinkRecord{
			At:          now,
			Kind:        "metric",
			ParameterID: p.ParameterID,
			Status:      p.Status,
			Value:       p.ValueText,
			Unit:        p.Unit,
			ForceShown:  p.ForceShown,
		}
		if err := s.enc.Encode(rec); err != nil {
			return err
		}
	}
	for _, a := range res.Alerts {
		rec := sinkRecord{
			At:          now,
			Kind:        "alert",
			ParameterID: a.ParameterID,
			Severity:    a.Severity,
			Title:       a.Title,
		}
		if err := s.enc.Encode(rec); err != nil {
			return err
		}
	}

	if stat, err := s.f.Stat(); err == nil {
		s.size = stat.Size()
	}
	if s.size >= s.MaxBytes {
		return s.rotate()
	}
	return nil
}

func (s *JSONFileSink) ensureFile() error {
	if s.f != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir for sink: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open sink file: %w", err)
	}
	s.f = f
	s.enc = json.NewEncoder(f)
	if st, err := f.Stat(); err == nil {
		s.size = st.Size()
	}
	return nil
}

func (s *JSONFileSink) rotate() error {
	if s.f != nil {
		_ = s.f.Close()
		s.f = nil
	}
	ts := time.Now().UnixMilli()
	rotated := fmt.Sprintf("%s.%d", s.Path, ts)
	if err := os.Rename(s.Path, rotated); err != nil {
		return fmt.Errorf("rotate sink file: %w", err)
	}
	return s.ensureFile()
}
