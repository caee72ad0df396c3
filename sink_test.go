package vitalpipe

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONFileSinkRecordFraming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	sink := NewJSONFileSink(path, 0)
	sink.Now = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	res := Result{
		Payloads: []ViewPayload{
			{ParameterID: "hr", ValueText: "72", Unit: "bpm", Status: StatusNormal},
			{ParameterID: "temp", ValueText: "40", Unit: "°C", Status: StatusCritical, ForceShown: true},
		},
		Alerts: []Alert{
			{ParameterID: "temp", Severity: SeverityError, Title: "CRITICAL: Body Temp"},
		},
	}
	if err := sink.Consume(res); err != nil {
		t.Fatalf("consume: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var recs []sinkRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r sinkRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad record line: %v", err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3 (2 metrics, 1 alert)", len(recs))
	}
	if recs[0].Kind != "metric" || recs[0].ParameterID != "hr" || recs[0].Value != "72" {
		t.Fatalf("first record = %+v", recs[0])
	}
	if !recs[1].ForceShown || recs[1].Status != StatusCritical {
		t.Fatalf("second record = %+v", recs[1])
	}
	if recs[2].Kind != "alert" || recs[2].Severity != SeverityError {
		t.Fatalf("third record = %+v", recs[2])
	}
}

func TestJSONFileSinkWritesAndRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.json")
	sink := NewJSONFileSink(path, 200) // small to force rotation

	res := Result{
		Payloads: []ViewPayload{{
			ParameterID: "hr",
			DisplayName: "Heart Rate",
			Slug:        "heart-rate",
			ValueText:   "72",
			Status:      StatusNormal,
		}},
	}

	for i := 0; i < 5; i++ {
		if err := sink.Consume(res); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "results.json*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) < 2 {
		t.Fatalf("expected rotation to create multiple files, got %v", files)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected sink file to exist after rotation: %v", err)
	}
}
