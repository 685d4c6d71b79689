package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/demandforge/invforecast/internal/domain"
)

func sampleBundle() domain.ForecastBundle {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{base, base.AddDate(0, 0, 1)}
	return domain.ForecastBundle{
		Dates:       dates,
		SKUs:        []string{"B", "A"},
		Point:       map[string][]float64{"A": {1, 2}, "B": {3, 4}},
		Upper:       map[string][]float64{"A": {1.5, 2.5}, "B": {3.5, 4.5}},
		Lower:       map[string][]float64{"A": {0.5, 1.5}, "B": {2.5, 3.5}},
		Metadata:    map[string]domain.ResultMetadata{"A": {DataPointsUsed: 30, FeatureCount: 2}},
		Skipped:     map[string]string{"C": "insufficient data"},
		Granularity: domain.Daily,
		Horizon:     2,
		RunAt:       base,
	}
}

func TestWriteDataCSVOrdersColumnsLexicographically(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDataCSV(&buf, sampleBundle()); err != nil {
		t.Fatalf("WriteDataCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "Date,A,B" {
		t.Fatalf("header = %q, want Date,A,B", lines[0])
	}
	if lines[1] != "2024-02-01,1,3" {
		t.Fatalf("row 1 = %q", lines[1])
	}
}

func TestWriteSummaryListsSkippedSKUs(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleBundle()); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Skipped SKUs:") || !strings.Contains(out, "C") {
		t.Fatalf("summary missing skipped SKU table: %s", out)
	}
	if !strings.Contains(out, "total=3.00") {
		t.Fatalf("summary missing SKU A's total: %s", out)
	}
}

func TestSaveLoadModelRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	header := ModelHeader{Granularity: domain.Weekly, Horizon: 4, SKUs: []string{"A", "B"}}
	if err := SaveModel(&buf, header, []byte("payload-bytes")); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	gotHeader, payload, err := LoadModel(&buf)
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if gotHeader.Horizon != 4 || gotHeader.Granularity != domain.Weekly {
		t.Fatalf("unexpected header: %+v", gotHeader)
	}
	if string(payload) != "payload-bytes" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestLoadModelRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := SaveModel(&buf, ModelHeader{}, nil); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	corrupted := bytes.Replace(buf.Bytes(), []byte(modelMagic), []byte("GARBAGE_MODEL_V0___"), 1)
	if _, _, err := LoadModel(bytes.NewReader(corrupted)); err == nil {
		t.Fatalf("expected LoadModel to reject mismatched magic")
	}
}
