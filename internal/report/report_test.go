package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/relevance"
)

func sampleOutcome() *harvest.Outcome {
	return &harvest.Outcome{
		ID:       "abc",
		Vertical: "pizzaria",
		Location: "São Paulo",
		Keywords: []string{"como fazer pizza", "pizzaria delivery", "pizzaria sp"},
		Tier:     harvest.TierScrapeGeo,
		Total:    73,
		Duration: 2 * time.Second,
	}
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(sampleOutcome(), nil)

	if summary.Total != 73 {
		t.Errorf("expected total 73, got %d", summary.Total)
	}
	if summary.Kept != 3 {
		t.Errorf("expected 3 kept keywords, got %d", summary.Kept)
	}
	if summary.LocalCount != 1 {
		t.Errorf("expected 1 local keyword, got %d", summary.LocalCount)
	}
	if summary.ByIntent[relevance.IntentTransactional] != 1 {
		t.Errorf("expected 1 transactional keyword, got %d", summary.ByIntent[relevance.IntentTransactional])
	}
	if summary.ByIntent[relevance.IntentInformational] != 1 {
		t.Errorf("expected 1 informational keyword, got %d", summary.ByIntent[relevance.IntentInformational])
	}
	if summary.TierLabel != harvest.TierScrapeGeo.Label() {
		t.Errorf("unexpected tier label %q", summary.TierLabel)
	}
}

func TestGenerateSummary_Nil(t *testing.T) {
	summary := GenerateSummary(nil, nil)
	if summary.Kept != 0 || summary.ByIntent == nil {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, GenerateSummary(sampleOutcome(), nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"tier": "scrape_geo"`, `"total": 73`, `"keyword": "pizzaria sp"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected JSON to contain %s", want)
		}
	}
	if strings.Contains(out, `"ads"`) {
		t.Errorf("expected ads to be omitted when empty")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, GenerateSummary(sampleOutcome(), nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "keyword" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[3][0] != "pizzaria sp" || rows[3][2] != "true" || rows[3][3] != "scrape_geo" {
		t.Errorf("unexpected row %v", rows[3])
	}
}

func TestWriteText(t *testing.T) {
	ads := []adcopy.Ad{{Title: "Pizza quentinha", Description: "Chega em 30 min.", CTA: "Peça já"}}
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(sampleOutcome(), ads)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Keywords:   3 of 73 (1 local)",
		"* pizzaria sp [local]",
		"scrape_geo",
		"1. Pizza quentinha",
		"[Peça já]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected text to contain %q\n%s", want, out)
		}
	}
}

func TestWriteText_Nationwide(t *testing.T) {
	o := sampleOutcome()
	o.Location = ""
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(o, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "(nationwide)") {
		t.Errorf("expected nationwide marker")
	}
	if strings.Contains(buf.String(), "Ads:") {
		t.Errorf("expected no ads section")
	}
}
