package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/relevance"
)

// Summary is a printable view of one harvest and, optionally, its ads.
type Summary struct {
	ID          string                   `json:"id"`
	Vertical    string                   `json:"vertical"`
	Location    string                   `json:"location,omitempty"`
	Tier        harvest.Tier             `json:"tier"`
	TierLabel   string                   `json:"tier_label"`
	Total       int                      `json:"total"`
	Kept        int                      `json:"kept"`
	LocalCount  int                      `json:"local_count"`
	ByIntent    map[relevance.Intent]int `json:"by_intent"`
	Keywords    []relevance.Signal       `json:"keywords"`
	Ads         []adcopy.Ad              `json:"ads,omitempty"`
	Duration    time.Duration            `json:"duration_ns"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// GenerateSummary classifies the outcome's keywords and tallies them.
func GenerateSummary(o *harvest.Outcome, ads []adcopy.Ad) Summary {
	s := Summary{
		ByIntent:    make(map[relevance.Intent]int),
		Ads:         ads,
		GeneratedAt: time.Now(),
	}
	if o == nil {
		return s
	}

	s.ID = o.ID
	s.Vertical = o.Vertical
	s.Location = o.Location
	s.Tier = o.Tier
	s.TierLabel = o.Tier.Label()
	s.Total = o.Total
	s.Kept = len(o.Keywords)
	s.Duration = o.Duration
	s.Keywords = relevance.Annotate(o.Keywords, o.Location)

	for _, sig := range s.Keywords {
		s.ByIntent[sig.Intent]++
		if sig.Local {
			s.LocalCount++
		}
	}
	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

var csvHeader = []string{"keyword", "intent", "local", "tier", "vertical", "location"}

// WriteCSV writes one row per keyword.
func WriteCSV(w io.Writer, summary Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	for _, sig := range summary.Keywords {
		row := []string{
			sig.Keyword,
			string(sig.Intent),
			strconv.FormatBool(sig.Local),
			string(summary.Tier),
			summary.Vertical,
			summary.Location,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `AdBlast Harvest
---------------
Vertical:   {{.Vertical}}
Location:   {{if .Location}}{{.Location}}{{else}}(nationwide){{end}}
Source:     {{.Tier}} - {{.TierLabel}}
Keywords:   {{.Kept}} of {{.Total}} ({{.LocalCount}} local)
Duration:   {{.Duration}}

By intent:
{{- range $intent, $count := .ByIntent}}
  {{$intent}}: {{$count}}
{{- else}}
  None
{{- end}}

Keywords:
{{- range .Keywords}}
  {{if .Local}}*{{else}} {{end}} {{.Keyword}} [{{.Intent}}]
{{- else}}
  None
{{- end}}
{{- if .Ads}}

Ads:
{{- range $i, $ad := .Ads}}
  {{inc $i}}. {{$ad.Title}}
     {{$ad.Description}}
     [{{$ad.CTA}}]
{{- end}}
{{- end}}
`

	t, err := template.New("textReport").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}
