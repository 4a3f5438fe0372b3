package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOracle(t *testing.T) {
	before := testutil.ToFloat64(OracleRequestsTotal.WithLabelValues(OutcomeBlocked))
	RecordOracle(OutcomeBlocked, 20*time.Millisecond)
	after := testutil.ToFloat64(OracleRequestsTotal.WithLabelValues(OutcomeBlocked))

	if after-before != 1 {
		t.Errorf("expected blocked counter to grow by 1, grew by %v", after-before)
	}
}

func TestRecordHarvest(t *testing.T) {
	before := testutil.ToFloat64(HarvestTierTotal.WithLabelValues("scrape_geo"))
	RecordHarvest("scrape_geo", 42, time.Second)
	after := testutil.ToFloat64(HarvestTierTotal.WithLabelValues("scrape_geo"))

	if after-before != 1 {
		t.Errorf("expected tier counter to grow by 1, grew by %v", after-before)
	}
}

func TestHandler(t *testing.T) {
	RecordOracle(OutcomeOK, 100*time.Millisecond)
	RecordHarvest("static_fallback", 10, 2*time.Second)

	ts := httptest.NewServer(Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	output := string(body)

	for _, want := range []string{
		`adblast_oracle_requests_total{outcome="ok"}`,
		`adblast_oracle_duration_seconds_bucket`,
		`adblast_harvest_tier_total{tier="static_fallback"}`,
		`adblast_harvest_keywords_bucket`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestServerStopNil(t *testing.T) {
	var s *Server
	if err := s.Stop(t.Context()); err != nil {
		t.Errorf("nil server stop should be a no-op, got %v", err)
	}
}
