package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/adblast/internal/fingerprint"
	"github.com/FranksOps/adblast/internal/suggest"
	"github.com/FranksOps/adblast/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	geo      []string
	national []string

	mu    sync.Mutex
	calls []string
}

func (f *fakeSweeper) Sweep(ctx context.Context, vertical, location string) []string {
	f.mu.Lock()
	f.calls = append(f.calls, location)
	f.mu.Unlock()
	if location != "" {
		return f.geo
	}
	return f.national
}

type fakePredictor struct {
	out   []string
	err   error
	calls int
	got   Request
}

func (f *fakePredictor) Predict(ctx context.Context, req Request) ([]string, error) {
	f.calls++
	f.got = req
	return f.out, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHarvest_GeoTier(t *testing.T) {
	sw := &fakeSweeper{geo: []string{"pizzaria sp"}, national: []string{"pizzaria"}}
	pred := &fakePredictor{out: []string{"ai"}}

	out, err := New(sw, pred, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "São Paulo"})
	require.NoError(t, err)

	assert.Equal(t, TierScrapeGeo, out.Tier)
	assert.Equal(t, []string{"pizzaria sp"}, out.Keywords)
	assert.Equal(t, []string{"São Paulo"}, sw.calls, "national sweep must not run")
	assert.Zero(t, pred.calls, "predictor must not run")
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "pizzaria", out.Vertical)
	assert.Equal(t, "São Paulo", out.Location)
}

func TestHarvest_NationalTier(t *testing.T) {
	sw := &fakeSweeper{national: []string{"pizzaria delivery"}}
	pred := &fakePredictor{out: []string{"ai"}}

	out, err := New(sw, pred, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "Recife"})
	require.NoError(t, err)

	assert.Equal(t, TierScrapeNational, out.Tier)
	assert.Equal(t, []string{"Recife", ""}, sw.calls)
	assert.Zero(t, pred.calls)
}

func TestHarvest_NoLocationSkipsGeo(t *testing.T) {
	sw := &fakeSweeper{geo: []string{"never"}, national: []string{"pizzaria barata"}}

	out, err := New(sw, nil, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "pizzaria"})
	require.NoError(t, err)

	assert.Equal(t, TierScrapeNational, out.Tier)
	assert.Equal(t, []string{""}, sw.calls)
}

func TestHarvest_AITier(t *testing.T) {
	sw := &fakeSweeper{}
	pred := &fakePredictor{out: []string{"pizzaria artesanal recife", " ", "pizzaria artesanal recife", "pizza boa"}}
	req := Request{Vertical: "pizzaria", Location: "Recife", Offer: "rodízio", Audience: "famílias"}

	out, err := New(sw, pred, Config{}, quietLogger()).Harvest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, TierAIPredicted, out.Tier)
	assert.Equal(t, []string{"pizza boa", "pizzaria artesanal recife"}, out.Keywords)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, 1, pred.calls)
	assert.Equal(t, req, pred.got)
}

func TestHarvest_PredictorErrorEscalates(t *testing.T) {
	sw := &fakeSweeper{}
	pred := &fakePredictor{err: errors.New("model unavailable"), out: []string{"ignored"}}

	out, err := New(sw, pred, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "pizzaria"})
	require.NoError(t, err)
	assert.Equal(t, TierStaticFallback, out.Tier)
}

func TestHarvest_StaticFallback(t *testing.T) {
	sw := &fakeSweeper{}
	pred := &fakePredictor{out: []string{}}
	req := Request{Vertical: "pizzaria", Location: "São Paulo", Offer: "rodízio"}

	out, err := New(sw, pred, Config{}, quietLogger()).Harvest(context.Background(), req)
	require.NoError(t, err)

	want := []string{
		"melhor pizzaria",
		"melhor pizzaria em São Paulo",
		"pizzaria barato",
		"pizzaria em São Paulo",
		"pizzaria perto de mim",
		"pizzaria preço",
		"pizzaria rodízio em São Paulo",
		"rodízio pizzaria",
	}
	sort.Strings(want)

	assert.Equal(t, TierStaticFallback, out.Tier)
	assert.Equal(t, want, out.Keywords)
	assert.Equal(t, len(want), out.Total)
}

func TestStaticKeywords_VerticalOnly(t *testing.T) {
	got := StaticKeywords(Request{Vertical: " academia "})
	assert.ElementsMatch(t, []string{
		"academia perto de mim",
		"melhor academia",
		"academia preço",
		"academia barato",
	}, got)
}

func TestStaticKeywords_PlaceholderLikeInput(t *testing.T) {
	got := StaticKeywords(Request{Vertical: "pizza {offer}", Offer: "x"})
	assert.Contains(t, got, "x pizza {offer}")
	assert.Contains(t, got, "melhor pizza {offer}")
	assert.NotContains(t, got, "x pizza x")

	got = StaticKeywords(Request{Vertical: "pizza {location}"})
	assert.ElementsMatch(t, []string{
		"pizza {location} perto de mim",
		"melhor pizza {location}",
		"pizza {location} preço",
		"pizza {location} barato",
	}, got)
}

func TestHarvest_PlaceholderLikeInputIsStable(t *testing.T) {
	inputs := []Request{
		{Vertical: "pizza {location}"},
		{Vertical: "pizza {audience}", Offer: "{location}"},
		{Vertical: "{offer} {audience}", Audience: "{vertical}"},
	}
	h := New(&fakeSweeper{}, nil, Config{}, quietLogger())

	for _, req := range inputs {
		t.Run(req.Vertical, func(t *testing.T) {
			first, err := h.Harvest(context.Background(), req)
			require.NoError(t, err)
			require.NotEmpty(t, first.Keywords)
			assert.Equal(t, TierStaticFallback, first.Tier)

			for range 50 {
				out, err := h.Harvest(context.Background(), req)
				require.NoError(t, err)
				require.Equal(t, first.Keywords, out.Keywords)
			}
		})
	}
}

func TestHarvest_Totality(t *testing.T) {
	inputs := []Request{
		{Vertical: "pizzaria"},
		{Vertical: "pizzaria", Location: "São Paulo"},
		{Vertical: "dentista", Location: "Porto Alegre", Offer: "clareamento", Audience: "adultos"},
		{Vertical: "x", Audience: "y"},
	}
	h := New(&fakeSweeper{}, nil, Config{}, quietLogger())

	for _, req := range inputs {
		t.Run(fmt.Sprintf("%s/%s", req.Vertical, req.Location), func(t *testing.T) {
			out, err := h.Harvest(context.Background(), req)
			require.NoError(t, err)
			require.NotEmpty(t, out.Keywords)
			assert.Equal(t, TierStaticFallback, out.Tier)
			assert.Equal(t, len(out.Keywords), out.Total)
		})
	}
}

func TestHarvest_Truncation(t *testing.T) {
	kws := make([]string, 0, 80)
	for i := range 73 {
		kws = append(kws, fmt.Sprintf("pizzaria %02d", i))
	}
	// Duplicates do not count towards the total.
	kws = append(kws, "pizzaria 00", "pizzaria 01")

	out, err := New(&fakeSweeper{geo: kws}, nil, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "Recife"})
	require.NoError(t, err)

	assert.Len(t, out.Keywords, 50)
	assert.Equal(t, 73, out.Total)
	assert.Equal(t, "pizzaria 00", out.Keywords[0])
	assert.Equal(t, "pizzaria 49", out.Keywords[49])
}

func TestHarvest_CustomSampleSize(t *testing.T) {
	out, err := New(&fakeSweeper{national: []string{"c", "a", "b"}}, nil, Config{SampleSize: 2}, quietLogger()).
		Harvest(context.Background(), Request{Vertical: "v"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Keywords)
	assert.Equal(t, 3, out.Total)
}

func TestHarvest_VerticalRequired(t *testing.T) {
	sw := &fakeSweeper{}
	_, err := New(sw, nil, Config{}, quietLogger()).Harvest(context.Background(), Request{Vertical: "  ", Location: "Recife"})
	assert.ErrorIs(t, err, ErrVerticalRequired)
	assert.Empty(t, sw.calls)
}

func TestHarvest_DeadlineBreach(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pred := &fakePredictor{out: []string{"ai"}}
	_, err := New(&fakeSweeper{}, pred, Config{}, quietLogger()).Harvest(ctx, Request{Vertical: "pizzaria", Location: "Recife"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, pred.calls)
}

func TestTier_Label(t *testing.T) {
	for _, tier := range Tiers {
		assert.NotEqual(t, string(tier), tier.Label())
	}
	assert.True(t, TierScrapeGeo.Scraped())
	assert.True(t, TierScrapeNational.Scraped())
	assert.False(t, TierAIPredicted.Scraped())
	assert.False(t, TierStaticFallback.Scraped())
}

// The scenarios below drive the real sweep and suggest packages against a
// fake oracle server.

func oracleServer(t *testing.T, answer func(q string) string) (*httptest.Server, *[]string, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		mu.Lock()
		seen = append(seen, q)
		mu.Unlock()
		fmt.Fprint(w, answer(q))
	}))
	t.Cleanup(ts.Close)
	return ts, &seen, &mu
}

func realHarvester(t *testing.T, url string, pred Predictor) *Harvester {
	t.Helper()
	client, err := suggest.New(suggest.Config{
		BaseURL:     url,
		Timeout:     time.Second,
		Fingerprint: fingerprint.ProfileGo,
	}, quietLogger())
	require.NoError(t, err)
	return New(sweep.New(client, sweep.Config{}, quietLogger()), pred, Config{}, quietLogger())
}

func TestScenario_GeoBaseQueryOnly(t *testing.T) {
	ts, _, _ := oracleServer(t, func(q string) string {
		if q == "pizzaria em São Paulo" {
			return `["pizzaria em São Paulo",["pizzaria sp","pizzaria delivery"]]`
		}
		return `["x",[]]`
	})

	out, err := realHarvester(t, ts.URL, nil).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "São Paulo"})
	require.NoError(t, err)

	assert.Equal(t, TierScrapeGeo, out.Tier)
	assert.Equal(t, []string{"pizzaria delivery", "pizzaria sp"}, out.Keywords)
	assert.Equal(t, 2, out.Total)
}

func TestScenario_NationalWithoutGeoPhrasing(t *testing.T) {
	ts, seen, mu := oracleServer(t, func(q string) string {
		if q == "pizzaria" {
			return `["pizzaria",["pizzaria perto de mim"]]`
		}
		return `["x",[]]`
	})

	out, err := realHarvester(t, ts.URL, nil).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "Curitiba"})
	require.NoError(t, err)
	assert.Equal(t, TierScrapeNational, out.Tier)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, *seen, 39+38)

	national := 0
	for _, q := range *seen {
		if !strings.Contains(q, "Curitiba") {
			national++
			assert.NotContains(t, q, " em ")
		}
	}
	assert.Equal(t, 38, national)
}

func TestScenario_EverythingEmpty(t *testing.T) {
	ts, _, _ := oracleServer(t, func(q string) string { return `["x",[]]` })
	pred := &fakePredictor{out: nil}
	req := Request{Vertical: "pizzaria", Location: "Natal", Offer: "promoção"}

	out, err := realHarvester(t, ts.URL, pred).Harvest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, TierStaticFallback, out.Tier)
	assert.Equal(t, dedup(StaticKeywords(req)), out.Keywords)
	assert.Equal(t, 1, pred.calls)
}

func TestScenario_OracleDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	pred := &fakePredictor{out: []string{"pizzaria em natal"}}
	out, err := realHarvester(t, ts.URL, pred).Harvest(context.Background(), Request{Vertical: "pizzaria", Location: "Natal"})
	require.NoError(t, err)
	assert.Equal(t, TierAIPredicted, out.Tier)
}
