// Package harvest runs the keyword cascade: geo-scoped sweep, nationwide
// sweep, generative prediction, then canned templates. The first stage with
// data wins and is recorded as the outcome's tier.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/adblast/internal/metrics"
	"github.com/google/uuid"
)

// DefaultSampleSize bounds the keywords handed to downstream consumers.
const DefaultSampleSize = 50

var ErrVerticalRequired = errors.New("harvest: vertical is required")

// Sweeper expands a vertical (and optional location) into oracle keywords.
type Sweeper interface {
	Sweep(ctx context.Context, vertical, location string) []string
}

// Predictor asks a generative model for likely search phrases.
type Predictor interface {
	Predict(ctx context.Context, req Request) ([]string, error)
}

// StaticTemplates is the last-resort keyword source. A template is used only
// when every placeholder it names has a value.
var StaticTemplates = []string{
	"{vertical} em {location}",
	"melhor {vertical} em {location}",
	"{vertical} perto de mim",
	"melhor {vertical}",
	"{vertical} preço",
	"{vertical} barato",
	"{offer} {vertical}",
	"{vertical} {offer} em {location}",
	"{vertical} para {audience}",
	"{vertical} {audience} em {location}",
}

// Config tunes the harvester.
type Config struct {
	SampleSize int
}

// Harvester is process-scoped and safe for concurrent use.
type Harvester struct {
	sweeper    Sweeper
	predictor  Predictor
	sampleSize int
	logger     *slog.Logger
}

// New builds a Harvester. predictor may be nil, in which case the
// generative tier is skipped.
func New(sweeper Sweeper, predictor Predictor, cfg Config, logger *slog.Logger) *Harvester {
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Harvester{
		sweeper:    sweeper,
		predictor:  predictor,
		sampleSize: cfg.SampleSize,
		logger:     logger,
	}
}

// Harvest always produces a non-empty outcome for a valid request. It fails
// only when the vertical is missing or ctx ends before a tier with data is
// reached.
func (h *Harvester) Harvest(ctx context.Context, req Request) (*Outcome, error) {
	req = req.normalized()
	if req.Vertical == "" {
		return nil, ErrVerticalRequired
	}

	start := time.Now()
	id := uuid.NewString()
	logger := h.logger.With("harvest_id", id, "vertical", req.Vertical, "location", req.Location)

	keywords, tier, err := h.cascade(ctx, req, logger)
	if err != nil {
		return nil, err
	}

	set := dedup(keywords)
	total := len(set)
	if len(set) > h.sampleSize {
		set = set[:h.sampleSize]
	}

	out := &Outcome{
		ID:       id,
		Vertical: req.Vertical,
		Location: req.Location,
		Keywords: set,
		Tier:     tier,
		Total:    total,
		Duration: time.Since(start),
	}

	metrics.RecordHarvest(string(tier), total, out.Duration)
	logger.Info("harvest complete", "tier", tier, "total", total, "kept", len(set), "duration", out.Duration)
	return out, nil
}

func (h *Harvester) cascade(ctx context.Context, req Request, logger *slog.Logger) ([]string, Tier, error) {
	if req.Location != "" {
		if kws := h.sweeper.Sweep(ctx, req.Vertical, req.Location); len(kws) > 0 {
			return kws, TierScrapeGeo, nil
		}
		logger.Info("geo sweep empty, escalating", "next", TierScrapeNational)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("harvest: %w", err)
	}

	if kws := h.sweeper.Sweep(ctx, req.Vertical, ""); len(kws) > 0 {
		return kws, TierScrapeNational, nil
	}
	logger.Info("national sweep empty, escalating", "next", TierAIPredicted)
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("harvest: %w", err)
	}

	if h.predictor != nil {
		kws, err := h.predictor.Predict(ctx, req)
		switch {
		case err != nil:
			logger.Warn("prediction failed, escalating", "next", TierStaticFallback, "err", err)
		case len(dedup(kws)) == 0:
			logger.Info("prediction empty, escalating", "next", TierStaticFallback)
		default:
			return kws, TierAIPredicted, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, "", fmt.Errorf("harvest: %w", err)
		}
	}

	return StaticKeywords(req), TierStaticFallback, nil
}

// StaticKeywords substitutes req into StaticTemplates. The vertical-only
// templates always apply, so the result is never empty for a valid request.
func StaticKeywords(req Request) []string {
	req = req.normalized()
	values := []string{
		"{vertical}", req.Vertical,
		"{location}", req.Location,
		"{offer}", req.Offer,
		"{audience}", req.Audience,
	}
	r := strings.NewReplacer(values...)

	out := make([]string, 0, len(StaticTemplates))
	for _, tmpl := range StaticTemplates {
		if phrase, ok := fill(r, tmpl, values); ok {
			out = append(out, phrase)
		}
	}
	return out
}

// fill skips tmpl when any placeholder it names has no value. The decision
// looks at the template only; values are substituted in a single pass so
// user text containing braces is never expanded again.
func fill(r *strings.Replacer, tmpl string, values []string) (string, bool) {
	for i := 0; i < len(values); i += 2 {
		if values[i+1] == "" && strings.Contains(tmpl, values[i]) {
			return "", false
		}
	}
	return strings.Join(strings.Fields(r.Replace(tmpl)), " "), true
}

// dedup trims, drops blanks and returns the remaining strings sorted.
func dedup(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	out := slices.Sorted(maps.Keys(set))
	if out == nil {
		out = []string{}
	}
	return out
}
