// Package sweep fans one base phrase out across the alphabet and a set of
// modifier phrases so that an oracle returning a short top-N list per query is
// covered close to exhaustively.
package sweep

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/FranksOps/adblast/internal/suggest"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 6
	MaxConcurrency     = 10

	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

// DefaultModifiers is keyed by whether a location is present. Geo phrases
// embed the location inside the sentence instead of appending it.
var DefaultModifiers = map[bool][]string{
	true: {
		"melhor {vertical} em {location}",
		"{vertical} em {location} preço",
		"{vertical} em {location} barato",
		"{vertical} em {location} 24 horas",
		"{vertical} em {location} delivery",
		"{vertical} em {location} aberto agora",
		"{vertical} em {location} avaliações",
		"{vertical} em {location} telefone",
		"{vertical} em {location} centro",
		"{vertical} perto de {location}",
		"{vertical} zona sul {location}",
		"quanto custa {vertical} em {location}",
	},
	false: {
		"melhor {vertical}",
		"{vertical} perto de mim",
		"{vertical} preço",
		"{vertical} barato",
		"{vertical} 24 horas",
		"{vertical} delivery",
		"{vertical} aberto agora",
		"{vertical} avaliações",
		"{vertical} online",
		"{vertical} como escolher",
		"quanto custa {vertical}",
	},
}

// Fetcher is the single-query oracle. Implementations must not fail; an
// unusable answer is an empty slice.
type Fetcher interface {
	Fetch(ctx context.Context, q suggest.Query) []string
}

// Config tunes the sweep.
type Config struct {
	// Concurrency caps in-flight oracle calls (clamped to 1..MaxConcurrency).
	Concurrency int
	// Modifiers overrides DefaultModifiers.
	Modifiers map[bool][]string
}

// Sweeper is safe for concurrent use; it keeps no state between sweeps.
type Sweeper struct {
	fetcher     Fetcher
	concurrency int
	modifiers   map[bool][]string
	logger      *slog.Logger
}

// New creates a Sweeper over fetcher.
func New(fetcher Fetcher, cfg Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	n := cfg.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	n = min(n, MaxConcurrency)

	mods := cfg.Modifiers
	if mods == nil {
		mods = DefaultModifiers
	}

	return &Sweeper{
		fetcher:     fetcher,
		concurrency: n,
		modifiers:   mods,
		logger:      logger,
	}
}

// Plan returns every query a sweep for (vertical, location) issues: the base
// query, one per letter, then one per modifier phrase.
func (s *Sweeper) Plan(vertical, location string) []suggest.Query {
	vertical = strings.TrimSpace(vertical)
	location = strings.TrimSpace(location)
	if vertical == "" {
		return nil
	}

	hasLocation := location != ""
	mods := s.modifiers[hasLocation]

	plan := make([]suggest.Query, 0, 1+len(alphabet)+len(mods))
	plan = append(plan, suggest.Query{Vertical: vertical, Location: location})
	for _, letter := range alphabet {
		plan = append(plan, suggest.Query{Vertical: vertical, Location: location, Modifier: string(letter)})
	}

	r := strings.NewReplacer("{vertical}", vertical, "{location}", location)
	for _, tmpl := range mods {
		plan = append(plan, suggest.Query{
			Vertical: vertical,
			Location: location,
			Modifier: tmpl,
			Phrase:   strings.Join(strings.Fields(r.Replace(tmpl)), " "),
		})
	}
	return plan
}

// Sweep runs the plan and returns the sorted, de-duplicated union of every
// answer. An oracle that answers nothing yields an empty, non-nil slice.
func (s *Sweeper) Sweep(ctx context.Context, vertical, location string) []string {
	plan := s.Plan(vertical, location)
	if len(plan) == 0 {
		return []string{}
	}

	start := time.Now()
	results := make([][]string, len(plan))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, q := range plan {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.fetcher.Fetch(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	set := make(map[string]struct{})
	answered := 0
	for _, r := range results {
		if len(r) > 0 {
			answered++
		}
		for _, kw := range r {
			if kw != "" {
				set[kw] = struct{}{}
			}
		}
	}

	keywords := slices.Sorted(maps.Keys(set))
	if keywords == nil {
		keywords = []string{}
	}

	s.logger.Debug("sweep finished",
		"vertical", vertical,
		"location", location,
		"queries", len(plan),
		"answered", answered,
		"keywords", len(keywords),
		"duration", time.Since(start),
	)
	return keywords
}
