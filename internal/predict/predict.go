// Package predict asks a generative model for the phrases people would type
// when looking for a business, for use when the live oracle has nothing.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/llm"
)

// DefaultCount is how many phrases the model is asked for.
const DefaultCount = 20

var ErrDisabled = errors.New("predict: no generator configured")

const systemPrompt = `Você é um especialista em SEO e Google Ads no mercado brasileiro.
Sua tarefa é prever buscas reais que consumidores digitam no Google.
Responda EXCLUSIVAMENTE com um array JSON de strings, sem markdown e sem explicações.`

// Predictor implements harvest.Predictor on top of an llm.Generator.
type Predictor struct {
	gen    llm.Generator
	count  int
	logger *slog.Logger
}

// New creates a Predictor. A nil gen yields a predictor that always returns
// ErrDisabled.
func New(gen llm.Generator, count int, logger *slog.Logger) *Predictor {
	if count <= 0 {
		count = DefaultCount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Predictor{gen: gen, count: count, logger: logger}
}

// Predict returns the model's phrases, trimmed and de-duplicated in model
// order. Any failure is returned as an error; the caller decides whether to
// escalate.
func (p *Predictor) Predict(ctx context.Context, req harvest.Request) ([]string, error) {
	if p == nil || p.gen == nil {
		return nil, ErrDisabled
	}

	out, err := p.gen.Generate(ctx, systemPrompt, p.prompt(req))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	var phrases []string
	if err := llm.ParseJSON(out, &phrases); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	seen := make(map[string]struct{}, len(phrases))
	keywords := make([]string, 0, len(phrases))
	for _, ph := range phrases {
		ph = strings.Join(strings.Fields(ph), " ")
		if ph == "" {
			continue
		}
		if _, dup := seen[ph]; dup {
			continue
		}
		seen[ph] = struct{}{}
		keywords = append(keywords, ph)
	}

	p.logger.Debug("prediction parsed", "vertical", req.Vertical, "requested", p.count, "returned", len(keywords))
	return keywords, nil
}

func (p *Predictor) prompt(req harvest.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Liste %d buscas reais e específicas que clientes fariam no Google para encontrar:\n\n", p.count)
	fmt.Fprintf(&b, "NEGÓCIO/NICHO: %s\n", req.Vertical)
	if req.Location != "" {
		fmt.Fprintf(&b, "LOCALIZAÇÃO: %s\n", req.Location)
	}
	if req.Offer != "" {
		fmt.Fprintf(&b, "OFERTA: %s\n", req.Offer)
	}
	if req.Audience != "" {
		fmt.Fprintf(&b, "PÚBLICO-ALVO: %s\n", req.Audience)
	}
	b.WriteString("\nMisture buscas de intenção de compra, comparação e urgência. ")
	if req.Location != "" {
		b.WriteString("Inclua o nome da cidade ou bairro em parte das buscas. ")
	}
	b.WriteString(`Formato: ["busca 1", "busca 2"]`)
	return b.String()
}
