// Package adcopy turns a harvest outcome into short Meta Ads variations.
package adcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/llm"
	"github.com/FranksOps/adblast/internal/metrics"
	"github.com/FranksOps/adblast/internal/relevance"
)

// Character limits for Facebook/Instagram placements.
const (
	MaxTitle       = 40
	MaxDescription = 125
	MaxCTA         = 20

	// Variations is how many ads one request produces.
	Variations = 5

	promptKeywords = 15
)

var (
	// ErrInvalidResponse means the model answered with something that is not
	// a list of ads.
	ErrInvalidResponse = errors.New("adcopy: invalid model response")
	// ErrIncompleteBrief means a required brief field is blank.
	ErrIncompleteBrief = errors.New("adcopy: incomplete brief")
)

// Brief is what the advertiser tells us.
type Brief struct {
	Client string `json:"cliente"`
	Offer  string `json:"oferta"`
	Niche  string `json:"nicho"`
}

// Validate reports the first blank required field.
func (b Brief) Validate() error {
	switch {
	case strings.TrimSpace(b.Offer) == "":
		return fmt.Errorf("%w: o campo 'oferta' é obrigatório", ErrIncompleteBrief)
	case strings.TrimSpace(b.Client) == "":
		return fmt.Errorf("%w: o campo 'cliente' é obrigatório", ErrIncompleteBrief)
	case strings.TrimSpace(b.Niche) == "":
		return fmt.Errorf("%w: o campo 'nicho' é obrigatório", ErrIncompleteBrief)
	}
	return nil
}

// Ad is one creative variation.
type Ad struct {
	Title       string `json:"titulo"`
	Description string `json:"descricao"`
	CTA         string `json:"cta"`
}

// Writer generates ad copy through an llm.Generator.
type Writer struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(gen llm.Generator, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{gen: gen, logger: logger}
}

// Generate asks the model for Variations ads. outcome may be nil, in which
// case the ads rely on the brief alone.
func (w *Writer) Generate(ctx context.Context, brief Brief, outcome *harvest.Outcome) ([]Ad, error) {
	if err := brief.Validate(); err != nil {
		return nil, err
	}

	out, err := w.gen.Generate(ctx, systemPrompt, userPrompt(brief, outcome))
	if err != nil {
		metrics.AdGenerationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("adcopy: generation failed: %w", err)
	}

	var ads []Ad
	if err := llm.ParseJSON(out, &ads); err != nil {
		metrics.AdGenerationsTotal.WithLabelValues("invalid").Inc()
		w.logger.Warn("unparseable ad copy", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	ads = Validate(ads)
	if len(ads) == 0 {
		metrics.AdGenerationsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: no ads in response", ErrInvalidResponse)
	}

	metrics.AdGenerationsTotal.WithLabelValues("ok").Inc()
	w.logger.Info("ad copy generated", "ads", len(ads), "client", brief.Client)
	return ads, nil
}

// Validate trims whitespace, truncates each field to its limit in runes and
// drops ads with neither title nor description.
func Validate(ads []Ad) []Ad {
	out := make([]Ad, 0, len(ads))
	for _, ad := range ads {
		v := Ad{
			Title:       clip(ad.Title, MaxTitle),
			Description: clip(ad.Description, MaxDescription),
			CTA:         clip(ad.CTA, MaxCTA),
		}
		if v.Title == "" && v.Description == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}

const systemPrompt = `Você é um Copywriter Sênior e Estrategista de Tráfego Pago especialista em Direct Response para o mercado brasileiro. Você cria anúncios para Meta Ads (Facebook/Instagram) que param o scroll e geram cliques qualificados.

O usuário fornecerá Cliente, Oferta e Nicho, e pode fornecer buscas reais do público.
Use os frameworks AIDA (Atenção, Interesse, Desejo, Ação) e PAS (Problema, Agitação, Solução).

REGRAS:
1. Gere exatamente 5 variações distintas.
2. TÍTULO com no máximo 40 caracteres. DESCRIÇÃO com no máximo 125 caracteres, otimizada para mobile. CTA com no máximo 18 caracteres, curto e imperativo.
3. Português do Brasil, tom natural e persuasivo. Evite palavras como "potencialize", "revolucionário" e "descubra o segredo".
4. Quando houver buscas, use a linguagem delas e ignore as que não combinam com a localização informada.

VARIAÇÕES:
1. PAS: dor latente do público e solução rápida.
2. Benefício: transformação clara após usar o produto ou serviço.
3. Autoridade: prova social ou tempo de mercado.
4. Escassez: tempo limitado ou poucas vagas.
5. Gancho: curiosidade forte ou pergunta provocativa.

Retorne EXCLUSIVAMENTE um array JSON puro, sem markdown e sem explicações.
Formato: [{"titulo": "...", "descricao": "...", "cta": "..."}]`

func userPrompt(b Brief, o *harvest.Outcome) string {
	var sb strings.Builder
	sb.WriteString("Gere 5 variações de anúncios para:\n\n")
	fmt.Fprintf(&sb, "OFERTA PRINCIPAL: %s\n", strings.TrimSpace(b.Offer))
	fmt.Fprintf(&sb, "CLIENTE/EMPRESA: %s\n", strings.TrimSpace(b.Client))
	fmt.Fprintf(&sb, "NICHO/PÚBLICO-ALVO: %s\n", strings.TrimSpace(b.Niche))

	if o != nil && len(o.Keywords) > 0 {
		if o.Location != "" {
			fmt.Fprintf(&sb, "LOCALIZAÇÃO: %s\n", o.Location)
		}
		fmt.Fprintf(&sb, "\nORIGEM DAS BUSCAS: %s\n", o.Tier.Label())
		if !o.Tier.Scraped() {
			sb.WriteString("Atenção: estas buscas não vieram de dados reais, use-as apenas como inspiração.\n")
		}
		ranked := relevance.Rank(o.Keywords, o.Location)
		if len(ranked) > promptKeywords {
			ranked = ranked[:promptKeywords]
		}
		sb.WriteString("BUSCAS DO PÚBLICO:\n")
		for _, kw := range ranked {
			fmt.Fprintf(&sb, "- %s\n", kw)
		}
	}

	sb.WriteString("\nLembre-se: retorne APENAS o array JSON, sem nenhum texto adicional.")
	return sb.String()
}
