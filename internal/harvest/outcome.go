package harvest

import (
	"strings"
	"time"
)

// Tier names the cascade stage that supplied an outcome's keywords, ordered
// from most to least trustworthy.
type Tier string

const (
	TierScrapeGeo      Tier = "scrape_geo"
	TierScrapeNational Tier = "scrape_national"
	TierAIPredicted    Tier = "ai_predicted"
	TierStaticFallback Tier = "static_fallback"
)

// Tiers lists every tier in cascade order.
var Tiers = []Tier{TierScrapeGeo, TierScrapeNational, TierAIPredicted, TierStaticFallback}

// Scraped reports whether the keywords came from the live oracle.
func (t Tier) Scraped() bool {
	return t == TierScrapeGeo || t == TierScrapeNational
}

// Label is the end-user message for the tier.
func (t Tier) Label() string {
	switch t {
	case TierScrapeGeo:
		return "Buscas reais na sua região"
	case TierScrapeNational:
		return "Buscas reais em todo o Brasil (sem dados locais)"
	case TierAIPredicted:
		return "Buscas previstas por IA (sem dados reais)"
	case TierStaticFallback:
		return "Sugestões genéricas (sem dados reais)"
	default:
		return string(t)
	}
}

// Request carries the harvest inputs. Only Vertical is required.
type Request struct {
	Vertical string `json:"vertical"`
	Location string `json:"location,omitempty"`
	Offer    string `json:"offer,omitempty"`
	Audience string `json:"audience,omitempty"`
}

func (r Request) normalized() Request {
	return Request{
		Vertical: strings.TrimSpace(r.Vertical),
		Location: strings.TrimSpace(r.Location),
		Offer:    strings.TrimSpace(r.Offer),
		Audience: strings.TrimSpace(r.Audience),
	}
}

// Outcome is the result of one harvest. It is built once and not changed
// afterwards.
type Outcome struct {
	ID       string        `json:"id"`
	Vertical string        `json:"vertical"`
	Location string        `json:"location,omitempty"`
	Keywords []string      `json:"keywords"`
	Tier     Tier          `json:"tier"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration_ns"`
}
