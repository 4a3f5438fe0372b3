// Package relevance tags harvested keywords with locality and search intent
// so downstream consumers can put the strongest phrases first.
package relevance

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is the coarse goal behind a search phrase.
type Intent string

const (
	IntentTransactional Intent = "transactional"
	IntentNavigational  Intent = "navigational"
	IntentInformational Intent = "informational"
	IntentLocal         Intent = "local"
)

// Cue lists are matched against folded text (lower case, no accents).
var (
	transactionalCues = []string{
		"preco", "precos", "valor", "quanto custa", "orcamento", "comprar", "compra",
		"barato", "barata", "promocao", "desconto", "oferta", "delivery", "entrega",
		"agendar", "agendamento", "contratar", "aluguel", "alugar", "24 horas",
		"aberto agora", "plantao", "urgente", "melhor", "melhores",
	}
	navigationalCues = []string{
		"site", "telefone", "whatsapp", "instagram", "endereco", "horario",
		"login", "contato", "cnpj", "reclame aqui",
	}
	informationalCues = []string{
		"como", "o que", "qual", "quais", "quando", "por que", "porque", "dicas",
		"vale a pena", "e bom", "significado", "diferenca", "tipos",
	}
	proximityCues = []string{
		"perto de mim", "proximo", "proxima", "na regiao", "aqui perto", "mais perto",
	}

	stopwords = map[string]bool{"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true}
)

// Signal is the classification of one keyword.
type Signal struct {
	Keyword string `json:"keyword"`
	Local   bool   `json:"local"`
	Intent  Intent `json:"intent"`
}

// Score orders signals: local and transactional beats local, which beats
// transactional, which beats the rest.
func (s Signal) Score() int {
	score := 0
	if s.Local {
		score += 2
	}
	if s.Intent == IntentTransactional {
		score++
	}
	return score
}

// Fold lower-cases s and strips diacritics, so "São Paulo" and "sao paulo"
// compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Lower(language.BrazilianPortuguese).String(out)), " ")
}

// Matcher holds a pre-folded location so many keywords can be classified
// without re-normalizing it each time.
type Matcher struct {
	phrase   string
	tokens   []string
	initials string
}

// NewMatcher prepares location for matching. An empty location only matches
// proximity phrases such as "perto de mim".
func NewMatcher(location string) *Matcher {
	m := &Matcher{phrase: Fold(location)}
	if m.phrase == "" {
		return m
	}

	var initials strings.Builder
	significant := 0
	for _, w := range tokenize(m.phrase) {
		if stopwords[w] {
			continue
		}
		significant++
		initials.WriteByte(w[0])
		if len(w) >= 4 {
			m.tokens = append(m.tokens, w)
		}
	}
	if significant >= 2 {
		m.initials = initials.String()
	}
	return m
}

// Classify tags one keyword.
func (m *Matcher) Classify(keyword string) Signal {
	folded := Fold(keyword)
	padded := " " + strings.Join(tokenize(folded), " ") + " "

	sig := Signal{Keyword: keyword, Local: m.isLocal(padded)}
	switch {
	case containsAny(padded, transactionalCues):
		sig.Intent = IntentTransactional
	case containsAny(padded, navigationalCues):
		sig.Intent = IntentNavigational
	case containsAny(padded, informationalCues):
		sig.Intent = IntentInformational
	case sig.Local:
		sig.Intent = IntentLocal
	default:
		sig.Intent = IntentInformational
	}
	return sig
}

func (m *Matcher) isLocal(padded string) bool {
	if containsAny(padded, proximityCues) {
		return true
	}
	if m.phrase == "" {
		return false
	}
	if strings.Contains(padded, " "+strings.Join(tokenize(m.phrase), " ")+" ") {
		return true
	}
	for _, tok := range m.tokens {
		if strings.Contains(padded, " "+tok+" ") {
			return true
		}
	}
	return m.initials != "" && strings.Contains(padded, " "+m.initials+" ")
}

// Classify tags keyword against location.
func Classify(keyword, location string) Signal {
	return NewMatcher(location).Classify(keyword)
}

// Annotate classifies every keyword, keeping input order.
func Annotate(keywords []string, location string) []Signal {
	m := NewMatcher(location)
	out := make([]Signal, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, m.Classify(kw))
	}
	return out
}

// Rank returns keywords ordered by Score, highest first. Ties keep their
// input order.
func Rank(keywords []string, location string) []string {
	signals := Annotate(keywords, location)
	slices.SortStableFunc(signals, func(a, b Signal) int {
		return b.Score() - a.Score()
	})
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Keyword
	}
	return out
}

// tokenize splits folded text on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(padded string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(padded, " "+c+" ") {
			return true
		}
	}
	return false
}
