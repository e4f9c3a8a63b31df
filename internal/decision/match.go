package decision

import (
	"sort"
	"strings"

	"voice-runtime/internal/tenant"
)

// Card matching is the fast path of the engine: keyword/trigger overlap
// at full weight, synonym overlap down-weighted (single generic word to
// 50%, multi-word phrases to 80%). A card is eligible with at least one
// trigger hit or two synonym hits.

// genericSynonymWords mirror the card-health notion of words too vague
// to carry full weight on their own.
var genericSynonymWords = map[string]bool{
	"help":     true,
	"problem":  true,
	"issue":    true,
	"service":  true,
	"question": true,
	"broken":   true,
	"fix":      true,
	"call":     true,
}

type CardMatch struct {
	Card       tenant.Card
	Confidence float64

	TriggerHits int
	SynonymHits int
	Score       float64
}

// matchCard scores one card against normalized caller text.
func matchCard(normalized string, card tenant.Card) (CardMatch, bool) {
	m := CardMatch{Card: card}

	for _, trig := range card.Triggers {
		if containsPhrase(normalized, trig) {
			m.TriggerHits++
			m.Score += 1.0
		}
	}
	for _, syn := range card.Synonyms {
		if !containsPhrase(normalized, syn) {
			continue
		}
		m.SynonymHits++
		words := strings.Fields(strings.ToLower(strings.TrimSpace(syn)))
		switch {
		case len(words) > 1:
			m.Score += 0.8
		case len(words) == 1 && genericSynonymWords[words[0]]:
			m.Score += 0.5
		default:
			m.Score += 1.0
		}
	}

	if m.TriggerHits < 1 && m.SynonymHits < 2 {
		return CardMatch{}, false
	}

	m.Confidence = 0.55 + 0.2*m.Score
	if m.Confidence > 0.98 {
		m.Confidence = 0.98
	}
	return m, true
}

// MatchCards returns all eligible card matches, best first.
func MatchCards(normalized string, cfg tenant.RuntimeConfig) []CardMatch {
	var out []CardMatch
	for _, card := range cfg.Cards {
		if !card.Enabled {
			continue
		}
		if m, ok := matchCard(normalized, card); ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// containsPhrase matches a whole phrase on word boundaries within
// normalized text.
func containsPhrase(normalized, phrase string) bool {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" || normalized == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(normalized[idx:], p)
		if i < 0 {
			return false
		}
		i += idx
		startOK := i == 0 || normalized[i-1] == ' '
		end := i + len(p)
		endOK := end == len(normalized) || normalized[end] == ' '
		if startOK && endOK {
			return true
		}
		idx = i + 1
		if idx >= len(normalized) {
			return false
		}
	}
}
