package tenant

import "strings"

// RuntimeConfig is the read-only per-company configuration the turn
// pipeline runs against. It is loaded fresh (or from cache) at turn
// start; the runtime never writes it.
//
// Tenant-agnostic invariant: nothing in this runtime may hard-code a
// trade or business term. Anything trade-specific must come from this
// structure.

type RuntimeConfig struct {
	CompanyID    string   `json:"company_id"`
	Name         string   `json:"name"`
	Trade        string   `json:"trade"`
	ServiceTypes []string `json:"service_types,omitempty"`

	Cards []Card `json:"cards,omitempty"`

	Settings Settings `json:"settings"`
}

// Card is a tenant-configured triage rule: triggers/synonyms matched
// against the caller's words map to a route and a canned opening line.
type Card struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	Triggers []string `json:"triggers,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`

	Routing     Routing `json:"routing"`
	OpeningLine string  `json:"opening_line,omitempty"`
	Category    string  `json:"category,omitempty"`

	// FollowUpQuestions / Steps feed the health scorer; cards without
	// either are structurally shallow.
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
	Steps             []string `json:"steps,omitempty"`

	// NextAction names what happens after the card's content plays out
	// (booking, transfer, escalation). Empty means undefined.
	NextAction string `json:"next_action,omitempty"`
}

type Routing string

const (
	RoutingBook     Routing = "BOOK"
	RoutingTransfer Routing = "TRANSFER"
	RoutingScenario Routing = "ROUTE_TO_SCENARIO"
	RoutingMessage  Routing = "MESSAGE_ONLY"
)

type Settings struct {
	// PricingConfigured gates whether responses may carry price figures.
	PricingConfigured bool `json:"pricing_configured,omitempty"`

	// LateTurnThreshold overrides the runtime default when > 0.
	LateTurnThreshold int `json:"late_turn_threshold,omitempty"`

	// Variables are substituted into response placeholders last,
	// e.g. "companyname" or a tenant-configured "standardrate".
	Variables map[string]string `json:"variables,omitempty"`
}

// GenericTags is the small tag vocabulary available to every tenant in
// addition to tags derived from its own cards.
var GenericTags = []string{
	"general-inquiry",
	"scheduling",
	"pricing",
	"emergency",
	"callback",
	"other",
}

// Tag normalizes a card name into a triage tag.
func Tag(name string) string {
	t := strings.ToLower(strings.TrimSpace(name))
	t = strings.Join(strings.Fields(t), "-")
	return t
}

// TriageTags returns the full tag vocabulary for this tenant: one tag
// per enabled card plus the generic set.
func (c RuntimeConfig) TriageTags() []string {
	seen := make(map[string]bool)
	var out []string
	for _, card := range c.Cards {
		if !card.Enabled {
			continue
		}
		t := Tag(card.Name)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range GenericTags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// CardByID returns the enabled card with the given id.
func (c RuntimeConfig) CardByID(id string) (Card, bool) {
	for _, card := range c.Cards {
		if card.ID == id && card.Enabled {
			return card, true
		}
	}
	return Card{}, false
}
