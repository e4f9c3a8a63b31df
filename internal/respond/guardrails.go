package respond

import (
	"regexp"
	"strings"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/tenant"
)

// Guardrails rewrite commitments the agent is not allowed to make:
// price figures (unless the tenant configured pricing variables) and
// specific arrival-time windows. Both rewrites are idempotent; the
// replacement text never re-matches its own pattern.

const vaguePricePhrase = "a competitive rate"
const vagueArrivalPhrase = "as soon as we can"

var (
	priceRe = regexp.MustCompile(`\$\s?\d[\d,]*(\.\d{1,2})?`)

	arrivalWindowRe = regexp.MustCompile(`(?i)\b(within|in under|in about)\s+\d+\s*(minutes?|mins?|hours?)\b`)
	arrivalRangeRe  = regexp.MustCompile(`(?i)\bbetween\s+\d{1,2}(:\d{2})?\s*(am|pm)?\s+and\s+\d{1,2}(:\d{2})?\s*(am|pm)\b`)
)

// ApplyGuardrails rewrites text according to tenant settings.
func ApplyGuardrails(text string, settings tenant.Settings) string {
	out := text
	if !settings.PricingConfigured {
		out = priceRe.ReplaceAllString(out, vaguePricePhrase)
	}
	out = arrivalWindowRe.ReplaceAllString(out, vagueArrivalPhrase)
	out = arrivalRangeRe.ReplaceAllString(out, vagueArrivalPhrase)
	return out
}

// Vars is the substitution context built from call state and tenant
// configuration. Placeholders use {curly} names.
func Vars(state callstate.CallState, cfg tenant.RuntimeConfig) map[string]string {
	vars := map[string]string{
		"companyname": cfg.Name,
		"trade":       cfg.Trade,
		"callername":  state.Entities.Name,
	}
	for k, v := range cfg.Settings.Variables {
		vars[strings.ToLower(k)] = v
	}
	return vars
}

var placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)

// Substitute replaces {placeholders} from vars. Unknown placeholders
// are removed rather than spoken aloud.
func Substitute(text string, vars map[string]string) string {
	out := placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		key := strings.Trim(m, "{}")
		return vars[key]
	})
	out = strings.Join(strings.Fields(out), " ")
	return strings.TrimSpace(out)
}
