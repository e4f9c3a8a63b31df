// Package validate is the quality gate between a constructed response
// and the caller. It rejects output that would stall the call: empty or
// trivial text, dead-end phrasing, and repeats of what was already said.
package validate

import (
	"regexp"
	"strings"

	"voice-runtime/internal/loopdetect"
)

// Reasons, ordered by the checks that produce them. The orchestrator
// treats empty/too-short as soft failures (retryable in-call) and the
// rest as hard failures (bail out).
const (
	ReasonEmpty    = "empty"
	ReasonTooShort = "too_short"
	ReasonDeadEnd  = "dead_end"
	ReasonLateTurn = "late_turn_dead_end"
	ReasonLooping  = "looping"
)

// MinLength is the shortest response worth speaking.
const MinLength = 10

type Result struct {
	Usable bool
	Reason string
}

// IsHardFailure reports whether a rejection reason should end the
// normal recovery path (transfer instead of retry).
func IsHardFailure(reason string) bool {
	return reason == ReasonDeadEnd || reason == ReasonLateTurn || reason == ReasonLooping
}

// alwaysDeadEnd matches bare acknowledgements with nothing else; these
// stall the call at any turn.
var alwaysDeadEnd = regexp.MustCompile(`^(ok(ay)?|sure|got it|i understand|alright|sounds good|i see|noted)[.!?]?$`)

// lateTurnDeadEnd matches generic wrap-up phrasing. The same words are
// a legitimate follow-up question on the first turns, which is why this
// only applies from the configured turn onward.
var lateTurnDeadEnd = []*regexp.Regexp{
	regexp.MustCompile(`anything else i can (help|do)`),
	regexp.MustCompile(`(have a (great|good|wonderful) (day|night|one))[.!?]?$`),
	regexp.MustCompile(`^thanks for calling[^?]*[.!]?$`),
	regexp.MustCompile(`is there anything else (i can|we can) (help|assist)`),
}

// Validator runs the checks. The loop detector is injected so the
// 2-in-a-row repeat check shares state with response recording.
type Validator struct {
	loops *loopdetect.Detector

	// lateTurn is the first turn number where wrap-up phrasing counts
	// as a dead end.
	lateTurn int
}

func New(loops *loopdetect.Detector, lateTurnThreshold int) *Validator {
	if lateTurnThreshold <= 0 {
		lateTurnThreshold = 3
	}
	return &Validator{loops: loops, lateTurn: lateTurnThreshold}
}

// Validate checks one candidate response for one call turn. Checks run
// in order; the first failure wins.
func (v *Validator) Validate(text, callID string, turn int) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Reason: ReasonEmpty}
	}
	if len(trimmed) < MinLength {
		return Result{Reason: ReasonTooShort}
	}

	lower := strings.ToLower(trimmed)
	if alwaysDeadEnd.MatchString(lower) {
		return Result{Reason: ReasonDeadEnd}
	}

	if turn >= v.lateTurn {
		for _, re := range lateTurnDeadEnd {
			if re.MatchString(lower) {
				return Result{Reason: ReasonLateTurn}
			}
		}
	}

	if v.loops != nil {
		if r := v.loops.Check(callID, trimmed); r.IsLooping {
			return Result{Reason: ReasonLooping}
		}
	}

	return Result{Usable: true}
}
