// Package preprocess holds the pure text transforms applied to raw
// transcripts before any decisioning. No tenant data, no side effects.
package preprocess

import (
	"regexp"
	"strings"
)

// fillers are speech disfluencies stripped before matching. These are
// transcription artifacts, not meaning; "you know" mid-sentence carries
// no intent signal.
var fillers = []string{
	"um", "uh", "uhm", "er", "ah", "hmm",
	"you know", "i mean", "like i said",
}

var (
	spaceRe   = regexp.MustCompile(`\s+`)
	nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}\s'\-]`)
)

// Result carries both the cleaned display text and the normalized form
// used for matching.
type Result struct {
	// Text is the transcript with fillers stripped and whitespace
	// collapsed, original casing kept. This is what logs and traces show.
	Text string

	// Normalized is lowercased, punctuation-stripped,
	// stutter-deduplicated text for keyword and signature matching.
	Normalized string
}

// Clean prepares one raw utterance for the pipeline.
func Clean(raw string) Result {
	text := strings.TrimSpace(raw)
	text = spaceRe.ReplaceAllString(text, " ")
	text = stripFillers(text)

	norm := strings.ToLower(text)
	norm = nonWordRe.ReplaceAllString(norm, " ")
	norm = spaceRe.ReplaceAllString(norm, " ")
	norm = strings.TrimSpace(norm)
	norm = dedupAdjacent(norm)

	return Result{Text: text, Normalized: norm}
}

func stripFillers(text string) string {
	lower := strings.ToLower(text)
	for _, f := range fillers {
		for {
			idx := indexWord(lower, f)
			if idx < 0 {
				break
			}
			end := idx + len(f)
			// Swallow a trailing comma left behind by the filler.
			for end < len(text) && (text[end] == ',' || text[end] == ' ') {
				end++
			}
			text = strings.TrimSpace(text[:idx] + text[end:])
			lower = strings.ToLower(text)
		}
	}
	return spaceRe.ReplaceAllString(text, " ")
}

// indexWord finds needle in haystack on word boundaries only, so "um"
// never matches inside "number".
func indexWord(haystack, needle string) int {
	from := 0
	for {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return -1
		}
		idx += from
		startOK := idx == 0 || !isWordByte(haystack[idx-1])
		endIdx := idx + len(needle)
		endOK := endIdx == len(haystack) || !isWordByte(haystack[endIdx])
		if startOK && endOK {
			return idx
		}
		from = idx + 1
		if from >= len(haystack) {
			return -1
		}
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '\''
}

// dedupAdjacent collapses immediately repeated words: "my my my ac"
// becomes "my ac". STT stutter, not emphasis.
func dedupAdjacent(normalized string) string {
	words := strings.Fields(normalized)
	if len(words) < 2 {
		return normalized
	}
	out := words[:1]
	for _, w := range words[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// Words splits normalized text into match tokens.
func Words(normalized string) []string {
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}
