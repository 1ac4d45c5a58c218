package resolve

import (
	"strconv"
	"strings"
)

// ordinalWords maps spoken ordinals to zero-based indices. Meetings rarely
// reference past the tenth of anything; beyond that speakers use names.
var ordinalWords = map[string]int{
	"first":   0,
	"second":  1,
	"third":   2,
	"fourth":  3,
	"fifth":   4,
	"sixth":   5,
	"seventh": 6,
	"eighth":  7,
	"ninth":   8,
	"tenth":   9,
}

// parsePositional extracts a zero-based index from a positional phrase:
// an ordinal word ("second checklist"), a numeric ordinal ("2nd item"),
// or the "<kind> <N>" pattern ("checklist 2"). Returns ok=false when the
// query contains no positional reference for this kind.
func parsePositional(kind Kind, query string) (int, bool) {
	tokens := strings.Fields(strings.ToLower(query))
	for i, tok := range tokens {
		tok = strings.Trim(tok, ".,!?:;\"'")
		if idx, ok := ordinalWords[tok]; ok {
			return idx, true
		}
		if idx, ok := parseNumericOrdinal(tok); ok {
			return idx, true
		}
		if tok == kind.noun() && i+1 < len(tokens) {
			next := strings.Trim(tokens[i+1], ".,!?:;\"'")
			if n, err := strconv.Atoi(next); err == nil && n >= 1 {
				return n - 1, true
			}
		}
	}
	return 0, false
}

// parseNumericOrdinal handles "1st".."10th" style tokens.
func parseNumericOrdinal(tok string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(tok, suffix) {
			n, err := strconv.Atoi(strings.TrimSuffix(tok, suffix))
			if err == nil && n >= 1 && n <= 10 {
				return n - 1, true
			}
		}
	}
	return 0, false
}
