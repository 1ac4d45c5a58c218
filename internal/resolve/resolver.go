// Package resolve maps human-provided names and positional phrases to
// concrete board entities. One resolver serves every entity kind; provider
// adapters only supply candidate lists, never their own matching logic.
package resolve

import (
	"fmt"
	"log"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind selects the entity kind being resolved. It picks the fuzzy threshold
// and the noun recognized in positional phrases ("checklist 2", "item 3").
type Kind int

const (
	KindTask Kind = iota
	KindChecklist
	KindChecklistItem
	KindLabel
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindChecklist:
		return "checklist"
	case KindChecklistItem:
		return "checklist item"
	case KindLabel:
		return "label"
	case KindMember:
		return "member"
	default:
		return "entity"
	}
}

// noun is the single token recognized in "<noun> <N>" positional phrases.
func (k Kind) noun() string {
	if k == KindChecklistItem {
		return "item"
	}
	return k.String()
}

// Candidate is one entity in scope. Alt is an alternate exact-match key
// (a Trello member's username); containment and fuzzy matching use Name
// only, like the original lookup did.
type Candidate struct {
	ID   string
	Name string
	Alt  string
}

// Strategy records which resolution step produced a match, for audit logs.
type Strategy string

const (
	StrategyExact       Strategy = "exact"
	StrategyContainment Strategy = "containment"
	StrategyPositional  Strategy = "positional"
	StrategyFuzzy       Strategy = "fuzzy"
	StrategyOnly        Strategy = "only-candidate"
)

// Match is a successful resolution: the candidate and its index in the
// scoped listing order.
type Match struct {
	Index     int
	Candidate Candidate
	Strategy  Strategy
}

// NotFoundError reports that every resolution strategy was exhausted.
type NotFoundError struct {
	Kind   Kind
	Query  string
	Detail string
}

func (e *NotFoundError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %q not found: %s", e.Kind, e.Query, e.Detail)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Query)
}

// IsNotFound reports whether err is a resolution NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// Thresholds holds the minimum fuzzy similarity ratio per entity kind.
// Spoken checklist and item names arrive with heavier transcription noise
// than task names, so their thresholds sit lower.
type Thresholds struct {
	Checklist     float64
	ChecklistItem float64
	Default       float64
}

// DefaultThresholds returns the tuned threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Checklist:     0.70,
		ChecklistItem: 0.60,
		Default:       0.75,
	}
}

// For returns the threshold for a kind.
func (t Thresholds) For(k Kind) float64 {
	switch k {
	case KindChecklist:
		return t.Checklist
	case KindChecklistItem:
		return t.ChecklistItem
	default:
		return t.Default
	}
}

// Resolver resolves names against a candidate scope. The zero value is not
// usable; construct with New.
type Resolver struct {
	Thresholds Thresholds
}

// New returns a resolver with the default thresholds.
func New() *Resolver {
	return &Resolver{Thresholds: DefaultThresholds()}
}

// Resolve finds the best-matching candidate for query, trying in strict
// priority order: exact match, containment, positional reference, fuzzy
// similarity, and (for checklists only) the single-candidate fallback.
// The first strategy to produce a hit short-circuits the rest.
func (r *Resolver) Resolve(kind Kind, query string, candidates []Candidate) (Match, error) {
	norm := normalize(query)

	if m, ok := exactMatch(norm, candidates); ok {
		return m, nil
	}
	if m, ok := containmentMatch(kind, query, norm, candidates); ok {
		return m, nil
	}

	// Positional reference. An out-of-range ordinal does not fail
	// immediately: the single-candidate fallback below may still apply.
	rangeDetail := ""
	if idx, ok := parsePositional(kind, query); ok {
		if idx >= 0 && idx < len(candidates) {
			return Match{Index: idx, Candidate: candidates[idx], Strategy: StrategyPositional}, nil
		}
		rangeDetail = fmt.Sprintf("only %d available", len(candidates))
	}

	if m, ok := r.fuzzyMatch(kind, query, norm, candidates); ok {
		return m, nil
	}

	// Single-candidate fallback, checklists only: when a task has just
	// one checklist, any reference to "the checklist" means that one.
	if kind == KindChecklist && len(candidates) == 1 {
		return Match{Index: 0, Candidate: candidates[0], Strategy: StrategyOnly}, nil
	}

	return Match{}, &NotFoundError{Kind: kind, Query: query, Detail: rangeDetail}
}

// ResolveSimilar is Resolve restricted to the name-similarity strategies:
// exact, containment, fuzzy. Positional phrases and the single-candidate
// fallback never apply. Callers use it when a non-match carries meaning of
// its own, like deciding whether a new checklist name refers to an
// existing one.
func (r *Resolver) ResolveSimilar(kind Kind, query string, candidates []Candidate) (Match, error) {
	norm := normalize(query)

	if m, ok := exactMatch(norm, candidates); ok {
		return m, nil
	}
	if m, ok := containmentMatch(kind, query, norm, candidates); ok {
		return m, nil
	}
	if m, ok := r.fuzzyMatch(kind, query, norm, candidates); ok {
		return m, nil
	}
	return Match{}, &NotFoundError{Kind: kind, Query: query}
}

// exactMatch is case-insensitive and trimmed. Members also match on their
// alternate username key.
func exactMatch(norm string, candidates []Candidate) (Match, bool) {
	for i, c := range candidates {
		if normalize(c.Name) == norm && norm != "" {
			return Match{Index: i, Candidate: c, Strategy: StrategyExact}, true
		}
		if c.Alt != "" && normalize(c.Alt) == norm {
			return Match{Index: i, Candidate: c, Strategy: StrategyExact}, true
		}
	}
	return Match{}, false
}

// containmentMatch matches either direction. Multiple containments pick
// the first in listing order; the pick is logged because it is heuristic.
// Because this runs before the positional step in Resolve, a very short
// candidate name can swallow a positional phrase that happens to contain
// it.
func containmentMatch(kind Kind, query, norm string, candidates []Candidate) (Match, bool) {
	if norm == "" {
		return Match{}, false
	}
	first := -1
	hits := 0
	for i, c := range candidates {
		cn := normalize(c.Name)
		if cn == "" {
			continue
		}
		if strings.Contains(cn, norm) || strings.Contains(norm, cn) {
			if first < 0 {
				first = i
			}
			hits++
		}
	}
	if first < 0 {
		return Match{}, false
	}
	if hits > 1 {
		log.Printf("resolve: %d %ss contain %q, picking first in listing order: %q",
			hits, kind, query, candidates[first].Name)
	}
	return Match{Index: first, Candidate: candidates[first], Strategy: StrategyContainment}, true
}

// fuzzyMatch accepts the best candidate above the kind's threshold.
func (r *Resolver) fuzzyMatch(kind Kind, query, norm string, candidates []Candidate) (Match, bool) {
	best := -1
	bestRatio := 0.0
	for i, c := range candidates {
		ratio := Similarity(norm, normalize(c.Name))
		if ratio > bestRatio {
			best = i
			bestRatio = ratio
		}
	}
	if best < 0 || bestRatio <= r.Thresholds.For(kind) {
		return Match{}, false
	}
	log.Printf("resolve: fuzzy-matched %s %q to %q (ratio %.2f)",
		kind, query, candidates[best].Name, bestRatio)
	return Match{Index: best, Candidate: candidates[best], Strategy: StrategyFuzzy}, true
}

// Similarity is the normalized edit-similarity ratio between two strings:
// 1 - editDistance/maxLen, in [0, 1].
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la := len([]rune(a))
	lb := len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(max)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
