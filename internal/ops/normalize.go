package ops

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TitleCase canonicalizes an epic/label name: split on whitespace, upper
// the first letter of each token, lower the rest. Repeated spoken mentions
// of "roadmap", "Roadmap" and "ROADMAP" all land on the same label.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Normalize canonicalizes epic casing in place and returns the execution
// order as indices into the input slice. The order is a stable three-way
// partition: create_epic first, then create, then everything else, each
// group preserving the proposed order. A task cannot carry an epic that
// does not exist yet, and a new task must exist before later operations
// reference it by name.
//
// Results are still reported against the original batch positions; callers
// use the returned indices to map execution order back to input order.
func Normalize(batch []Operation) []int {
	for _, op := range batch {
		switch o := op.(type) {
		case *Create:
			o.Epic = TitleCase(o.Epic)
		case *Update:
			o.Epic = TitleCase(o.Epic)
		case *CreateEpic:
			o.Epic = TitleCase(o.Epic)
		case *AssignEpic:
			o.Epic = TitleCase(o.Epic)
		}
	}

	order := make([]int, 0, len(batch))
	for i, op := range batch {
		if op.Kind() == KindCreateEpic {
			order = append(order, i)
		}
	}
	for i, op := range batch {
		if op.Kind() == KindCreate {
			order = append(order, i)
		}
	}
	for i, op := range batch {
		if k := op.Kind(); k != KindCreateEpic && k != KindCreate {
			order = append(order, i)
		}
	}
	return order
}
