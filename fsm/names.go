package fsm

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Wildcard is the reserved source state that matches any current state
// for which a transition declares no exact mapping.
const Wildcard = "all"

const (
	isPrefix  = "is"
	canPrefix = "can"
)

// Underscore returns the canonical form of a transition or state name:
// lower snake case, so "shiftUp", "ShiftUp", "shift-up" and "shift_up"
// all become "shift_up".
func Underscore(name string) string {
	runes := []rune(strings.TrimSpace(name))

	var sb strings.Builder

	sb.Grow(len(runes) + 4)

	lastUnderscore := true

	writeUnderscore := func() {
		if !lastUnderscore {
			sb.WriteByte('_')

			lastUnderscore = true
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			writeUnderscore()
		case unicode.IsUpper(r):
			if i > 0 && startsWord(runes, i) {
				writeUnderscore()
			}

			sb.WriteRune(unicode.ToLower(r))

			lastUnderscore = false
		default:
			sb.WriteRune(r)

			lastUnderscore = false
		}
	}

	return strings.TrimRight(sb.String(), "_")
}

// startsWord reports whether the upper-case rune at i begins a new word,
// either after a lower-case letter or digit ("shiftUp") or as the last
// capital of an acronym followed by a lower-case letter ("HTTPServer").
func startsWord(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}

	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}

// Camelize returns the display form of a name: "first_gear" becomes "FirstGear".
func Camelize(name string) string {
	// A Caser keeps state, so one is created per call.
	caser := cases.Title(language.Und)

	var sb strings.Builder

	for part := range strings.SplitSeq(Underscore(name), "_") {
		if part == "" {
			continue
		}

		sb.WriteString(caser.String(part))
	}

	return sb.String()
}

// QueryKind distinguishes the two predicate families a machine can answer.
type QueryKind int

const (
	// QueryIsState asks whether an entity currently sits in a state ("isParked").
	QueryIsState QueryKind = iota + 1
	// QueryCanTransition asks whether a transition is legal right now ("canIgnite").
	QueryCanTransition
)

func (k QueryKind) String() string {
	switch k {
	case QueryIsState:
		return isPrefix
	case QueryCanTransition:
		return canPrefix
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// Query is a parsed predicate name such as "isParked" or "can_shift_up".
type Query struct {
	Kind QueryKind
	Name string
}

// ParseQuery splits a predicate name into its kind and canonical subject.
// The prefix only counts when it is followed by an upper-case letter or an
// underscore, so names like "issued" or "cancelled" are not mistaken for queries.
func ParseQuery(name string) (Query, bool) {
	name = strings.TrimSpace(name)

	if rest, ok := cutQueryPrefix(name, canPrefix); ok {
		return Query{Kind: QueryCanTransition, Name: Underscore(rest)}, true
	}

	if rest, ok := cutQueryPrefix(name, isPrefix); ok {
		return Query{Kind: QueryIsState, Name: Underscore(rest)}, true
	}

	return Query{}, false
}

func cutQueryPrefix(name, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" {
		return "", false
	}

	first, _ := utf8.DecodeRuneInString(rest)
	if first != '_' && !unicode.IsUpper(first) {
		return "", false
	}

	return rest, true
}

// deformalize strips an optional "is"/"can" prefix and canonicalizes the rest.
func deformalize(name string) string {
	if q, ok := ParseQuery(name); ok {
		return q.Name
	}

	return Underscore(name)
}
