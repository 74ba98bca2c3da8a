package script

import (
	"slices"
	"strings"
)

// ActionSet is an ordered, immutable list of actions.
type ActionSet struct {
	actions []Action
}

// NewActionSet builds a set from actions in script order.
func NewActionSet(actions ...Action) *ActionSet {
	return &ActionSet{actions: slices.Clone(actions)}
}

// Actions returns the actions in script order.
func (s *ActionSet) Actions() []Action {
	return slices.Clone(s.actions)
}

// Len returns the number of actions.
func (s *ActionSet) Len() int {
	return len(s.actions)
}

// ActionsOfKind returns the actions of kind k in script order.
func (s *ActionSet) ActionsOfKind(k Kind) []Action {
	var out []Action
	for _, a := range s.actions {
		if a.Kind() == k {
			out = append(out, a)
		}
	}
	return out
}

// ReferencedTags returns the sorted, de-duplicated plain tag names the script names.
func (s *ActionSet) ReferencedTags() []string {
	var names []string
	for _, a := range s.actions {
		names = append(names, a.ReferencedTags()...)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// String renders the canonical script, one action per line. Parsing the
// result yields an equivalent set.
func (s *ActionSet) String() string {
	lines := make([]string, len(s.actions))
	for i, a := range s.actions {
		lines[i] = a.String()
	}
	return strings.Join(lines, "\n")
}
