// Package script parses bulk update scripts into typed actions.
//
// A script is line oriented:
//
//	create alias <a> -> <b>
//	remove alias <a> -> <b>
//	create implication <a> -> <b>      (also: imply)
//	remove implication <a> -> <b>      (also: unimply)
//	mass update <tags> -> <tags>
//	category <tag> -> <category>
//
// The package knows nothing about the taxonomy itself; it only turns text into
// an ActionSet and renders an ActionSet back into canonical text.
package script

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of an Action.
type Kind int

// Action kinds. Adding a verb means adding a Kind, a concrete type and a case
// in every type switch over Action (validator and applier).
const (
	KindCreateAlias Kind = iota + 1
	KindRemoveAlias
	KindCreateImplication
	KindRemoveImplication
	KindMassUpdate
	KindChangeCategory
)

var kindNames = map[Kind]string{
	KindCreateAlias:       "create_alias",
	KindRemoveAlias:       "remove_alias",
	KindCreateImplication: "create_implication",
	KindRemoveImplication: "remove_implication",
	KindMassUpdate:        "mass_update",
	KindChangeCategory:    "change_category",
}

// String returns the snake_case kind name used in logs and metrics.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Action is one parsed script line. The set of implementations is closed:
// CreateAlias, RemoveAlias, CreateImplication, RemoveImplication, MassUpdate
// and ChangeCategory.
type Action interface {
	Kind() Kind
	// String renders the canonical script line.
	String() string
	// ReferencedTags lists the tag names the action names directly.
	ReferencedTags() []string
	sealed()
}

// Pair is the antecedent/consequent pair shared by alias and implication actions.
type Pair struct {
	Antecedent string `json:"antecedent"`
	Consequent string `json:"consequent"`
}

// IsSelfReference reports whether both sides name the same tag.
func (p Pair) IsSelfReference() bool {
	return p.Antecedent == p.Consequent
}

// ReferencedTags returns both names.
func (p Pair) ReferencedTags() []string {
	return []string{p.Antecedent, p.Consequent}
}

func (p Pair) render(verb string) string {
	return verb + " " + p.Antecedent + " -> " + p.Consequent
}

// CreateAlias aliases Antecedent to Consequent.
type CreateAlias struct{ Pair }

// RemoveAlias deactivates the alias Antecedent -> Consequent.
type RemoveAlias struct{ Pair }

// CreateImplication makes Antecedent imply Consequent.
type CreateImplication struct{ Pair }

// RemoveImplication deactivates the implication Antecedent -> Consequent.
type RemoveImplication struct{ Pair }

// Kind implements Action.
func (CreateAlias) Kind() Kind { return KindCreateAlias }

// Kind implements Action.
func (RemoveAlias) Kind() Kind { return KindRemoveAlias }

// Kind implements Action.
func (CreateImplication) Kind() Kind { return KindCreateImplication }

// Kind implements Action.
func (RemoveImplication) Kind() Kind { return KindRemoveImplication }

func (a CreateAlias) String() string       { return a.render("create alias") }
func (a RemoveAlias) String() string       { return a.render("remove alias") }
func (a CreateImplication) String() string { return a.render("create implication") }
func (a RemoveImplication) String() string { return a.render("remove implication") }

func (CreateAlias) sealed()       {}
func (RemoveAlias) sealed()       {}
func (CreateImplication) sealed() {}
func (RemoveImplication) sealed() {}

// MassUpdate rewrites the tags of every post matching Antecedent.
type MassUpdate struct {
	Antecedent []Token `json:"antecedent"`
	Consequent []Token `json:"consequent"`
}

// Kind implements Action.
func (MassUpdate) Kind() Kind { return KindMassUpdate }

func (m MassUpdate) String() string {
	s := "mass update " + joinTokens(m.Antecedent) + " ->"
	if len(m.Consequent) > 0 {
		s += " " + joinTokens(m.Consequent)
	}
	return s
}

// ReferencedTags returns the plain tag names on either side. Negated,
// optional, wildcard and metatag tokens are query syntax, not tags.
func (m MassUpdate) ReferencedTags() []string {
	var names []string
	for _, list := range [][]Token{m.Antecedent, m.Consequent} {
		for _, t := range list {
			if t.IsPlain() {
				names = append(names, t.Name)
			}
		}
	}
	return names
}

func (MassUpdate) sealed() {}

// ChangeCategory moves Tag into Category. Category is not checked here.
type ChangeCategory struct {
	Tag      string `json:"tag"`
	Category string `json:"category"`
}

// Kind implements Action.
func (ChangeCategory) Kind() Kind { return KindChangeCategory }

func (c ChangeCategory) String() string {
	return "category " + c.Tag + " -> " + c.Category
}

// ReferencedTags returns the tag being reclassified.
func (c ChangeCategory) ReferencedTags() []string {
	return []string{c.Tag}
}

func (ChangeCategory) sealed() {}

func joinTokens(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
