package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/script"
)

// DefaultMaxGraphNodes bounds a single reachability search.
const DefaultMaxGraphNodes = 10000

var errGraphTooLarge = errors.New("implication graph too large")

// ValidationError is one semantic problem with an action.
type ValidationError struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Action)
}

// ValidationErrors aggregates every problem found in a script.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Messages returns the rendered messages.
func (e ValidationErrors) Messages() []string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return msgs
}

// Validator checks an ActionSet against a Snapshot.
// The zero value is usable and applies DefaultMaxGraphNodes.
type Validator struct {
	MaxGraphNodes int
}

// Validate runs with a zero Validator.
func Validate(ctx context.Context, set *script.ActionSet, snap Snapshot) (ValidationErrors, error) {
	var v Validator
	return v.Validate(ctx, set, snap)
}

// Validate returns every validation problem in set. All checks run; an empty
// result means the set may be persisted. Each action is checked against the
// taxonomy as it stands once the actions before it have run, which is how the
// applier will see it. The error is non-nil only when the snapshot itself
// fails.
func (v *Validator) Validate(ctx context.Context, set *script.ActionSet, snap Snapshot) (ValidationErrors, error) {
	maxNodes := v.MaxGraphNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxGraphNodes
	}

	c := &checker{
		snap:         snap,
		graph:        newGraph(snap, set, maxNodes),
		implications: make(map[edge]bool),
	}

	for _, action := range set.Actions() {
		if err := c.check(ctx, action); err != nil {
			return nil, err
		}
		c.record(action)
	}
	return c.errs, nil
}

type checker struct {
	snap  Snapshot
	graph *graph
	errs  ValidationErrors

	// Alias and implication changes made by the actions checked so far.
	aliases      []script.Action
	implications map[edge]bool
}

func (c *checker) fail(action script.Action, format string, args ...any) {
	c.errs = append(c.errs, ValidationError{
		Message: fmt.Sprintf(format, args...),
		Action:  action.String(),
	})
}

func (c *checker) check(ctx context.Context, action script.Action) error {
	switch a := action.(type) {
	case script.CreateAlias:
		return c.checkCreateAlias(ctx, a)
	case script.RemoveAlias:
		return c.checkRemoveAlias(ctx, a)
	case script.CreateImplication:
		return c.checkCreateImplication(ctx, a)
	case script.RemoveImplication:
		return c.checkRemoveImplication(ctx, a)
	case script.MassUpdate:
		c.checkMassUpdate(a)
		return nil
	case script.ChangeCategory:
		if _, ok := domain.ParseCategory(a.Category); !ok {
			c.fail(a, "Invalid category: %s", a.Category)
		}
		return nil
	default:
		return fmt.Errorf("unsupported action %T", action)
	}
}

// record carries the effect of action over to the actions after it.
func (c *checker) record(action script.Action) {
	switch a := action.(type) {
	case script.CreateAlias, script.RemoveAlias:
		c.aliases = append(c.aliases, a)
	case script.CreateImplication:
		c.implications[edge{a.Antecedent, a.Consequent}] = true
	case script.RemoveImplication:
		c.implications[edge{a.Antecedent, a.Consequent}] = false
		c.graph.remove(a.Antecedent, a.Consequent)
	}
}

// aliasOf returns the consequent tag is aliased to after the alias actions
// checked so far, or "" when it has none. source is the script action that
// created the alias, nil when it already existed.
func (c *checker) aliasOf(ctx context.Context, tag string) (consequent string, source script.Action, err error) {
	existing, err := c.snap.ActiveAlias(ctx, tag)
	if err != nil {
		return "", nil, err
	}
	if existing != nil {
		consequent = existing.ConsequentName
	}

	for _, action := range c.aliases {
		switch a := action.(type) {
		case script.CreateAlias:
			switch {
			case a.Antecedent == tag:
				consequent, source = a.Consequent, a
			case consequent != "" && a.Antecedent == consequent && a.Consequent != tag:
				// Creating an alias retargets aliases pointing at its antecedent.
				consequent = a.Consequent
			}
		case script.RemoveAlias:
			if a.Antecedent == tag && a.Consequent == consequent {
				consequent, source = "", nil
			}
		}
	}
	return consequent, source, nil
}

// implicationExists reports whether antecedent -> consequent is active after
// the implication actions checked so far.
func (c *checker) implicationExists(ctx context.Context, antecedent, consequent string) (bool, error) {
	if active, ok := c.implications[edge{antecedent, consequent}]; ok {
		return active, nil
	}
	existing, err := c.snap.ActiveImplication(ctx, antecedent, consequent)
	return existing != nil, err
}

func (c *checker) checkCreateAlias(ctx context.Context, a script.CreateAlias) error {
	if a.IsSelfReference() {
		c.fail(a, "Cannot alias or implicate a tag to itself")
	}

	current, source, err := c.aliasOf(ctx, a.Antecedent)
	if err != nil {
		return err
	}
	switch {
	case current == "":
	case source != nil:
		c.fail(a, "A tag alias for %s is also created by %q", a.Antecedent, source.String())
	case current == a.Consequent:
		c.fail(a, "Tag alias %s -> %s already exists", a.Antecedent, a.Consequent)
	default:
		c.fail(a, "A tag alias for %s already exists", a.Antecedent)
	}

	// The consequent must not itself be aliased away, otherwise the new alias
	// would point at a tag that never appears on posts.
	if !a.IsSelfReference() {
		chained, _, err := c.aliasOf(ctx, a.Consequent)
		if err != nil {
			return err
		}
		if chained != "" {
			c.fail(a, "A tag alias for %s already exists", a.Consequent)
		}
	}
	return nil
}

func (c *checker) checkRemoveAlias(ctx context.Context, a script.RemoveAlias) error {
	current, _, err := c.aliasOf(ctx, a.Antecedent)
	if err != nil {
		return err
	}
	if current != a.Consequent {
		c.fail(a, "Tag alias %s -> %s does not exist", a.Antecedent, a.Consequent)
	}
	return nil
}

func (c *checker) checkRemoveImplication(ctx context.Context, a script.RemoveImplication) error {
	exists, err := c.implicationExists(ctx, a.Antecedent, a.Consequent)
	if err != nil {
		return err
	}
	if !exists {
		c.fail(a, "Tag implication %s -> %s does not exist", a.Antecedent, a.Consequent)
	}
	return nil
}

func (c *checker) checkCreateImplication(ctx context.Context, a script.CreateImplication) error {
	if a.IsSelfReference() {
		c.fail(a, "Cannot alias or implicate a tag to itself")
		return nil
	}

	exists, err := c.implicationExists(ctx, a.Antecedent, a.Consequent)
	if err != nil {
		return err
	}
	if exists {
		c.fail(a, "Tag implication %s -> %s already exists", a.Antecedent, a.Consequent)
		return nil
	}

	self := edge{a.Antecedent, a.Consequent}

	circular, err := c.graph.reachable(ctx, a.Consequent, a.Antecedent, self)
	if errors.Is(err, errGraphTooLarge) {
		c.fail(a, "Tag implication graph is too large to validate")
		return nil
	}
	if err != nil {
		return err
	}
	if circular {
		c.fail(a, "Tag implication can not create a circular relation with another tag implication")
	}

	redundant, err := c.graph.reachable(ctx, a.Antecedent, a.Consequent, self)
	if errors.Is(err, errGraphTooLarge) {
		c.fail(a, "Tag implication graph is too large to validate")
		return nil
	}
	if err != nil {
		return err
	}
	if redundant {
		c.fail(a, "%s already implies %s through another implication", a.Antecedent, a.Consequent)
	}
	return nil
}

func (c *checker) checkMassUpdate(a script.MassUpdate) {
	for _, t := range a.Consequent {
		if t.Optional || t.IsWildcard() || t.IsMetatag() {
			c.fail(a, "Mass update consequent cannot contain wildcards, optional tags or metatags")
			break
		}
	}

	selects, seenID := false, false
	for _, t := range a.Antecedent {
		if !t.Negated {
			selects = true
		}
		name, value, ok := t.Metatag()
		if !ok {
			if t.Optional && t.IsWildcard() {
				c.fail(a, "Optional tags cannot contain wildcards: %s", t.String())
			}
			continue
		}
		if name != "id" || t.Optional || t.Negated || seenID {
			c.fail(a, "Unsupported metatag: %s", t.String())
			continue
		}
		seenID = true
		if _, err := script.ParseIDSelector(value); err != nil {
			c.fail(a, "Unsupported metatag: %s", t.String())
		}
	}
	if !selects {
		c.fail(a, "Mass update antecedent must include at least one tag that is not negated")
	}
}
