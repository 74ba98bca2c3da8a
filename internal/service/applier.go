package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/script"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

// Outcome is the result of applying one action.
type Outcome string

const (
	// OutcomeApplied means the action changed the taxonomy.
	OutcomeApplied Outcome = "applied"
	// OutcomeSkipped means an earlier attempt of the same request already applied it.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the action could not be applied; see Reason.
	OutcomeFailed Outcome = "failed"
)

// ActionResult reports what happened to one action.
type ActionResult struct {
	Action  string  `json:"action"`
	Kind    string  `json:"kind"`
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`

	err error
}

// ApplyError is returned when at least one action failed. Results covers
// every action, including those that succeeded.
type ApplyError struct {
	RequestID int64
	Results   []ActionResult
}

func (e *ApplyError) Error() string {
	failed := len(e.Failures())
	return fmt.Sprintf("%d of %d actions failed", failed, len(e.Results))
}

// Failures returns "action: reason" for each failed action.
func (e *ApplyError) Failures() []string {
	var out []string
	for _, r := range e.Results {
		if r.Outcome == OutcomeFailed {
			out = append(out, r.Action+": "+r.Reason)
		}
	}
	return out
}

// Unwrap exposes the per-action causes to errors.Is and errors.As.
func (e *ApplyError) Unwrap() []error {
	var errs []error
	for _, r := range e.Results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errs
}

// Applier writes the actions of an approved script to the store.
// Actions run in script order, each in its own transaction. A failing action
// does not stop the ones after it.
type Applier struct {
	store     store.Store
	validator *taxonomy.Validator
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewApplier creates an applier.
func NewApplier(store store.Store, validator *taxonomy.Validator, recorder metrics.Recorder, logger *slog.Logger) *Applier {
	return &Applier{
		store:     store,
		validator: validator,
		recorder:  recorder,
		logger:    logger,
	}
}

// Apply applies set on behalf of approver and returns one result per action.
// The error is an *ApplyError when any action failed.
//
// Relations written here are stamped with bur.ID, so a second Apply of the
// same request skips what the first one committed.
func (a *Applier) Apply(ctx context.Context, bur *domain.BulkUpdateRequest, approver *domain.User, set *script.ActionSet) ([]ActionResult, error) {
	results := make([]ActionResult, 0, set.Len())
	failed := false

	for _, action := range set.Actions() {
		res := a.applyOne(ctx, bur, approver, action)
		if res.Outcome == OutcomeFailed {
			failed = true
			a.logger.Warn("bulk update action failed",
				"bur_id", bur.ID,
				"action", res.Action,
				"reason", res.Reason,
			)
		}
		a.recorder.ActionOutcome(res.Kind, string(res.Outcome))
		results = append(results, res)
	}

	if failed {
		return results, &ApplyError{RequestID: bur.ID, Results: results}
	}
	return results, nil
}

func (a *Applier) applyOne(ctx context.Context, bur *domain.BulkUpdateRequest, approver *domain.User, action script.Action) ActionResult {
	res := ActionResult{
		Action:  action.String(),
		Kind:    action.Kind().String(),
		Outcome: OutcomeApplied,
	}

	err := a.store.InTx(ctx, func(tx store.Store) error {
		done, err := appliedBefore(ctx, tx, bur.ID, action)
		if err != nil {
			return err
		}
		if done {
			res.Outcome = OutcomeSkipped
			return nil
		}

		// The taxonomy may have changed since the request was created.
		verrs, err := a.validator.Validate(ctx, script.NewActionSet(action), storeSnapshot{tx})
		if err != nil {
			return err
		}
		if len(verrs) > 0 {
			return verrs
		}

		return mutate(ctx, tx, bur, approver, action)
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Reason = err.Error()
		res.err = err
	}
	return res
}

// appliedBefore reports whether this request already committed action.
func appliedBefore(ctx context.Context, tx store.Store, burID int64, action script.Action) (bool, error) {
	var (
		kind    domain.RelationKind
		pair    script.Pair
		removal bool
	)
	switch act := action.(type) {
	case script.CreateAlias:
		kind, pair = domain.RelationAlias, act.Pair
	case script.RemoveAlias:
		kind, pair, removal = domain.RelationAlias, act.Pair, true
	case script.CreateImplication:
		kind, pair = domain.RelationImplication, act.Pair
	case script.RemoveImplication:
		kind, pair, removal = domain.RelationImplication, act.Pair, true
	default:
		// Mass updates and category changes converge on re-run.
		return false, nil
	}

	rel, err := tx.GetTagRelationByRequest(ctx, kind, pair.Antecedent, pair.Consequent, burID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if removal {
		return rel.DeletedByRequestID == burID, nil
	}
	return rel.BulkUpdateRequestID == burID, nil
}

func mutate(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, approver *domain.User, action script.Action) error {
	switch act := action.(type) {
	case script.CreateAlias:
		return createAlias(ctx, tx, bur, approver, act.Pair)
	case script.RemoveAlias:
		return removeRelation(ctx, tx, bur, approver, domain.RelationAlias, act.Pair)
	case script.CreateImplication:
		return createImplication(ctx, tx, bur, approver, act.Pair)
	case script.RemoveImplication:
		return removeRelation(ctx, tx, bur, approver, domain.RelationImplication, act.Pair)
	case script.MassUpdate:
		return massUpdate(ctx, tx, act)
	case script.ChangeCategory:
		return changeCategory(ctx, tx, act)
	default:
		return fmt.Errorf("unsupported action %T", action)
	}
}

func newRelation(kind domain.RelationKind, bur *domain.BulkUpdateRequest, approver *domain.User, p script.Pair) *domain.TagRelation {
	return &domain.TagRelation{
		Kind:                kind,
		AntecedentName:      p.Antecedent,
		ConsequentName:      p.Consequent,
		CreatorID:           bur.UserID,
		ApproverID:          approver.ID,
		BulkUpdateRequestID: bur.ID,
	}
}

func ensureTags(ctx context.Context, tx store.Store, names ...string) error {
	for _, name := range names {
		if _, err := tx.EnsureTag(ctx, name); err != nil {
			return fmt.Errorf("ensure tag %s: %w", name, err)
		}
	}
	return nil
}

// createAlias records antecedent -> consequent, points aliases of the
// antecedent at the consequent and retags posts.
func createAlias(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, approver *domain.User, p script.Pair) error {
	if err := tx.CreateTagRelation(ctx, newRelation(domain.RelationAlias, bur, approver, p)); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("tag alias %s -> %s collides with an active alias: %w", p.Antecedent, p.Consequent, err)
		}
		return fmt.Errorf("create tag alias: %w", err)
	}
	if err := ensureTags(ctx, tx, p.Antecedent, p.Consequent); err != nil {
		return err
	}
	if _, err := tx.RetargetTagAliases(ctx, p.Antecedent, p.Consequent); err != nil {
		return fmt.Errorf("retarget aliases of %s: %w", p.Antecedent, err)
	}
	if _, err := tx.RenamePostTag(ctx, p.Antecedent, p.Consequent); err != nil {
		return fmt.Errorf("retag posts: %w", err)
	}
	return nil
}

func createImplication(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, approver *domain.User, p script.Pair) error {
	if err := tx.CreateTagRelation(ctx, newRelation(domain.RelationImplication, bur, approver, p)); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("tag implication %s -> %s already exists: %w", p.Antecedent, p.Consequent, err)
		}
		return fmt.Errorf("create tag implication: %w", err)
	}
	if err := ensureTags(ctx, tx, p.Antecedent, p.Consequent); err != nil {
		return err
	}
	if _, err := tx.AddImpliedPostTag(ctx, p.Antecedent, p.Consequent); err != nil {
		return fmt.Errorf("add implied tag: %w", err)
	}
	return nil
}

func removeRelation(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, approver *domain.User, kind domain.RelationKind, p script.Pair) error {
	rel, err := tx.GetActiveTagRelation(ctx, kind, p.Antecedent, p.Consequent)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("tag %s %s -> %s does not exist", kind, p.Antecedent, p.Consequent)
	}
	if err != nil {
		return err
	}
	return tx.DeactivateTagRelation(ctx, kind, rel.ID, approver.ID, bur.ID)
}

// massUpdate rewrites every post matching the antecedent query: plain
// antecedent tags and negated consequent tags are removed, plain consequent
// tags are added.
func massUpdate(ctx context.Context, tx store.Store, m script.MassUpdate) error {
	q, err := postQuery(m.Antecedent)
	if err != nil {
		return err
	}

	ids, err := tx.FindPostIDs(ctx, q)
	if err != nil {
		return fmt.Errorf("find posts: %w", err)
	}

	var remove, add []string
	for _, t := range m.Antecedent {
		if t.IsPlain() {
			remove = append(remove, t.Name)
		}
	}
	for _, t := range m.Consequent {
		if t.Negated {
			remove = append(remove, t.Name)
		} else {
			add = append(add, t.Name)
		}
	}

	for _, id := range ids {
		post, err := tx.GetPost(ctx, id)
		if err != nil {
			return fmt.Errorf("get post %d: %w", id, err)
		}

		tags := rewriteTags(post.Tags, remove, add)
		if slices.Equal(tags, post.Tags) {
			continue
		}
		if err := tx.SetPostTags(ctx, id, tags); err != nil {
			return fmt.Errorf("update post %d: %w", id, err)
		}
	}
	return nil
}

func rewriteTags(current, remove, add []string) []string {
	tags := make([]string, 0, len(current)+len(add))
	for _, t := range current {
		if !slices.Contains(remove, t) {
			tags = append(tags, t)
		}
	}
	return domain.NormalizeTagSet(append(tags, add...))
}

// postQuery translates a mass update antecedent into a store query.
func postQuery(tokens []script.Token) (store.PostQuery, error) {
	var q store.PostQuery
	for _, t := range tokens {
		if name, value, ok := t.Metatag(); ok {
			if name != "id" || t.Negated || t.Optional {
				return q, fmt.Errorf("unsupported metatag %s", t)
			}
			sel, err := script.ParseIDSelector(value)
			if err != nil {
				return q, err
			}
			q.IDs, q.MinID, q.MaxID = sel.IDs, sel.Min, sel.Max
			continue
		}

		name := t.Name
		switch {
		case t.Negated && t.IsWildcard():
			q.ExcludedPatterns = append(q.ExcludedPatterns, name)
		case t.Negated:
			q.Excluded = append(q.Excluded, name)
		case t.Optional:
			q.AnyOf = append(q.AnyOf, name)
		case t.IsWildcard():
			q.Patterns = append(q.Patterns, name)
		default:
			q.Required = append(q.Required, name)
		}
	}
	return q, nil
}

func changeCategory(ctx context.Context, tx store.Store, c script.ChangeCategory) error {
	category, ok := domain.ParseCategory(c.Category)
	if !ok {
		return fmt.Errorf("invalid category %q", c.Category)
	}
	if _, err := tx.UpsertTagCategory(ctx, c.Tag, category); err != nil {
		return fmt.Errorf("set category of %s: %w", c.Tag, err)
	}
	return nil
}
