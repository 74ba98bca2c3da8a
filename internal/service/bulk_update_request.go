package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/jobs"
	"github.com/tagwright/tagwright-server/internal/metrics"
	"github.com/tagwright/tagwright-server/internal/script"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
	"github.com/tagwright/tagwright-server/internal/validation"
)

// CreateParams is the input of BulkUpdateService.Create.
type CreateParams struct {
	Title        string `json:"title" validate:"required,max=255"`
	Reason       string `json:"reason" validate:"max=10000"`
	Script       string `json:"script" validate:"required,max=100000"`
	ForumTopicID int64  `json:"forum_topic_id,omitempty" validate:"gte=0"`
}

// UpdateParams lists the fields to change on a pending request. Nil fields
// are left alone.
type UpdateParams struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=10000"`
	Script *string `json:"script,omitempty" validate:"omitempty,min=1,max=100000"`
}

// SearchParams filters BulkUpdateService.Search. Set fields combine with AND.
type SearchParams struct {
	RequesterName string `json:"requester_name,omitempty"`
	ApproverName  string `json:"approver_name,omitempty"`
	Status        string `json:"status,omitempty" validate:"omitempty,burstatus"`
	Limit         int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
	Offset        int    `json:"offset,omitempty" validate:"gte=0"`
}

// PreviewAction is one parsed line of a previewed script.
type PreviewAction struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Preview is the dry-run result of a script.
type Preview struct {
	Script  string                     `json:"script"`
	Actions []PreviewAction            `json:"actions"`
	Tags    []string                   `json:"tags"`
	Errors  []taxonomy.ValidationError `json:"errors"`
}

// Valid reports whether the script could be submitted as is.
func (p *Preview) Valid() bool {
	return len(p.Errors) == 0
}

// BulkUpdateService runs the bulk update request lifecycle: submission,
// editing, approval with application of the script, and rejection.
type BulkUpdateService struct {
	store     store.Store
	runner    jobs.Runner
	applier   *Applier
	forum     *ForumService
	notifier  *Notifier
	validator *taxonomy.Validator
	validate  *validation.Validator
	emitter   store.EventEmitter
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewBulkUpdateService creates the service. Approvals run their script
// through runner and wait for it.
func NewBulkUpdateService(
	store store.Store,
	runner jobs.Runner,
	applier *Applier,
	forum *ForumService,
	notifier *Notifier,
	validator *taxonomy.Validator,
	emitter store.EventEmitter,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *BulkUpdateService {
	return &BulkUpdateService{
		store:     store,
		runner:    runner,
		applier:   applier,
		forum:     forum,
		notifier:  notifier,
		validator: validator,
		validate:  validation.New(),
		emitter:   emitter,
		recorder:  recorder,
		logger:    logger,
	}
}

// Preview parses and validates text against the current taxonomy without
// saving anything. Parse failures are returned as a validation error;
// semantic problems are reported in Preview.Errors.
func (s *BulkUpdateService) Preview(ctx context.Context, text string) (*Preview, error) {
	set, err := parseScript(text)
	if err != nil {
		return nil, err
	}

	verrs, err := s.validator.Validate(ctx, set, storeSnapshot{s.store})
	if err != nil {
		return nil, fmt.Errorf("validate script: %w", err)
	}

	p := &Preview{
		Script:  set.String(),
		Actions: make([]PreviewAction, 0, set.Len()),
		Tags:    set.ReferencedTags(),
		Errors:  verrs,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Errors == nil {
		p.Errors = []taxonomy.ValidationError{}
	}
	for _, action := range set.Actions() {
		p.Actions = append(p.Actions, PreviewAction{Kind: action.Kind().String(), Text: action.String()})
	}
	return p, nil
}

// Create submits a request in pending status and announces it in the forum.
// Nothing is saved unless the script parses and validates.
func (s *BulkUpdateService) Create(ctx context.Context, requester *domain.User, params CreateParams) (*domain.BulkUpdateRequest, error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	if params.ForumTopicID != 0 {
		if _, err := s.forum.GetTopic(ctx, params.ForumTopicID); err != nil {
			return nil, err
		}
	}

	set, err := s.checkScript(ctx, params.Script)
	if err != nil {
		return nil, err
	}

	bur := &domain.BulkUpdateRequest{
		UserID:       requester.ID,
		UserName:     requester.Name,
		ForumTopicID: params.ForumTopicID,
		Title:        params.Title,
		Reason:       params.Reason,
		Script:       set.String(),
		Status:       domain.BulkUpdateRequestPending,
	}

	var notes []*domain.Notification
	err = s.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateBulkUpdateRequest(ctx, bur); err != nil {
			return err
		}
		if err := s.forum.PostRequest(ctx, tx, bur, requester); err != nil {
			return err
		}
		if err := tx.UpdateBulkUpdateRequest(ctx, bur); err != nil {
			return err
		}
		notes, err = s.notify(ctx, tx, requester, bur, RequestBody(bur))
		return err
	})
	if err != nil {
		return nil, s.storeError(err, "create bulk update request")
	}

	s.recorder.Transition(string(domain.BulkUpdateRequestPending))
	s.emitter.Emit(sse.NewBulkUpdateRequestEvent(sse.EventBulkUpdateRequestCreated, bur))
	s.logger.Info("bulk update request created",
		"bur_id", bur.ID,
		"actor", requester.Name,
		"status", bur.Status,
		"actions", set.Len(),
	)

	s.notifier.Publish(notes)

	return s.Get(ctx, bur.ID)
}

// Update edits a pending request. Only the requester or an admin may edit.
// A new script is parsed and validated like on creation.
func (s *BulkUpdateService) Update(ctx context.Context, actor *domain.User, id int64, params UpdateParams) (*domain.BulkUpdateRequest, error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}

	bur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanEditBulkUpdateRequest(bur) {
		return nil, domainerrors.Forbidden("only the requester or an admin can edit this bulk update request")
	}
	if !bur.IsPending() {
		return nil, domainerrors.Conflictf("bulk update request #%d is already %s", bur.ID, bur.Status)
	}

	if params.Title != nil {
		bur.Title = *params.Title
	}
	if params.Reason != nil {
		bur.Reason = *params.Reason
	}
	if params.Script != nil {
		set, err := s.checkScript(ctx, *params.Script)
		if err != nil {
			return nil, err
		}
		bur.Script = set.String()
	}
	bur.UpdatedAt = time.Now()

	err = s.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateBulkUpdateRequest(ctx, bur); err != nil {
			return err
		}
		return s.forum.UpdateRequestPost(ctx, tx, bur)
	})
	if err != nil {
		return nil, s.storeError(err, "update bulk update request")
	}

	s.emitter.Emit(sse.NewBulkUpdateRequestEvent(sse.EventBulkUpdateRequestUpdated, bur))
	s.logger.Info("bulk update request updated",
		"bur_id", bur.ID,
		"actor", actor.Name,
		"status", bur.Status,
	)

	return s.Get(ctx, bur.ID)
}

// Approve applies the request's script and marks it approved.
//
// The script runs as a job on the runner and is awaited. If any action fails
// the request stays pending and an error carrying the per-action results is
// returned. Only after every action succeeded is the status switched, in the
// same transaction as the forum notice and the requester's notification. If
// any of those fail the request stays pending and the error is returned.
// Approving again after a failure is safe: actions already committed by this
// request are skipped.
func (s *BulkUpdateService) Approve(ctx context.Context, approver *domain.User, id int64) (*domain.BulkUpdateRequest, error) {
	bur, err := s.decidable(ctx, approver, id)
	if err != nil {
		return nil, err
	}

	set, err := script.Parse(bur.Script)
	if err != nil {
		return nil, fmt.Errorf("parse stored script of bulk update request %d: %w", bur.ID, err)
	}

	task, err := s.runner.Submit(ctx, fmt.Sprintf("bur-%d", bur.ID), func(ctx context.Context) error {
		_, err := s.applier.Apply(ctx, bur, approver, set)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("submit bulk update request %d: %w", bur.ID, err)
	}

	if err := task.Wait(ctx); err != nil {
		return nil, s.applyFailed(bur, approver, err)
	}
	s.recorder.ApplyDuration(task.Duration())

	var notes []*domain.Notification
	err = s.store.InTx(ctx, func(tx store.Store) error {
		err := tx.TransitionBulkUpdateRequest(ctx, bur.ID,
			domain.BulkUpdateRequestPending, domain.BulkUpdateRequestApproved, approver.ID, time.Now())
		if err != nil {
			return err
		}
		notice, err := s.forum.PostApproval(ctx, tx, bur, approver)
		if err != nil {
			return err
		}
		notes, err = s.notify(ctx, tx, approver, bur, notice, bur.UserName)
		return err
	})
	if err != nil {
		s.logger.Error("bulk update request approval not recorded",
			"bur_id", bur.ID,
			"actor", approver.Name,
			"error", err,
		)
		return nil, s.storeError(err, "approve bulk update request")
	}

	return s.decided(ctx, approver, bur.ID, notes, sse.EventBulkUpdateRequestApproved)
}

// Reject declines a pending request. The taxonomy is not touched.
func (s *BulkUpdateService) Reject(ctx context.Context, actor *domain.User, id int64) (*domain.BulkUpdateRequest, error) {
	bur, err := s.decidable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var notes []*domain.Notification
	err = s.store.InTx(ctx, func(tx store.Store) error {
		err := tx.TransitionBulkUpdateRequest(ctx, bur.ID,
			domain.BulkUpdateRequestPending, domain.BulkUpdateRequestRejected, actor.ID, time.Now())
		if err != nil {
			return err
		}
		notice, err := s.forum.PostRejection(ctx, tx, bur, actor)
		if err != nil {
			return err
		}
		notes, err = s.notify(ctx, tx, actor, bur, notice, bur.UserName)
		return err
	})
	if err != nil {
		return nil, s.storeError(err, "reject bulk update request")
	}

	return s.decided(ctx, actor, bur.ID, notes, sse.EventBulkUpdateRequestRejected)
}

// Get returns a request by ID.
func (s *BulkUpdateService) Get(ctx context.Context, id int64) (*domain.BulkUpdateRequest, error) {
	bur, err := s.store.GetBulkUpdateRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("bulk update request #%d not found", id)
	}
	return bur, err
}

// Search lists requests, most recently updated first.
func (s *BulkUpdateService) Search(ctx context.Context, params SearchParams) (*store.Page[*domain.BulkUpdateRequest], error) {
	if err := s.validate.Validate(params); err != nil {
		return nil, err
	}
	return s.store.SearchBulkUpdateRequests(ctx, store.BulkUpdateRequestFilter{
		RequesterName: params.RequesterName,
		ApproverName:  params.ApproverName,
		Status:        domain.BulkUpdateRequestStatus(params.Status),
		PaginationParams: store.PaginationParams{
			Limit:  params.Limit,
			Offset: params.Offset,
		},
	})
}

// decidable loads a request that actor may approve or reject.
func (s *BulkUpdateService) decidable(ctx context.Context, actor *domain.User, id int64) (*domain.BulkUpdateRequest, error) {
	if !actor.CanApproveBulkUpdateRequests() {
		return nil, domainerrors.Forbidden("only admins can approve or reject bulk update requests")
	}
	bur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !bur.IsPending() {
		return nil, domainerrors.Conflictf("bulk update request #%d is already %s", bur.ID, bur.Status)
	}
	return bur, nil
}

// decided runs the post-commit side effects of a terminal transition.
func (s *BulkUpdateService) decided(ctx context.Context, actor *domain.User, id int64, notes []*domain.Notification, event sse.EventType) (*domain.BulkUpdateRequest, error) {
	bur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.recorder.Transition(string(bur.Status))
	s.emitter.Emit(sse.NewBulkUpdateRequestEvent(event, bur))
	s.logger.Info("bulk update request decided",
		"bur_id", bur.ID,
		"actor", actor.Name,
		"status", bur.Status,
	)

	s.notifier.Publish(notes)
	return bur, nil
}

// applyFailed reports an approval whose script did not fully apply.
func (s *BulkUpdateService) applyFailed(bur *domain.BulkUpdateRequest, approver *domain.User, err error) error {
	s.recorder.Transition("failed")

	var applyErr *ApplyError
	if !errors.As(err, &applyErr) {
		s.logger.Error("bulk update request apply job failed",
			"bur_id", bur.ID,
			"actor", approver.Name,
			"error", err,
		)
		s.emitter.Emit(sse.NewBulkUpdateRequestFailedEvent(bur, []string{err.Error()}))
		return fmt.Errorf("apply bulk update request %d: %w", bur.ID, err)
	}

	s.logger.Warn("bulk update request left pending",
		"bur_id", bur.ID,
		"actor", approver.Name,
		"status", bur.Status,
		"failures", len(applyErr.Failures()),
	)
	s.emitter.Emit(sse.NewBulkUpdateRequestFailedEvent(bur, applyErr.Failures()))
	msg := fmt.Sprintf("bulk update request #%d was not applied", bur.ID)
	return domainerrors.ConflictWithDetails(msg, applyErr.Results).WithCause(applyErr)
}

// notify records @mention notifications in tx.
func (s *BulkUpdateService) notify(ctx context.Context, tx store.Store, from *domain.User, bur *domain.BulkUpdateRequest, body string, extra ...string) ([]*domain.Notification, error) {
	notes, err := s.notifier.Notify(ctx, tx, from, s.forum.TopicTitle(bur.Title), body, extra...)
	if err != nil {
		return nil, fmt.Errorf("notify about bulk update request %d: %w", bur.ID, err)
	}
	return notes, nil
}

// checkScript parses and validates text against the live taxonomy.
func (s *BulkUpdateService) checkScript(ctx context.Context, text string) (*script.ActionSet, error) {
	set, err := parseScript(text)
	if err != nil {
		return nil, err
	}

	verrs, err := s.validator.Validate(ctx, set, storeSnapshot{s.store})
	if err != nil {
		return nil, fmt.Errorf("validate script: %w", err)
	}
	if len(verrs) > 0 {
		return nil, domainerrors.ValidationWithDetails("script is invalid", verrs.Messages())
	}
	return set, nil
}

func parseScript(text string) (*script.ActionSet, error) {
	set, err := script.Parse(text)
	var perrs script.ParseErrors
	if errors.As(err, &perrs) {
		msgs := make([]string, len(perrs))
		for i, pe := range perrs {
			msgs[i] = pe.Error()
		}
		return nil, domainerrors.ValidationWithDetails("script could not be parsed", msgs)
	}
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, domainerrors.Validation("script is empty")
	}
	return set, nil
}

// storeError maps store sentinels to domain errors.
func (s *BulkUpdateService) storeError(err error, op string) error {
	var domainErr *domainerrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, store.ErrConflict):
		return domainerrors.Conflict("bulk update request was changed concurrently").WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound("bulk update request not found").WithCause(err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
