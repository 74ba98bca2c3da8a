package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/normalize"
	"github.com/tagwright/tagwright-server/internal/store"
)

// relationListLimit caps the relations embedded in TagDetails.
const relationListLimit = 100

// TagDetails is a tag together with the active relations it takes part in.
type TagDetails struct {
	*domain.Tag
	Aliases      []*domain.TagAlias       `json:"aliases"`
	Implications []*domain.TagImplication `json:"implications"`
}

// TaxonomyService answers read-only questions about tags and their relations.
type TaxonomyService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTaxonomyService creates a taxonomy query service.
func NewTaxonomyService(store store.Store, logger *slog.Logger) *TaxonomyService {
	return &TaxonomyService{store: store, logger: logger}
}

// GetTag returns the named tag with its active aliases and implications.
func (s *TaxonomyService) GetTag(ctx context.Context, name string) (*TagDetails, error) {
	name = normalize.TagName(name)

	tag, err := s.store.GetTag(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("tag %q not found", name)
	}
	if err != nil {
		return nil, err
	}

	filter := store.RelationFilter{
		Status:           domain.RelationActive,
		Name:             name,
		PaginationParams: store.PaginationParams{Limit: relationListLimit},
	}
	aliases, err := s.store.ListTagRelations(ctx, domain.RelationAlias, filter)
	if err != nil {
		return nil, err
	}
	implications, err := s.store.ListTagRelations(ctx, domain.RelationImplication, filter)
	if err != nil {
		return nil, err
	}

	return &TagDetails{Tag: tag, Aliases: aliases, Implications: implications}, nil
}

// ListTags lists tags matching filter.
func (s *TaxonomyService) ListTags(ctx context.Context, filter store.TagFilter) ([]*domain.Tag, error) {
	return s.store.ListTags(ctx, filter)
}

// ListRelations lists aliases or implications, newest first.
func (s *TaxonomyService) ListRelations(ctx context.Context, kind domain.RelationKind, filter store.RelationFilter) ([]*domain.TagRelation, error) {
	if filter.Status != "" && filter.Status != domain.RelationActive && filter.Status != domain.RelationDeleted {
		return nil, domainerrors.Validation("status must be one of: active deleted")
	}
	if filter.Name != "" {
		filter.Name = normalize.TagName(filter.Name)
	}
	return s.store.ListTagRelations(ctx, kind, filter)
}

// GetPost returns a post with its tags.
func (s *TaxonomyService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("post #%d not found", id)
	}
	return post, err
}
