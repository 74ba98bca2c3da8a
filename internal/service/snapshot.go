package service

import (
	"context"
	"errors"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

// storeSnapshot exposes the live relation tables to the validator.
type storeSnapshot struct {
	store store.RelationStore
}

var _ taxonomy.Snapshot = storeSnapshot{}

func (s storeSnapshot) ActiveAlias(ctx context.Context, antecedent string) (*domain.TagAlias, error) {
	return absent(s.store.GetActiveTagAlias(ctx, antecedent))
}

func (s storeSnapshot) ActiveImplication(ctx context.Context, antecedent, consequent string) (*domain.TagImplication, error) {
	return absent(s.store.GetActiveTagRelation(ctx, domain.RelationImplication, antecedent, consequent))
}

func (s storeSnapshot) ImplicationsFrom(ctx context.Context, antecedent string) ([]string, error) {
	return s.store.ListImplicationConsequents(ctx, antecedent)
}

// absent maps store.ErrNotFound to a nil result.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
