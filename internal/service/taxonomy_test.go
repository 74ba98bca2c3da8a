package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/store"
)

func TestTaxonomyService_GetTag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTaxonomyService(db, testLogger())

	_, err := db.EnsureTag(ctx, "bbb")
	require.NoError(t, err)
	createRelation(t, db, domain.RelationAlias, "aaa", "bbb")
	createRelation(t, db, domain.RelationImplication, "bbb", "ccc")
	createRelation(t, db, domain.RelationImplication, "xxx", "yyy")

	details, err := svc.GetTag(ctx, " BBB ")
	require.NoError(t, err)
	assert.Equal(t, "bbb", details.Name)
	require.Len(t, details.Aliases, 1)
	assert.Equal(t, "aaa", details.Aliases[0].AntecedentName)
	require.Len(t, details.Implications, 1)
	assert.Equal(t, "ccc", details.Implications[0].ConsequentName)

	_, err = svc.GetTag(ctx, "missing")
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestTaxonomyService_ListRelations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := NewTaxonomyService(db, testLogger())

	createRelation(t, db, domain.RelationAlias, "aaa", "bbb")
	createRelation(t, db, domain.RelationAlias, "ccc", "ddd")

	rels, err := svc.ListRelations(ctx, domain.RelationAlias, store.RelationFilter{Name: "CCC"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "ddd", rels[0].ConsequentName)

	rels, err = svc.ListRelations(ctx, domain.RelationAlias, store.RelationFilter{Status: domain.RelationDeleted})
	require.NoError(t, err)
	assert.Empty(t, rels)

	_, err = svc.ListRelations(ctx, domain.RelationAlias, store.RelationFilter{Status: "gone"})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestTaxonomyService_GetPost(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaxonomyService(db, testLogger())
	post := createPost(t, db, "b", "a")

	got, err := svc.GetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)

	_, err = svc.GetPost(context.Background(), 99)
	requireCode(t, err, domainerrors.CodeNotFound)
}
