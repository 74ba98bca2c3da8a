package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

func (s *Server) registerTaxonomyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Lists tags, optionally filtered by a glob pattern",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{name}",
		Summary:     "Get tag",
		Description: "Returns a tag with its category, post count and active relations",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTagAliases",
		Method:      http.MethodGet,
		Path:        "/api/v1/tag-aliases",
		Summary:     "List tag aliases",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTagAliases)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTagImplications",
		Method:      http.MethodGet,
		Path:        "/api/v1/tag-implications",
		Summary:     "List tag implications",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTagImplications)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPost",
		Method:      http.MethodGet,
		Path:        "/api/v1/posts/{id}",
		Summary:     "Get post",
		Description: "Returns a post with its tags",
		Tags:        []string{"Posts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPost)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	Name      string    `json:"name" doc:"Tag name"`
	Category  string    `json:"category" doc:"Category name"`
	PostCount int       `json:"post_count" doc:"Number of posts carrying the tag"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// RelationResponse contains an alias or implication.
type RelationResponse struct {
	ID                  int64     `json:"id" doc:"Relation ID"`
	AntecedentName      string    `json:"antecedent_name" doc:"Antecedent tag"`
	ConsequentName      string    `json:"consequent_name" doc:"Consequent tag"`
	Status              string    `json:"status" doc:"active or deleted"`
	ApproverID          string    `json:"approver_id,omitempty" doc:"Approver of the request that created it"`
	BulkUpdateRequestID int64     `json:"bulk_update_request_id,omitempty" doc:"Request that created it"`
	DeletedByRequestID  int64     `json:"deleted_by_request_id,omitempty" doc:"Request that removed it"`
	CreatedAt           time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt           time.Time `json:"updated_at" doc:"Last update time"`
}

// TagDetailResponse is a tag together with its active relations.
type TagDetailResponse struct {
	TagResponse
	Aliases      []RelationResponse `json:"aliases" doc:"Active aliases involving the tag"`
	Implications []RelationResponse `json:"implications" doc:"Active implications involving the tag"`
}

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Pattern string `query:"pattern" doc:"Glob pattern, e.g. artist:*"`
	Limit   int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
	Offset  int    `query:"offset" minimum:"0" doc:"Items to skip"`
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"Tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	Name string `path:"name" doc:"Tag name"`
}

// TagDetailOutput wraps the tag detail response for Huma.
type TagDetailOutput struct {
	Body TagDetailResponse
}

// ListRelationsInput contains parameters for listing aliases or implications.
type ListRelationsInput struct {
	Status string `query:"status" doc:"Filter by status: active or deleted"`
	Name   string `query:"name" doc:"Filter by tag on either side"`
	Limit  int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
	Offset int    `query:"offset" minimum:"0" doc:"Items to skip"`
}

// ListRelationsResponse contains a list of relations.
type ListRelationsResponse struct {
	Relations []RelationResponse `json:"relations" doc:"Relations, newest first"`
}

// ListRelationsOutput wraps the relation list for Huma.
type ListRelationsOutput struct {
	Body ListRelationsResponse
}

// GetPostInput contains parameters for getting a post.
type GetPostInput struct {
	ID int64 `path:"id" doc:"Post ID"`
}

// PostResponse contains a post in API responses.
type PostResponse struct {
	ID        int64     `json:"id" doc:"Post ID"`
	Tags      []string  `json:"tags" doc:"Sorted tag names"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// PostOutput wraps the post response for Huma.
type PostOutput struct {
	Body PostResponse
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	tags, err := s.services.Taxonomy.ListTags(ctx, store.TagFilter{
		NamePattern:      input.Pattern,
		PaginationParams: store.PaginationParams{Limit: input.Limit, Offset: input.Offset},
	})
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = toTagResponse(t)
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagDetailOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	details, err := s.services.Taxonomy.GetTag(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	return &TagDetailOutput{
		Body: TagDetailResponse{
			TagResponse:  toTagResponse(details.Tag),
			Aliases:      toRelationResponses(details.Aliases),
			Implications: toRelationResponses(details.Implications),
		},
	}, nil
}

func (s *Server) handleListTagAliases(ctx context.Context, input *ListRelationsInput) (*ListRelationsOutput, error) {
	return s.listRelations(ctx, domain.RelationAlias, input)
}

func (s *Server) handleListTagImplications(ctx context.Context, input *ListRelationsInput) (*ListRelationsOutput, error) {
	return s.listRelations(ctx, domain.RelationImplication, input)
}

func (s *Server) listRelations(ctx context.Context, kind domain.RelationKind, input *ListRelationsInput) (*ListRelationsOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	relations, err := s.services.Taxonomy.ListRelations(ctx, kind, store.RelationFilter{
		Status:           domain.RelationStatus(input.Status),
		Name:             input.Name,
		PaginationParams: store.PaginationParams{Limit: input.Limit, Offset: input.Offset},
	})
	if err != nil {
		return nil, err
	}

	return &ListRelationsOutput{Body: ListRelationsResponse{Relations: toRelationResponses(relations)}}, nil
}

func (s *Server) handleGetPost(ctx context.Context, input *GetPostInput) (*PostOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	post, err := s.services.Taxonomy.GetPost(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}

	return &PostOutput{
		Body: PostResponse{
			ID:        post.ID,
			Tags:      tags,
			CreatedAt: post.CreatedAt,
			UpdatedAt: post.UpdatedAt,
		},
	}, nil
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		Name:      t.Name,
		Category:  t.Category.String(),
		PostCount: t.PostCount,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toRelationResponses(relations []*domain.TagRelation) []RelationResponse {
	resp := make([]RelationResponse, len(relations))
	for i, r := range relations {
		resp[i] = RelationResponse{
			ID:                  r.ID,
			AntecedentName:      r.AntecedentName,
			ConsequentName:      r.ConsequentName,
			Status:              string(r.Status),
			ApproverID:          r.ApproverID,
			BulkUpdateRequestID: r.BulkUpdateRequestID,
			DeletedByRequestID:  r.DeletedByRequestID,
			CreatedAt:           r.CreatedAt,
			UpdatedAt:           r.UpdatedAt,
		}
	}
	return resp
}
