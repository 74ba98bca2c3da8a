package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/service"
	"github.com/tagwright/tagwright-server/internal/taxonomy"
)

func (s *Server) registerBulkUpdateRequestRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBulkUpdateRequests",
		Method:      http.MethodGet,
		Path:        "/api/v1/bulk-update-requests",
		Summary:     "Search bulk update requests",
		Description: "Lists bulk update requests, most recently updated first",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchBulkUpdateRequests)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBulkUpdateRequest",
		Method:        http.MethodPost,
		Path:          "/api/v1/bulk-update-requests",
		Summary:       "Submit bulk update request",
		Description:   "Parses and validates a script and submits it for review",
		Tags:          []string{"Bulk Update Requests"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBulkUpdateRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "previewBulkUpdateRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/bulk-update-requests/preview",
		Summary:     "Preview script",
		Description: "Parses a script and reports validation errors without saving anything",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePreviewBulkUpdateRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBulkUpdateRequest",
		Method:      http.MethodGet,
		Path:        "/api/v1/bulk-update-requests/{id}",
		Summary:     "Get bulk update request",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBulkUpdateRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBulkUpdateRequest",
		Method:      http.MethodPatch,
		Path:        "/api/v1/bulk-update-requests/{id}",
		Summary:     "Edit bulk update request",
		Description: "Edits a pending request (requester or admin)",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBulkUpdateRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "approveBulkUpdateRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/bulk-update-requests/{id}/approve",
		Summary:     "Approve bulk update request",
		Description: "Applies the script and marks the request approved (admin only)",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleApproveBulkUpdateRequest)

	huma.Register(s.api, huma.Operation{
		OperationID: "rejectBulkUpdateRequest",
		Method:      http.MethodPost,
		Path:        "/api/v1/bulk-update-requests/{id}/reject",
		Summary:     "Reject bulk update request",
		Description: "Declines a pending request (admin only)",
		Tags:        []string{"Bulk Update Requests"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRejectBulkUpdateRequest)
}

// === DTOs ===

// BulkUpdateRequestResponse contains a bulk update request in API responses.
type BulkUpdateRequestResponse struct {
	ID           int64     `json:"id" doc:"Request ID"`
	UserID       string    `json:"user_id" doc:"Requester ID"`
	UserName     string    `json:"user_name" doc:"Requester name"`
	ApproverID   string    `json:"approver_id,omitempty" doc:"ID of the admin who decided"`
	ApproverName string    `json:"approver_name,omitempty" doc:"Name of the admin who decided"`
	ForumTopicID int64     `json:"forum_topic_id" doc:"Discussion topic"`
	ForumPostID  int64     `json:"forum_post_id" doc:"Post announcing the request"`
	Title        string    `json:"title" doc:"Title"`
	Reason       string    `json:"reason" doc:"Reason for the change"`
	Script       string    `json:"script" doc:"Canonical script"`
	Status       string    `json:"status" doc:"pending, approved or rejected"`
	CreatedAt    time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt    time.Time `json:"updated_at" doc:"Last update time"`
}

// BulkUpdateRequestOutput wraps a bulk update request for Huma.
type BulkUpdateRequestOutput struct {
	Body BulkUpdateRequestResponse
}

// SearchBulkUpdateRequestsInput contains query parameters for searching.
type SearchBulkUpdateRequestsInput struct {
	RequesterName string `query:"requester_name" doc:"Filter by requester name (case-insensitive)"`
	ApproverName  string `query:"approver_name" doc:"Filter by approver name (case-insensitive)"`
	Status        string `query:"status" doc:"Filter by status: pending, approved or rejected"`
	Limit         int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
	Offset        int    `query:"offset" minimum:"0" doc:"Items to skip"`
}

// BulkUpdateRequestListResponse is one page of requests.
type BulkUpdateRequestListResponse struct {
	Items   []BulkUpdateRequestResponse `json:"items" doc:"Requests on this page"`
	Total   int                         `json:"total" doc:"Total matching requests"`
	Limit   int                         `json:"limit" doc:"Page size"`
	Offset  int                         `json:"offset" doc:"Items skipped"`
	HasMore bool                        `json:"has_more" doc:"Whether more pages follow"`
}

// BulkUpdateRequestListOutput wraps the list response for Huma.
type BulkUpdateRequestListOutput struct {
	Body BulkUpdateRequestListResponse
}

// CreateBulkUpdateRequestRequest is the request body for submitting a request.
type CreateBulkUpdateRequestRequest struct {
	Title        string `json:"title" minLength:"1" maxLength:"255" doc:"Title"`
	Reason       string `json:"reason,omitempty" maxLength:"10000" doc:"Why the change is needed"`
	Script       string `json:"script" minLength:"1" maxLength:"100000" doc:"Script, one action per line"`
	ForumTopicID int64  `json:"forum_topic_id,omitempty" doc:"Existing topic to post in; a new topic is created when omitted"`
}

// CreateBulkUpdateRequestInput wraps the create request for Huma.
type CreateBulkUpdateRequestInput struct {
	Body CreateBulkUpdateRequestRequest
}

// UpdateBulkUpdateRequestRequest is the request body for editing a request.
// Omitted fields are left unchanged.
type UpdateBulkUpdateRequestRequest struct {
	Title  *string `json:"title,omitempty" doc:"New title"`
	Reason *string `json:"reason,omitempty" doc:"New reason"`
	Script *string `json:"script,omitempty" doc:"New script"`
}

// UpdateBulkUpdateRequestInput wraps the update request for Huma.
type UpdateBulkUpdateRequestInput struct {
	ID   int64 `path:"id" doc:"Request ID"`
	Body UpdateBulkUpdateRequestRequest
}

// BulkUpdateRequestIDInput addresses a single request.
type BulkUpdateRequestIDInput struct {
	ID int64 `path:"id" doc:"Request ID"`
}

// PreviewRequest is the request body for previewing a script.
type PreviewRequest struct {
	Script string `json:"script" maxLength:"100000" doc:"Script to check"`
}

// PreviewInput wraps the preview request for Huma.
type PreviewInput struct {
	Body PreviewRequest
}

// PreviewAction is one parsed line of a previewed script.
type PreviewAction struct {
	Kind string `json:"kind" doc:"Action kind"`
	Text string `json:"text" doc:"Canonical rendering"`
}

// PreviewResponse is the dry-run result of a script.
type PreviewResponse struct {
	Valid   bool                       `json:"valid" doc:"Whether the script can be submitted as is"`
	Script  string                     `json:"script" doc:"Canonical script"`
	Actions []PreviewAction            `json:"actions" doc:"Parsed actions in order"`
	Tags    []string                   `json:"tags" doc:"Tags the script references"`
	Errors  []taxonomy.ValidationError `json:"errors" doc:"Problems against the current taxonomy"`
}

// PreviewOutput wraps the preview response for Huma.
type PreviewOutput struct {
	Body PreviewResponse
}

// === Handlers ===

func (s *Server) handleSearchBulkUpdateRequests(ctx context.Context, input *SearchBulkUpdateRequestsInput) (*BulkUpdateRequestListOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.BulkUpdate.Search(ctx, service.SearchParams{
		RequesterName: input.RequesterName,
		ApproverName:  input.ApproverName,
		Status:        input.Status,
		Limit:         input.Limit,
		Offset:        input.Offset,
	})
	if err != nil {
		return nil, err
	}

	items := make([]BulkUpdateRequestResponse, len(page.Items))
	for i, bur := range page.Items {
		items[i] = toBulkUpdateRequestResponse(bur)
	}

	return &BulkUpdateRequestListOutput{
		Body: BulkUpdateRequestListResponse{
			Items:   items,
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	}, nil
}

func (s *Server) handleCreateBulkUpdateRequest(ctx context.Context, input *CreateBulkUpdateRequestInput) (*BulkUpdateRequestOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := allowUser(s.burCreateRateLimiter, user.ID, "bulk update requests"); err != nil {
		return nil, err
	}

	bur, err := s.services.BulkUpdate.Create(ctx, user, service.CreateParams{
		Title:        input.Body.Title,
		Reason:       input.Body.Reason,
		Script:       input.Body.Script,
		ForumTopicID: input.Body.ForumTopicID,
	})
	if err != nil {
		return nil, err
	}

	return &BulkUpdateRequestOutput{Body: toBulkUpdateRequestResponse(bur)}, nil
}

func (s *Server) handlePreviewBulkUpdateRequest(ctx context.Context, input *PreviewInput) (*PreviewOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	preview, err := s.services.BulkUpdate.Preview(ctx, input.Body.Script)
	if err != nil {
		return nil, err
	}

	actions := make([]PreviewAction, len(preview.Actions))
	for i, a := range preview.Actions {
		actions[i] = PreviewAction{Kind: a.Kind, Text: a.Text}
	}

	return &PreviewOutput{
		Body: PreviewResponse{
			Valid:   preview.Valid(),
			Script:  preview.Script,
			Actions: actions,
			Tags:    preview.Tags,
			Errors:  preview.Errors,
		},
	}, nil
}

func (s *Server) handleGetBulkUpdateRequest(ctx context.Context, input *BulkUpdateRequestIDInput) (*BulkUpdateRequestOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	bur, err := s.services.BulkUpdate.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BulkUpdateRequestOutput{Body: toBulkUpdateRequestResponse(bur)}, nil
}

func (s *Server) handleUpdateBulkUpdateRequest(ctx context.Context, input *UpdateBulkUpdateRequestInput) (*BulkUpdateRequestOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	bur, err := s.services.BulkUpdate.Update(ctx, user, input.ID, service.UpdateParams{
		Title:  input.Body.Title,
		Reason: input.Body.Reason,
		Script: input.Body.Script,
	})
	if err != nil {
		return nil, err
	}

	return &BulkUpdateRequestOutput{Body: toBulkUpdateRequestResponse(bur)}, nil
}

func (s *Server) handleApproveBulkUpdateRequest(ctx context.Context, input *BulkUpdateRequestIDInput) (*BulkUpdateRequestOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	bur, err := s.services.BulkUpdate.Approve(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &BulkUpdateRequestOutput{Body: toBulkUpdateRequestResponse(bur)}, nil
}

func (s *Server) handleRejectBulkUpdateRequest(ctx context.Context, input *BulkUpdateRequestIDInput) (*BulkUpdateRequestOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	bur, err := s.services.BulkUpdate.Reject(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &BulkUpdateRequestOutput{Body: toBulkUpdateRequestResponse(bur)}, nil
}

func toBulkUpdateRequestResponse(b *domain.BulkUpdateRequest) BulkUpdateRequestResponse {
	return BulkUpdateRequestResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		UserName:     b.UserName,
		ApproverID:   b.ApproverID,
		ApproverName: b.ApproverName,
		ForumTopicID: b.ForumTopicID,
		ForumPostID:  b.ForumPostID,
		Title:        b.Title,
		Reason:       b.Reason,
		Script:       b.Script,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
