package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tagwright/tagwright-server/internal/store"
)

func (s *Server) registerForumRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getForumTopic",
		Method:      http.MethodGet,
		Path:        "/api/v1/forum-topics/{id}",
		Summary:     "Get forum topic",
		Description: "Returns a discussion topic with its posts in order",
		Tags:        []string{"Forum"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetForumTopic)
}

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "List notifications",
		Description: "Lists the current user's notifications, newest first",
		Tags:        []string{"Notifications"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListNotifications)
}

// === DTOs ===

// ForumPostResponse is a message in a topic.
type ForumPostResponse struct {
	ID        int64     `json:"id" doc:"Post ID"`
	CreatorID string    `json:"creator_id" doc:"Author ID"`
	Body      string    `json:"body" doc:"Message body"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last edit time"`
}

// ForumTopicResponse is a topic with its posts.
type ForumTopicResponse struct {
	ID        int64               `json:"id" doc:"Topic ID"`
	CreatorID string              `json:"creator_id" doc:"Author ID"`
	Title     string              `json:"title" doc:"Title"`
	Posts     []ForumPostResponse `json:"posts" doc:"Posts in creation order"`
	CreatedAt time.Time           `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time           `json:"updated_at" doc:"Last update time"`
}

// GetForumTopicInput addresses a topic.
type GetForumTopicInput struct {
	ID int64 `path:"id" doc:"Topic ID"`
}

// ForumTopicOutput wraps the topic response for Huma.
type ForumTopicOutput struct {
	Body ForumTopicResponse
}

// ListNotificationsInput contains pagination parameters.
type ListNotificationsInput struct {
	Limit  int `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Page size"`
	Offset int `query:"offset" minimum:"0" doc:"Items to skip"`
}

// NotificationResponse is a private message.
type NotificationResponse struct {
	ID         int64     `json:"id" doc:"Notification ID"`
	FromUserID string    `json:"from_user_id" doc:"Sender ID"`
	Title      string    `json:"title" doc:"Subject"`
	Body       string    `json:"body" doc:"Message"`
	CreatedAt  time.Time `json:"created_at" doc:"Creation time"`
}

// ListNotificationsResponse contains notifications.
type ListNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications" doc:"Notifications, newest first"`
}

// ListNotificationsOutput wraps the notification list for Huma.
type ListNotificationsOutput struct {
	Body ListNotificationsResponse
}

// === Handlers ===

func (s *Server) handleGetForumTopic(ctx context.Context, input *GetForumTopicInput) (*ForumTopicOutput, error) {
	if _, err := s.RequireUser(ctx); err != nil {
		return nil, err
	}

	topic, err := s.services.Forum.GetTopic(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	posts := make([]ForumPostResponse, len(topic.Posts))
	for i, p := range topic.Posts {
		posts[i] = ForumPostResponse{
			ID:        p.ID,
			CreatorID: p.CreatorID,
			Body:      p.Body,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
	}

	return &ForumTopicOutput{
		Body: ForumTopicResponse{
			ID:        topic.ID,
			CreatorID: topic.CreatorID,
			Title:     topic.Title,
			Posts:     posts,
			CreatedAt: topic.CreatedAt,
			UpdatedAt: topic.UpdatedAt,
		},
	}, nil
}

func (s *Server) handleListNotifications(ctx context.Context, input *ListNotificationsInput) (*ListNotificationsOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	notifications, err := s.services.Notifier.List(ctx, user.ID, store.PaginationParams{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = NotificationResponse{
			ID:         n.ID,
			FromUserID: n.FromUserID,
			Title:      n.Title,
			Body:       n.Body,
			CreatedAt:  n.CreatedAt,
		}
	}

	return &ListNotificationsOutput{Body: ListNotificationsResponse{Notifications: resp}}, nil
}
