package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

func TestForumTopicAndPosts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "user-1", "alice", domain.LevelMember)

	topic := &domain.ForumTopic{CreatorID: "user-1", Title: "[bulk] rename"}
	if err := s.CreateForumTopic(ctx, topic); err != nil {
		t.Fatalf("CreateForumTopic: %v", err)
	}

	first := &domain.ForumPost{TopicID: topic.ID, CreatorID: "user-1", Body: "[bur:1]"}
	if err := s.CreateForumPost(ctx, first); err != nil {
		t.Fatalf("CreateForumPost: %v", err)
	}
	second := &domain.ForumPost{TopicID: topic.ID, CreatorID: "user-1", Body: "reply"}
	if err := s.CreateForumPost(ctx, second); err != nil {
		t.Fatalf("CreateForumPost: %v", err)
	}

	if err := s.UpdateForumPostBody(ctx, first.ID, "[bur:1] edited"); err != nil {
		t.Fatalf("UpdateForumPostBody: %v", err)
	}
	if err := s.UpdateForumTopicTitle(ctx, topic.ID, "[APPROVED] rename"); err != nil {
		t.Fatalf("UpdateForumTopicTitle: %v", err)
	}

	got, err := s.GetForumTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("GetForumTopic: %v", err)
	}
	if got.Title != "[APPROVED] rename" {
		t.Errorf("Title: got %q", got.Title)
	}
	if len(got.Posts) != 2 || got.Posts[0].Body != "[bur:1] edited" || got.Posts[1].Body != "reply" {
		t.Errorf("Posts: got %+v", got.Posts)
	}

	if _, err := s.GetForumPost(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing post: got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createTestUser(t, s, "user-1", "alice", domain.LevelMember)
	createTestUser(t, s, "user-2", "bob", domain.LevelMember)

	for _, title := range []string{"first", "second"} {
		n := &domain.Notification{UserID: "user-1", FromUserID: "user-2", Title: title, Body: "hi"}
		if err := s.CreateNotification(ctx, n); err != nil {
			t.Fatalf("CreateNotification: %v", err)
		}
	}

	list, err := s.ListNotifications(ctx, "user-1", store.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 2 || list[0].Title != "second" || list[0].FromUserID != "user-2" {
		t.Errorf("got %+v", list)
	}

	empty, err := s.ListNotifications(ctx, "user-2", store.DefaultPaginationParams())
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected none for user-2, got %d", len(empty))
	}
}
