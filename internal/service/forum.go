package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tagwright/tagwright-server/internal/domain"
	domainerrors "github.com/tagwright/tagwright-server/internal/errors"
	"github.com/tagwright/tagwright-server/internal/store"
)

// Forum title tags set when a request is decided.
const (
	TitleTagApproved = "APPROVED"
	TitleTagRejected = "REJECTED"
)

// titleTagRe matches a leading status tag such as "[APPROVED] ". Lowercase
// prefixes like "[bulk]" are left alone.
var titleTagRe = regexp.MustCompile(`^\[[A-Z]+\]\s*`)

// RequestBody renders the forum post announcing a request.
func RequestBody(bur *domain.BulkUpdateRequest) string {
	return fmt.Sprintf("%s\n\n%s\n\n[code]%s[/code]", bur.Tag(), bur.Reason, bur.Script)
}

// ApprovalNotice is posted once a request's script has been applied.
func ApprovalNotice(bur *domain.BulkUpdateRequest, approver *domain.User) string {
	return fmt.Sprintf("The bulk update request #%d is approved by @%s.", bur.ID, approver.Name)
}

// RejectionNotice is posted when a request is declined.
func RejectionNotice(bur *domain.BulkUpdateRequest, actor *domain.User) string {
	return fmt.Sprintf("The bulk update request #%d has been rejected by @%s.", bur.ID, actor.Name)
}

// ForumService keeps the discussion thread of each request in step with it.
// Methods taking a tx write through that store so forum changes commit or
// roll back together with the request.
type ForumService struct {
	store       store.Store
	topicPrefix string
	logger      *slog.Logger
}

// NewForumService creates a forum service. New topics are titled
// "<topicPrefix> <request title>".
func NewForumService(store store.Store, topicPrefix string, logger *slog.Logger) *ForumService {
	return &ForumService{
		store:       store,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// GetTopic returns a topic with its posts.
func (s *ForumService) GetTopic(ctx context.Context, id int64) (*domain.ForumTopic, error) {
	topic, err := s.store.GetForumTopic(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFoundf("forum topic #%d not found", id)
	}
	return topic, err
}

// TopicTitle prefixes title with the configured topic prefix unless it is
// already there.
func (s *ForumService) TopicTitle(title string) string {
	if s.topicPrefix == "" || strings.HasPrefix(strings.ToLower(title), strings.ToLower(s.topicPrefix)) {
		return title
	}
	return s.topicPrefix + " " + title
}

// PostRequest announces bur in its topic, creating the topic when
// bur.ForumTopicID is unset. It fills in bur.ForumTopicID and bur.ForumPostID.
func (s *ForumService) PostRequest(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, author *domain.User) error {
	if bur.ForumTopicID == 0 {
		topic := &domain.ForumTopic{
			CreatorID: author.ID,
			Title:     s.TopicTitle(bur.Title),
		}
		if err := tx.CreateForumTopic(ctx, topic); err != nil {
			return fmt.Errorf("create forum topic: %w", err)
		}
		bur.ForumTopicID = topic.ID
	} else if _, err := tx.GetForumTopic(ctx, bur.ForumTopicID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFoundf("forum topic #%d not found", bur.ForumTopicID)
		}
		return err
	}

	post := &domain.ForumPost{
		TopicID:   bur.ForumTopicID,
		CreatorID: author.ID,
		Body:      RequestBody(bur),
	}
	if err := tx.CreateForumPost(ctx, post); err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}
	bur.ForumPostID = post.ID
	return nil
}

// UpdateRequestPost re-renders the announcement after an edit.
func (s *ForumService) UpdateRequestPost(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest) error {
	if bur.ForumPostID == 0 {
		return nil
	}
	return tx.UpdateForumPostBody(ctx, bur.ForumPostID, RequestBody(bur))
}

// PostApproval records the approval in the thread and returns the notice.
func (s *ForumService) PostApproval(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, approver *domain.User) (string, error) {
	notice := ApprovalNotice(bur, approver)
	return notice, s.postNotice(ctx, tx, bur, approver, notice, TitleTagApproved)
}

// PostRejection records the rejection in the thread and returns the notice.
func (s *ForumService) PostRejection(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, actor *domain.User) (string, error) {
	notice := RejectionNotice(bur, actor)
	return notice, s.postNotice(ctx, tx, bur, actor, notice, TitleTagRejected)
}

// postNotice replies with message, appends it to the announcement and tags
// the topic title.
func (s *ForumService) postNotice(ctx context.Context, tx store.Store, bur *domain.BulkUpdateRequest, author *domain.User, message, titleTag string) error {
	if bur.ForumTopicID == 0 {
		return nil
	}

	reply := &domain.ForumPost{
		TopicID:   bur.ForumTopicID,
		CreatorID: author.ID,
		Body:      message,
	}
	if err := tx.CreateForumPost(ctx, reply); err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}

	if bur.ForumPostID != 0 {
		original, err := tx.GetForumPost(ctx, bur.ForumPostID)
		if err != nil {
			return fmt.Errorf("get forum post: %w", err)
		}
		if err := tx.UpdateForumPostBody(ctx, original.ID, original.Body+"\n\nEDIT: "+message); err != nil {
			return fmt.Errorf("edit forum post: %w", err)
		}
	}

	topic, err := tx.GetForumTopic(ctx, bur.ForumTopicID)
	if err != nil {
		return fmt.Errorf("get forum topic: %w", err)
	}
	if err := tx.UpdateForumTopicTitle(ctx, topic.ID, TaggedTitle(topic.Title, titleTag)); err != nil {
		return fmt.Errorf("update forum topic title: %w", err)
	}
	return nil
}

// TaggedTitle replaces any leading status tag of title with "[tag] ".
func TaggedTitle(title, tag string) string {
	return "[" + tag + "] " + titleTagRe.ReplaceAllString(title, "")
}
