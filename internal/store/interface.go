// Package store defines the persistence interface for the tagwright server.
package store

import (
	"context"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	// InTx runs fn with a Store bound to a single transaction. The transaction
	// commits when fn returns nil and rolls back otherwise. Calling InTx on a
	// transactional Store reuses the outer transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	UserStore
	TagStore
	RelationStore
	PostStore
	BulkUpdateRequestStore
	ForumStore
	NotificationStore
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByName(ctx context.Context, name string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// TagStore persists tags and their categories.
type TagStore interface {
	GetTag(ctx context.Context, name string) (*domain.Tag, error)
	// EnsureTag returns the named tag, creating it in the general category if absent.
	EnsureTag(ctx context.Context, name string) (*domain.Tag, error)
	// UpsertTagCategory creates or updates the named tag with category.
	UpsertTagCategory(ctx context.Context, name string, category domain.Category) (*domain.Tag, error)
	ListTags(ctx context.Context, params TagFilter) ([]*domain.Tag, error)
}

// RelationStore persists aliases and implications. Both kinds share one shape
// and are addressed by domain.RelationKind.
type RelationStore interface {
	// CreateTagRelation inserts an active relation.
	// Returns ErrAlreadyExists when it collides with an active record.
	CreateTagRelation(ctx context.Context, rel *domain.TagRelation) error
	GetActiveTagAlias(ctx context.Context, antecedent string) (*domain.TagAlias, error)
	GetActiveTagRelation(ctx context.Context, kind domain.RelationKind, antecedent, consequent string) (*domain.TagRelation, error)
	// GetTagRelationByRequest returns the newest relation that bulkUpdateRequestID
	// created or removed.
	GetTagRelationByRequest(ctx context.Context, kind domain.RelationKind, antecedent, consequent string, bulkUpdateRequestID int64) (*domain.TagRelation, error)
	// DeactivateTagRelation marks an active relation deleted.
	// Returns ErrNotFound if it is not active.
	DeactivateTagRelation(ctx context.Context, kind domain.RelationKind, id int64, approverID string, bulkUpdateRequestID int64) error
	// RetargetTagAliases points every active alias X -> from at to instead.
	RetargetTagAliases(ctx context.Context, from, to string) (int64, error)
	ListImplicationConsequents(ctx context.Context, antecedent string) ([]string, error)
	ListTagRelations(ctx context.Context, kind domain.RelationKind, params RelationFilter) ([]*domain.TagRelation, error)
}

// PostStore persists tagged posts.
type PostStore interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	// SetPostTags replaces the tag set of a post, creating missing tags.
	SetPostTags(ctx context.Context, id int64, tags []string) error
	// FindPostIDs returns the ids of posts matching q in ascending order.
	FindPostIDs(ctx context.Context, q PostQuery) ([]int64, error)
	// RenamePostTag replaces from with to on every post carrying from.
	RenamePostTag(ctx context.Context, from, to string) (int64, error)
	// AddImpliedPostTag adds consequent to every post carrying antecedent.
	AddImpliedPostTag(ctx context.Context, antecedent, consequent string) (int64, error)
}

// BulkUpdateRequestStore persists bulk update requests.
type BulkUpdateRequestStore interface {
	CreateBulkUpdateRequest(ctx context.Context, bur *domain.BulkUpdateRequest) error
	GetBulkUpdateRequest(ctx context.Context, id int64) (*domain.BulkUpdateRequest, error)
	// UpdateBulkUpdateRequest saves title, reason, script and forum references
	// of a pending request. Returns ErrConflict if it is no longer pending.
	UpdateBulkUpdateRequest(ctx context.Context, bur *domain.BulkUpdateRequest) error
	// TransitionBulkUpdateRequest moves a request from one status to another.
	// Returns ErrConflict when the stored status is not from.
	TransitionBulkUpdateRequest(ctx context.Context, id int64, from, to domain.BulkUpdateRequestStatus, approverID string, at time.Time) error
	SearchBulkUpdateRequests(ctx context.Context, filter BulkUpdateRequestFilter) (*Page[*domain.BulkUpdateRequest], error)
}

// ForumStore persists discussion topics and posts.
type ForumStore interface {
	CreateForumTopic(ctx context.Context, topic *domain.ForumTopic) error
	// GetForumTopic returns the topic with its posts in creation order.
	GetForumTopic(ctx context.Context, id int64) (*domain.ForumTopic, error)
	UpdateForumTopicTitle(ctx context.Context, id int64, title string) error
	CreateForumPost(ctx context.Context, post *domain.ForumPost) error
	GetForumPost(ctx context.Context, id int64) (*domain.ForumPost, error)
	UpdateForumPostBody(ctx context.Context, id int64, body string) error
}

// NotificationStore persists user notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID string, params PaginationParams) ([]*domain.Notification, error)
}
