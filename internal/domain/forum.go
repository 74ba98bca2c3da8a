package domain

import "time"

// ForumTopic is the discussion thread a bulk update request is attached to.
type ForumTopic struct {
	ID        int64       `json:"id"`
	CreatorID string      `json:"creator_id"`
	Title     string      `json:"title"`
	Posts     []ForumPost `json:"posts,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ForumPost is a single message in a topic.
type ForumPost struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	CreatorID string    `json:"creator_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is a private message delivered to a user, e.g. for an @mention.
type Notification struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	FromUserID string    `json:"from_user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
