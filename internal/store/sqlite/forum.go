package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

const forumPostColumns = `id, topic_id, creator_id, body, created_at, updated_at`

func scanForumPost(sc scanner) (*domain.ForumPost, error) {
	var (
		p         domain.ForumPost
		createdAt string
		updatedAt string
	)
	err := sc.Scan(&p.ID, &p.TopicID, &p.CreatorID, &p.Body, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateForumTopic inserts a topic and sets topic.ID. Posts are not written.
func (s *Store) CreateForumTopic(ctx context.Context, topic *domain.ForumTopic) error {
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now()
	}
	if topic.UpdatedAt.IsZero() {
		topic.UpdatedAt = topic.CreatedAt
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO forum_topics (creator_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		topic.CreatorID, topic.Title, formatTime(topic.CreatedAt), formatTime(topic.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert forum topic: %w", err)
	}
	topic.ID, err = res.LastInsertId()
	return err
}

// GetForumTopic returns a topic with its posts in creation order.
func (s *Store) GetForumTopic(ctx context.Context, id int64) (*domain.ForumTopic, error) {
	var (
		t         domain.ForumTopic
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, creator_id, title, created_at, updated_at FROM forum_topics WHERE id = ?`, id).
		Scan(&t.ID, &t.CreatorID, &t.Title, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+forumPostColumns+` FROM forum_posts WHERE topic_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query forum posts: %w", err)
	}
	defer rows.Close()

	t.Posts = []domain.ForumPost{}
	for rows.Next() {
		p, err := scanForumPost(rows)
		if err != nil {
			return nil, err
		}
		t.Posts = append(t.Posts, *p)
	}
	return &t, rows.Err()
}

// UpdateForumTopicTitle renames a topic.
func (s *Store) UpdateForumTopicTitle(ctx context.Context, id int64, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE forum_topics SET title = ?, updated_at = ? WHERE id = ?`,
		title, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateForumPost appends a post to its topic and sets post.ID.
func (s *Store) CreateForumPost(ctx context.Context, post *domain.ForumPost) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO forum_posts (topic_id, creator_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		post.TopicID, post.CreatorID, post.Body, formatTime(post.CreatedAt), formatTime(post.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert forum post: %w", err)
	}
	if post.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE forum_topics SET updated_at = ? WHERE id = ?`, formatTime(post.CreatedAt), post.TopicID)
	return err
}

// GetForumPost retrieves a post by ID.
func (s *Store) GetForumPost(ctx context.Context, id int64) (*domain.ForumPost, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+forumPostColumns+` FROM forum_posts WHERE id = ?`, id)

	p, err := scanForumPost(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// UpdateForumPostBody replaces the body of a post.
func (s *Store) UpdateForumPostBody(ctx context.Context, id int64, body string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE forum_posts SET body = ?, updated_at = ? WHERE id = ?`,
		body, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
