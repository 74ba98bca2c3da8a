package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

// CreatePost inserts a post with its tags and sets post.ID.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	return s.InTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)

		if post.CreatedAt.IsZero() {
			post.CreatedAt = time.Now()
		}
		if post.UpdatedAt.IsZero() {
			post.UpdatedAt = post.CreatedAt
		}

		res, err := tx.db.ExecContext(ctx,
			`INSERT INTO posts (created_at, updated_at) VALUES (?, ?)`,
			formatTime(post.CreatedAt), formatTime(post.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		if post.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		post.SetTags(post.Tags)
		return tx.writePostTags(ctx, post.ID, post.Tags)
	})
}

// GetPost retrieves a post and its sorted tag set.
// Returns store.ErrNotFound if the post does not exist.
func (s *Store) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	var (
		p         domain.Post
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_name FROM post_tags WHERE post_id = ? ORDER BY tag_name`, id)
	if err != nil {
		return nil, fmt.Errorf("query post_tags: %w", err)
	}
	defer rows.Close()

	p.Tags = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		p.Tags = append(p.Tags, name)
	}
	return &p, rows.Err()
}

// SetPostTags replaces the tag set of a post.
func (s *Store) SetPostTags(ctx context.Context, id int64, tags []string) error {
	return s.InTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)

		res, err := tx.db.ExecContext(ctx,
			`UPDATE posts SET updated_at = ? WHERE id = ?`, formatTime(time.Now()), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}

		if _, err := tx.db.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("delete post_tags: %w", err)
		}
		return tx.writePostTags(ctx, id, domain.NormalizeTagSet(tags))
	})
}

func (s *Store) writePostTags(ctx context.Context, postID int64, tags []string) error {
	if err := s.ensureTags(ctx, tags); err != nil {
		return fmt.Errorf("ensure tags: %w", err)
	}
	for _, name := range tags {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO post_tags (post_id, tag_name) VALUES (?, ?)`, postID, name)
		if err != nil {
			return fmt.Errorf("insert post_tag: %w", err)
		}
	}
	return nil
}

var globEscaper = strings.NewReplacer("[", "[[]", "?", "[?]")

// FindPostIDs returns ids of posts matching q in ascending order.
// An empty query is rejected with store.ErrInvalidInput rather than matching everything.
func (s *Store) FindPostIDs(ctx context.Context, q store.PostQuery) ([]int64, error) {
	if q.IsEmpty() {
		return nil, store.ErrInvalidInput.WithMessage("post query selects every post")
	}

	const hasTag = `EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_name = ?)`
	const hasGlob = `EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_name GLOB ?)`

	var (
		where []string
		args  []any
	)
	for _, name := range q.Required {
		where = append(where, hasTag)
		args = append(args, name)
	}
	for _, name := range q.Excluded {
		where = append(where, "NOT "+hasTag)
		args = append(args, name)
	}
	if len(q.AnyOf) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_name IN (`+placeholders(len(q.AnyOf))+`))`)
		for _, name := range q.AnyOf {
			args = append(args, name)
		}
	}
	for _, pattern := range q.Patterns {
		where = append(where, hasGlob)
		args = append(args, globEscaper.Replace(pattern))
	}
	for _, pattern := range q.ExcludedPatterns {
		where = append(where, "NOT "+hasGlob)
		args = append(args, globEscaper.Replace(pattern))
	}
	if len(q.IDs) > 0 {
		where = append(where, `p.id IN (`+placeholders(len(q.IDs))+`)`)
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if q.MinID > 0 {
		where = append(where, `p.id >= ?`)
		args = append(args, q.MinID)
	}
	if q.MaxID > 0 {
		where = append(where, `p.id <= ?`)
		args = append(args, q.MaxID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id FROM posts p WHERE `+strings.Join(where, " AND ")+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RenamePostTag replaces from with to on every post carrying from and returns
// the number of posts touched.
func (s *Store) RenamePostTag(ctx context.Context, from, to string) (int64, error) {
	var touched int64
	err := s.InTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)
		if err := tx.ensureTags(ctx, []string{to}); err != nil {
			return err
		}

		res, err := tx.db.ExecContext(ctx, `
			UPDATE posts SET updated_at = ?
			WHERE id IN (SELECT post_id FROM post_tags WHERE tag_name = ?)`,
			formatTime(time.Now()), from)
		if err != nil {
			return err
		}
		if touched, err = res.RowsAffected(); err != nil {
			return err
		}

		if _, err := tx.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO post_tags (post_id, tag_name)
			SELECT post_id, ? FROM post_tags WHERE tag_name = ?`, to, from); err != nil {
			return fmt.Errorf("copy post_tags: %w", err)
		}
		if _, err := tx.db.ExecContext(ctx,
			`DELETE FROM post_tags WHERE tag_name = ?`, from); err != nil {
			return fmt.Errorf("delete post_tags: %w", err)
		}
		return nil
	})
	return touched, err
}

// AddImpliedPostTag adds consequent to every post carrying antecedent and
// returns the number of posts that gained it.
func (s *Store) AddImpliedPostTag(ctx context.Context, antecedent, consequent string) (int64, error) {
	var touched int64
	err := s.InTx(ctx, func(txs store.Store) error {
		tx := txs.(*Store)
		if err := tx.ensureTags(ctx, []string{consequent}); err != nil {
			return err
		}

		res, err := tx.db.ExecContext(ctx, `
			UPDATE posts SET updated_at = ?
			WHERE id IN (SELECT post_id FROM post_tags WHERE tag_name = ?)
			  AND id NOT IN (SELECT post_id FROM post_tags WHERE tag_name = ?)`,
			formatTime(time.Now()), antecedent, consequent)
		if err != nil {
			return err
		}
		if touched, err = res.RowsAffected(); err != nil {
			return err
		}

		_, err = tx.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO post_tags (post_id, tag_name)
			SELECT post_id, ? FROM post_tags WHERE tag_name = ?`, consequent, antecedent)
		return err
	})
	return touched, err
}
