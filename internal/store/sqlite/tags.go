package sqlite

import (
	"context"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag. post_count is derived.
const tagColumns = `t.id, t.name, t.category, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM post_tags pt WHERE pt.tag_name = t.name)`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(sc scanner) (*domain.Tag, error) {
	var (
		t         domain.Tag
		category  int
		createdAt string
		updatedAt string
	)

	err := sc.Scan(
		&t.ID,
		&t.Name,
		&category,
		&createdAt,
		&updatedAt,
		&t.PostCount,
	)
	if err != nil {
		return nil, err
	}

	t.Category = domain.Category(category)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTag retrieves a tag by name.
// Returns store.ErrNotFound if the tag does not exist.
func (s *Store) GetTag(ctx context.Context, name string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags t WHERE t.name = ?`, name)

	t, err := scanTag(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// EnsureTag finds a tag by name or creates it in the general category.
func (s *Store) EnsureTag(ctx context.Context, name string) (*domain.Tag, error) {
	if err := s.ensureTags(ctx, []string{name}); err != nil {
		return nil, err
	}
	return s.GetTag(ctx, name)
}

func (s *Store) ensureTags(ctx context.Context, names []string) error {
	now := formatTime(time.Now())
	for _, name := range names {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tags (name, category, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO NOTHING`,
			name, int(domain.CategoryGeneral), now, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpsertTagCategory creates the tag with category or updates the category of
// an existing tag.
func (s *Store) UpsertTagCategory(ctx context.Context, name string, category domain.Category) (*domain.Tag, error) {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (name, category, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			updated_at = excluded.updated_at`,
		name, int(category), now, now)
	if err != nil {
		return nil, err
	}
	return s.GetTag(ctx, name)
}

// ListTags returns tags ordered by name.
func (s *Store) ListTags(ctx context.Context, params store.TagFilter) ([]*domain.Tag, error) {
	params.Validate()

	query := `SELECT ` + tagColumns + ` FROM tags t`
	var args []any
	if params.NamePattern != "" {
		query += ` WHERE t.name GLOB ?`
		args = append(args, params.NamePattern)
	}
	query += ` ORDER BY t.name ASC LIMIT ? OFFSET ?`
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
