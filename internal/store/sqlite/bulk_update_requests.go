package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

// burSelect selects requests with requester and approver names resolved.
// Must match the scan order in scanBulkUpdateRequest.
const burSelect = `SELECT b.id, b.user_id, u.name, b.approver_id, a.name,
	b.forum_topic_id, b.forum_post_id, b.title, b.reason, b.script, b.status,
	b.created_at, b.updated_at
	FROM bulk_update_requests b
	JOIN users u ON u.id = b.user_id
	LEFT JOIN users a ON a.id = b.approver_id`

func scanBulkUpdateRequest(sc scanner) (*domain.BulkUpdateRequest, error) {
	var (
		b            domain.BulkUpdateRequest
		approverID   sql.NullString
		approverName sql.NullString
		topicID      sql.NullInt64
		postID       sql.NullInt64
		status       string
		createdAt    string
		updatedAt    string
	)

	err := sc.Scan(
		&b.ID,
		&b.UserID,
		&b.UserName,
		&approverID,
		&approverName,
		&topicID,
		&postID,
		&b.Title,
		&b.Reason,
		&b.Script,
		&status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ApproverID = approverID.String
	b.ApproverName = approverName.String
	b.ForumTopicID = topicID.Int64
	b.ForumPostID = postID.Int64
	b.Status = domain.BulkUpdateRequestStatus(status)
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBulkUpdateRequest inserts a request and sets bur.ID.
func (s *Store) CreateBulkUpdateRequest(ctx context.Context, bur *domain.BulkUpdateRequest) error {
	if bur.CreatedAt.IsZero() {
		bur.CreatedAt = time.Now()
	}
	if bur.UpdatedAt.IsZero() {
		bur.UpdatedAt = bur.CreatedAt
	}
	if bur.Status == "" {
		bur.Status = domain.BulkUpdateRequestPending
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bulk_update_requests (user_id, approver_id, forum_topic_id, forum_post_id,
			title, reason, script, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bur.UserID,
		nullString(bur.ApproverID),
		nullInt64(bur.ForumTopicID),
		nullInt64(bur.ForumPostID),
		bur.Title,
		bur.Reason,
		bur.Script,
		string(bur.Status),
		formatTime(bur.CreatedAt),
		formatTime(bur.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert bulk update request: %w", err)
	}

	bur.ID, err = res.LastInsertId()
	return err
}

// GetBulkUpdateRequest retrieves a request by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetBulkUpdateRequest(ctx context.Context, id int64) (*domain.BulkUpdateRequest, error) {
	row := s.db.QueryRowContext(ctx, burSelect+` WHERE b.id = ?`, id)

	b, err := scanBulkUpdateRequest(row)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// UpdateBulkUpdateRequest saves the editable fields of a pending request.
func (s *Store) UpdateBulkUpdateRequest(ctx context.Context, bur *domain.BulkUpdateRequest) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bulk_update_requests
		SET title = ?, reason = ?, script = ?, forum_topic_id = ?, forum_post_id = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		bur.Title,
		bur.Reason,
		bur.Script,
		nullInt64(bur.ForumTopicID),
		nullInt64(bur.ForumPostID),
		formatTime(bur.UpdatedAt),
		bur.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missingOrConflict(ctx, bur.ID)
	}
	return nil
}

// TransitionBulkUpdateRequest is a compare-and-set on status.
func (s *Store) TransitionBulkUpdateRequest(ctx context.Context, id int64, from, to domain.BulkUpdateRequestStatus, approverID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bulk_update_requests
		SET status = ?, approver_id = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to),
		nullString(approverID),
		formatTime(at),
		id,
		string(from),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.missingOrConflict(ctx, id)
	}
	return nil
}

func (s *Store) missingOrConflict(ctx context.Context, id int64) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM bulk_update_requests WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return notFound(err)
	}
	return store.ErrConflict
}

// SearchBulkUpdateRequests filters by requester name, approver name and
// status, newest update first.
func (s *Store) SearchBulkUpdateRequests(ctx context.Context, filter store.BulkUpdateRequestFilter) (*store.Page[*domain.BulkUpdateRequest], error) {
	filter.Validate()

	var (
		where []string
		args  []any
	)
	if filter.RequesterName != "" {
		where = append(where, `u.name_lower = ?`)
		args = append(args, strings.ToLower(filter.RequesterName))
	}
	if filter.ApproverName != "" {
		where = append(where, `a.name_lower = ?`)
		args = append(args, strings.ToLower(filter.ApproverName))
	}
	if filter.Status != "" {
		where = append(where, `b.status = ?`)
		args = append(args, string(filter.Status))
	}

	clause := ""
	if len(where) > 0 {
		clause = ` WHERE ` + strings.Join(where, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bulk_update_requests b
		JOIN users u ON u.id = b.user_id
		LEFT JOIN users a ON a.id = b.approver_id`+clause, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count bulk update requests: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		burSelect+clause+` ORDER BY b.updated_at DESC, b.id DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("search bulk update requests: %w", err)
	}
	defer rows.Close()

	var items []*domain.BulkUpdateRequest
	for rows.Next() {
		b, err := scanBulkUpdateRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store.NewPage(items, total, filter.PaginationParams), nil
}
