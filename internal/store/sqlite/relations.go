package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

// relationColumns is the ordered list of columns selected in alias and
// implication queries. Must match the scan order in scanRelation.
const relationColumns = `id, antecedent_name, consequent_name, status, creator_id, approver_id,
	bulk_update_request_id, deleted_by_request_id, created_at, updated_at`

// relationTable maps a relation kind to its table.
func relationTable(kind domain.RelationKind) (string, error) {
	switch kind {
	case domain.RelationAlias:
		return "tag_aliases", nil
	case domain.RelationImplication:
		return "tag_implications", nil
	default:
		return "", fmt.Errorf("unknown relation kind %q", kind)
	}
}

func scanRelation(sc scanner, kind domain.RelationKind) (*domain.TagRelation, error) {
	var (
		r          domain.TagRelation
		status     string
		creatorID  sql.NullString
		approverID sql.NullString
		burID      sql.NullInt64
		deletedBy  sql.NullInt64
		createdAt  string
		updatedAt  string
	)

	err := sc.Scan(
		&r.ID,
		&r.AntecedentName,
		&r.ConsequentName,
		&status,
		&creatorID,
		&approverID,
		&burID,
		&deletedBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = kind
	r.Status = domain.RelationStatus(status)
	r.CreatorID = creatorID.String
	r.ApproverID = approverID.String
	r.BulkUpdateRequestID = burID.Int64
	r.DeletedByRequestID = deletedBy.Int64
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateTagRelation inserts an active alias or implication and sets rel.ID.
// Returns store.ErrAlreadyExists when a partial unique index rejects it.
func (s *Store) CreateTagRelation(ctx context.Context, rel *domain.TagRelation) error {
	table, err := relationTable(rel.Kind)
	if err != nil {
		return err
	}

	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}
	if rel.UpdatedAt.IsZero() {
		rel.UpdatedAt = rel.CreatedAt
	}
	rel.Status = domain.RelationActive

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (antecedent_name, consequent_name, status, creator_id, approver_id,
			bulk_update_request_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.AntecedentName,
		rel.ConsequentName,
		string(rel.Status),
		nullString(rel.CreatorID),
		nullString(rel.ApproverID),
		nullInt64(rel.BulkUpdateRequestID),
		formatTime(rel.CreatedAt),
		formatTime(rel.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	rel.ID, err = res.LastInsertId()
	return err
}

// GetActiveTagAlias returns the active alias whose antecedent is name.
func (s *Store) GetActiveTagAlias(ctx context.Context, antecedent string) (*domain.TagAlias, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+relationColumns+` FROM tag_aliases
		WHERE antecedent_name = ? AND status = 'active'`, antecedent)

	r, err := scanRelation(row, domain.RelationAlias)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// GetActiveTagRelation returns the active relation antecedent -> consequent.
func (s *Store) GetActiveTagRelation(ctx context.Context, kind domain.RelationKind, antecedent, consequent string) (*domain.TagRelation, error) {
	table, err := relationTable(kind)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+relationColumns+` FROM `+table+`
		WHERE antecedent_name = ? AND consequent_name = ? AND status = 'active'`,
		antecedent, consequent)

	r, err := scanRelation(row, kind)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// GetTagRelationByRequest returns the newest relation antecedent -> consequent
// that was created or removed by the given bulk update request.
func (s *Store) GetTagRelationByRequest(ctx context.Context, kind domain.RelationKind, antecedent, consequent string, bulkUpdateRequestID int64) (*domain.TagRelation, error) {
	table, err := relationTable(kind)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+relationColumns+` FROM `+table+`
		WHERE antecedent_name = ? AND consequent_name = ?
		  AND (bulk_update_request_id = ? OR deleted_by_request_id = ?)
		ORDER BY id DESC LIMIT 1`,
		antecedent, consequent, bulkUpdateRequestID, bulkUpdateRequestID)

	r, err := scanRelation(row, kind)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// DeactivateTagRelation marks an active relation deleted, stamping the approver
// and the removing request.
func (s *Store) DeactivateTagRelation(ctx context.Context, kind domain.RelationKind, id int64, approverID string, bulkUpdateRequestID int64) error {
	table, err := relationTable(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE `+table+`
		SET status = 'deleted', approver_id = ?, deleted_by_request_id = ?, updated_at = ?
		WHERE id = ? AND status = 'active'`,
		nullString(approverID),
		nullInt64(bulkUpdateRequestID),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// RetargetTagAliases rewrites active aliases X -> from into X -> to.
func (s *Store) RetargetTagAliases(ctx context.Context, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tag_aliases SET consequent_name = ?, updated_at = ?
		WHERE consequent_name = ? AND status = 'active' AND antecedent_name <> ?`,
		to, formatTime(time.Now()), from, to)
	if isUniqueViolation(err) {
		return 0, store.ErrAlreadyExists
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListImplicationConsequents returns the consequents of active implications of antecedent.
func (s *Store) ListImplicationConsequents(ctx context.Context, antecedent string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT consequent_name FROM tag_implications
		WHERE antecedent_name = ? AND status = 'active'
		ORDER BY consequent_name`, antecedent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListTagRelations returns relations of one kind, newest first.
func (s *Store) ListTagRelations(ctx context.Context, kind domain.RelationKind, params store.RelationFilter) ([]*domain.TagRelation, error) {
	table, err := relationTable(kind)
	if err != nil {
		return nil, err
	}
	params.Validate()

	query := `SELECT ` + relationColumns + ` FROM ` + table + ` WHERE 1 = 1`
	var args []any
	if params.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(params.Status))
	}
	if params.Name != "" {
		query += ` AND (antecedent_name = ? OR consequent_name = ?)`
		args = append(args, params.Name, params.Name)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rels := []*domain.TagRelation{}
	for rows.Next() {
		r, err := scanRelation(rows, kind)
		if err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}
	return rels, rows.Err()
}
