package store

import "github.com/tagwright/tagwright-server/internal/domain"

// BulkUpdateRequestFilter narrows a bulk update request search. Empty fields
// do not filter; set fields combine with AND. Results are ordered by
// updated_at descending, then id descending.
type BulkUpdateRequestFilter struct {
	RequesterName string
	ApproverName  string
	Status        domain.BulkUpdateRequestStatus
	PaginationParams
}

// RelationFilter narrows an alias or implication listing.
type RelationFilter struct {
	Status domain.RelationStatus // empty for any
	Name   string                // matches either side
	PaginationParams
}

// TagFilter narrows a tag listing.
type TagFilter struct {
	NamePattern string // GLOB pattern, empty for all
	PaginationParams
}

// PostQuery selects posts for a mass update.
type PostQuery struct {
	Required         []string // every tag must be present
	Excluded         []string // none may be present
	AnyOf            []string // at least one must be present, when non-empty
	Patterns         []string // each pattern must match some tag
	ExcludedPatterns []string // no tag may match
	IDs              []int64  // restrict to these ids, when non-empty
	MinID, MaxID     int64    // inclusive range, 0 for unbounded
}

// IsEmpty reports whether the query has no tag or id constraint.
func (q PostQuery) IsEmpty() bool {
	return len(q.Required) == 0 && len(q.AnyOf) == 0 && len(q.Patterns) == 0 &&
		len(q.IDs) == 0 && q.MinID == 0 && q.MaxID == 0
}
