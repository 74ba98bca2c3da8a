package domain

import (
	"fmt"
	"time"
)

// RelationStatus is the lifecycle state of an alias or implication record.
type RelationStatus string

const (
	// RelationActive records take effect on tagging.
	RelationActive RelationStatus = "active"
	// RelationDeleted records were removed and are kept for history.
	RelationDeleted RelationStatus = "deleted"
)

// RelationKind distinguishes the two tag-to-tag relations.
type RelationKind string

const (
	// RelationAlias replaces the antecedent with the consequent.
	RelationAlias RelationKind = "alias"
	// RelationImplication adds the consequent wherever the antecedent appears.
	RelationImplication RelationKind = "implication"
)

// TagRelation is the shared shape of TagAlias and TagImplication rows.
type TagRelation struct {
	ID                  int64          `json:"id"`
	Kind                RelationKind   `json:"kind"`
	AntecedentName      string         `json:"antecedent_name"`
	ConsequentName      string         `json:"consequent_name"`
	Status              RelationStatus `json:"status"`
	CreatorID           string         `json:"creator_id,omitempty"`
	ApproverID          string         `json:"approver_id,omitempty"`
	BulkUpdateRequestID int64          `json:"bulk_update_request_id,omitempty"` // Request that created the record
	DeletedByRequestID  int64          `json:"deleted_by_request_id,omitempty"`  // Request that removed it
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// TagAlias directs that AntecedentName is replaced by ConsequentName.
type TagAlias = TagRelation

// TagImplication directs that AntecedentName entails ConsequentName.
type TagImplication = TagRelation

// IsActive reports whether the relation is in effect.
func (r *TagRelation) IsActive() bool {
	return r.Status == RelationActive
}

// String renders the relation as "antecedent -> consequent".
func (r *TagRelation) String() string {
	return fmt.Sprintf("%s -> %s", r.AntecedentName, r.ConsequentName)
}
