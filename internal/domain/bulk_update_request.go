package domain

import (
	"fmt"
	"time"
)

// BulkUpdateRequestStatus is the approval state of a bulk update request.
type BulkUpdateRequestStatus string

const (
	// BulkUpdateRequestPending is the initial state awaiting review.
	BulkUpdateRequestPending BulkUpdateRequestStatus = "pending"
	// BulkUpdateRequestApproved is terminal: the script was applied.
	BulkUpdateRequestApproved BulkUpdateRequestStatus = "approved"
	// BulkUpdateRequestRejected is terminal: the script was declined.
	BulkUpdateRequestRejected BulkUpdateRequestStatus = "rejected"
)

// ParseBulkUpdateRequestStatus validates a status name.
func ParseBulkUpdateRequestStatus(s string) (BulkUpdateRequestStatus, error) {
	switch st := BulkUpdateRequestStatus(s); st {
	case BulkUpdateRequestPending, BulkUpdateRequestApproved, BulkUpdateRequestRejected:
		return st, nil
	default:
		return "", fmt.Errorf("invalid bulk update request status %q", s)
	}
}

// IsTerminal reports whether no further transition is possible.
func (s BulkUpdateRequestStatus) IsTerminal() bool {
	return s == BulkUpdateRequestApproved || s == BulkUpdateRequestRejected
}

// BulkUpdateRequest is a proposed batch of taxonomy changes written as a script.
// Script holds the canonical (lowercased, one action per line) rendering.
type BulkUpdateRequest struct {
	ID           int64                   `json:"id"`
	UserID       string                  `json:"user_id"`
	UserName     string                  `json:"user_name,omitempty"` // Resolved on read
	ApproverID   string                  `json:"approver_id,omitempty"`
	ApproverName string                  `json:"approver_name,omitempty"` // Resolved on read
	ForumTopicID int64                   `json:"forum_topic_id,omitempty"`
	ForumPostID  int64                   `json:"forum_post_id,omitempty"`
	Title        string                  `json:"title"`
	Reason       string                  `json:"reason"`
	Script       string                  `json:"script"`
	Status       BulkUpdateRequestStatus `json:"status"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// IsPending reports whether the request still awaits a decision.
func (b *BulkUpdateRequest) IsPending() bool {
	return b.Status == BulkUpdateRequestPending
}

// Tag returns the "[bur:ID]" reference embedded in forum posts.
func (b *BulkUpdateRequest) Tag() string {
	return fmt.Sprintf("[bur:%d]", b.ID)
}
