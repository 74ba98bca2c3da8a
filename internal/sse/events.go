// Package sse implements Server-Sent Events for bulk update request lifecycle updates.
package sse

import (
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBulkUpdateRequestCreated is sent when a request is submitted.
	EventBulkUpdateRequestCreated EventType = "bur.created"
	// EventBulkUpdateRequestUpdated is sent when a pending request is edited.
	EventBulkUpdateRequestUpdated EventType = "bur.updated"
	// EventBulkUpdateRequestApproved is sent once the script has been applied.
	EventBulkUpdateRequestApproved EventType = "bur.approved"
	// EventBulkUpdateRequestRejected is sent when a request is declined.
	EventBulkUpdateRequestRejected EventType = "bur.rejected"
	// EventBulkUpdateRequestFailed is sent when an approval attempt fails.
	// Only sent to admin users.
	EventBulkUpdateRequestFailed EventType = "bur.failed"

	// EventNotification is sent to the recipient of a new notification.
	EventNotification EventType = "notification.created"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	UserID    string    `json:"-"` // Deliver only to this user when set
}

// BulkUpdateRequestEventData is the payload of bur.* events.
type BulkUpdateRequestEventData struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	UserName     string   `json:"user_name"`
	ApproverName string   `json:"approver_name,omitempty"`
	ForumTopicID int64    `json:"forum_topic_id,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// NotificationEventData is the payload of notification events.
type NotificationEventData struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// NewBulkUpdateRequestEvent creates a bur.* event for the request's current state.
func NewBulkUpdateRequestEvent(eventType EventType, bur *domain.BulkUpdateRequest) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      bulkUpdateRequestData(bur),
	}
}

// NewBulkUpdateRequestFailedEvent creates a bur.failed event listing what went wrong.
func NewBulkUpdateRequestFailedEvent(bur *domain.BulkUpdateRequest, failures []string) Event {
	data := bulkUpdateRequestData(bur)
	data.Errors = failures
	return Event{
		Type:      EventBulkUpdateRequestFailed,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewNotificationEvent creates an event delivered only to the notification's recipient.
func NewNotificationEvent(n *domain.Notification) Event {
	return Event{
		Type:      EventNotification,
		Timestamp: time.Now(),
		UserID:    n.UserID,
		Data: NotificationEventData{
			ID:    n.ID,
			Title: n.Title,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      map[string]any{},
	}
}

func bulkUpdateRequestData(bur *domain.BulkUpdateRequest) BulkUpdateRequestEventData {
	return BulkUpdateRequestEventData{
		ID:           bur.ID,
		Title:        bur.Title,
		Status:       string(bur.Status),
		UserName:     bur.UserName,
		ApproverName: bur.ApproverName,
		ForumTopicID: bur.ForumTopicID,
	}
}
