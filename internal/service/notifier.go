package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store"
)

// mentionRe finds "@name" not preceded by a word character, so e-mail
// addresses are not mentions.
var mentionRe = regexp.MustCompile(`(?:^|[^\w@])@([\w.]+)`)

// Mentions returns the distinct @mentioned names in body, in order of first
// appearance. Trailing dots are sentence punctuation and are dropped.
func Mentions(body string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range mentionRe.FindAllStringSubmatch(body, -1) {
		name := strings.TrimRight(m[1], ".")
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

// Notifier delivers notifications to users mentioned in forum messages.
type Notifier struct {
	store   store.Store
	emitter store.EventEmitter
	logger  *slog.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(store store.Store, emitter store.EventEmitter, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// Notify stores one notification per user @mentioned in body plus each name
// in extra, using st so the caller can make it part of a transaction. The
// author is never notified and unknown names are ignored. Nothing is pushed
// to clients; call Publish once the notifications are committed.
func (n *Notifier) Notify(ctx context.Context, st store.Store, from *domain.User, title, body string, extra ...string) ([]*domain.Notification, error) {
	recipients := Mentions(body)
	for _, name := range extra {
		if !containsFold(recipients, name) {
			recipients = append(recipients, name)
		}
	}

	var sent []*domain.Notification
	for _, name := range recipients {
		if strings.EqualFold(name, from.Name) {
			continue
		}

		user, err := st.GetUserByName(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("look up %s: %w", name, err)
		}

		notification := &domain.Notification{
			UserID:     user.ID,
			FromUserID: from.ID,
			Title:      title,
			Body:       body,
		}
		if err := st.CreateNotification(ctx, notification); err != nil {
			return nil, fmt.Errorf("notify %s: %w", name, err)
		}
		sent = append(sent, notification)
	}
	return sent, nil
}

// Publish pushes committed notifications to connected clients.
func (n *Notifier) Publish(notifications []*domain.Notification) {
	for _, notification := range notifications {
		n.emitter.Emit(sse.NewNotificationEvent(notification))
	}
	if len(notifications) > 0 {
		n.logger.Debug("notifications published", "count", len(notifications))
	}
}

// List returns a user's notifications, newest first.
func (n *Notifier) List(ctx context.Context, userID string, params store.PaginationParams) ([]*domain.Notification, error) {
	return n.store.ListNotifications(ctx, userID, params)
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
