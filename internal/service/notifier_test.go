package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/sse"
	"github.com/tagwright/tagwright-server/internal/store"
)

func TestMentions(t *testing.T) {
	tests := []struct {
		body string
		want []string
	}{
		{"no mentions here", nil},
		{"@alice please look", []string{"alice"}},
		{"thanks @bob.", []string{"bob"}},
		{"@Carol and @carol and @dave", []string{"Carol", "dave"}},
		{"mail me at eve@example.com", nil},
		{"(@frank) @@grace", []string{"frank"}},
		{"approved by @j.doe.", []string{"j.doe"}},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, Mentions(tt.body))
		})
	}
}

func TestNotifier_Notify(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	events := &recordingEmitter{}
	n := NewNotifier(db, events, testLogger())

	alice := createUser(t, db, "alice", domain.LevelMember)
	bob := createUser(t, db, "bob", domain.LevelMember)
	carol := createUser(t, db, "carol", domain.LevelAdmin)

	sent, err := n.Notify(ctx, db, alice, "[bulk] title", "@alice @BOB and @nobody", "carol", "bob")
	require.NoError(t, err)
	assert.Len(t, sent, 2)
	assert.Empty(t, events.types(), "nothing is pushed before Publish")

	for _, u := range []*domain.User{bob, carol} {
		list, err := n.List(ctx, u.ID, store.PaginationParams{})
		require.NoError(t, err)
		require.Len(t, list, 1, u.Name)
		assert.Equal(t, alice.ID, list[0].FromUserID)
		assert.Equal(t, "[bulk] title", list[0].Title)
		assert.Equal(t, "@alice @BOB and @nobody", list[0].Body)
	}

	list, err := n.List(ctx, alice.ID, store.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, list)

	n.Publish(sent)
	assert.Equal(t, []sse.EventType{sse.EventNotification, sse.EventNotification}, events.types())
}
