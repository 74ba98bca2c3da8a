package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "user-1", "Alice", domain.LevelAdmin)

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Alice" || got.Level != domain.LevelAdmin {
		t.Errorf("got %+v", got)
	}

	byName, err := s.GetUserByName(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByName: %v", err)
	}
	if byName.ID != u.ID {
		t.Errorf("GetUserByName: got %q, want %q", byName.ID, u.ID)
	}
}

func TestCreateUser_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "user-1", "bob", domain.LevelMember)

	dup := &domain.User{ID: "user-2", Name: "BOB"}
	err := s.CreateUser(context.Background(), dup)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("got %v, want ErrAlreadyExists", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateUserAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "user-1", "carol", domain.LevelMember)
	createTestUser(t, s, "user-2", "alice", domain.LevelMember)

	u.Level = domain.LevelModerator
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0].Name != "alice" || users[1].Level != domain.LevelModerator {
		t.Errorf("ListUsers: got %+v", users)
	}
}
