// Package main provides a tool to seed a database with a small taxonomy for
// trying out bulk update requests.
//
// It creates an admin and a member account, a handful of categorized tags,
// active aliases and implications, and posts tagged with them.
//
// Usage:
//
//	DB_PATH=~/Tagwright/tagwright.db go run ./cmd/seed
//	go run ./cmd/seed --db-path /tmp/tagwright.db --password hunter22
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/tagwright/tagwright-server/internal/auth"
	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/id"
	"github.com/tagwright/tagwright-server/internal/logger"
	"github.com/tagwright/tagwright-server/internal/store"
	"github.com/tagwright/tagwright-server/internal/store/sqlite"
)

var (
	dbPath   = flag.String("db-path", "", "Path to the SQLite database (default: $DB_PATH or ~/Tagwright/tagwright.db)")
	password = flag.String("password", "tagwright", "Password for the seeded accounts")
)

var categories = map[string]domain.Category{
	"claude_monet":      domain.CategoryArtist,
	"hokusai":           domain.CategoryArtist,
	"impressionism":     domain.CategoryCopyright,
	"great_wave":        domain.CategoryCharacter,
	"highres":           domain.CategoryMeta,
	"absurdres":         domain.CategoryMeta,
	"tagme":             domain.CategoryMeta,
	"water_lilies":      domain.CategoryGeneral,
	"ocean":             domain.CategoryGeneral,
	"mount_fuji":        domain.CategoryGeneral,
	"mountain":          domain.CategoryGeneral,
	"painting":          domain.CategoryGeneral,
	"traditional_media": domain.CategoryGeneral,
	"woodblock_print":   domain.CategoryGeneral,
	"flower":            domain.CategoryGeneral,
	"pond":              domain.CategoryGeneral,
}

var aliases = [][2]string{
	{"monet", "claude_monet"},
	{"katsushika_hokusai", "hokusai"},
	{"sea", "ocean"},
}

var implications = [][2]string{
	{"absurdres", "highres"},
	{"mount_fuji", "mountain"},
	{"woodblock_print", "traditional_media"},
	{"water_lilies", "flower"},
}

var posts = [][]string{
	{"claude_monet", "impressionism", "water_lilies", "flower", "pond", "painting", "highres"},
	{"claude_monet", "impressionism", "pond", "painting"},
	{"hokusai", "great_wave", "ocean", "mount_fuji", "mountain", "woodblock_print", "traditional_media"},
	{"hokusai", "mount_fuji", "mountain", "woodblock_print", "traditional_media", "absurdres", "highres"},
	{"ocean", "painting", "tagme"},
	{"flower", "tagme"},
}

func main() {
	flag.Parse()

	path := *dbPath
	if path == "" {
		path = os.Getenv("DB_PATH")
	}
	if path == "" {
		path = os.ExpandEnv("$HOME/Tagwright/tagwright.db")
	}

	fmt.Printf("Opening database at: %s\n", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	s, err := sqlite.Open(path, logger.Discard().Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	admin := createUser(ctx, s, "admin", domain.LevelAdmin)
	createUser(ctx, s, "member", domain.LevelMember)

	for name, category := range categories {
		if _, err := s.UpsertTagCategory(ctx, name, category); err != nil {
			log.Fatalf("Failed to create tag %s: %v", name, err)
		}
	}
	fmt.Printf("Created %d tags\n", len(categories))

	created := 0
	for _, pair := range aliases {
		created += createRelation(ctx, s, domain.RelationAlias, pair, admin)
	}
	for _, pair := range implications {
		created += createRelation(ctx, s, domain.RelationImplication, pair, admin)
	}
	fmt.Printf("Created %d aliases and implications\n", created)

	for _, tags := range posts {
		p := &domain.Post{}
		p.SetTags(tags)
		if err := s.CreatePost(ctx, p); err != nil {
			log.Fatalf("Failed to create post: %v", err)
		}
	}
	fmt.Printf("Created %d posts\n", len(posts))

	fmt.Println("\nSeeding complete!")
	fmt.Printf("Log in as admin or member with password %q\n", *password)
}

// createUser returns the named account, creating it when missing.
func createUser(ctx context.Context, s *sqlite.Store, name string, level domain.Level) *domain.User {
	if existing, err := s.GetUserByName(ctx, name); err == nil {
		fmt.Printf("  User %s already exists\n", name)
		return existing
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           id.MustGenerate(id.PrefixUser),
		Name:         name,
		Level:        level,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		log.Fatalf("Failed to create user %s: %v", name, err)
	}

	fmt.Printf("  Created %s user: %s\n", level, name)
	return user
}

func createRelation(ctx context.Context, s *sqlite.Store, kind domain.RelationKind, pair [2]string, creator *domain.User) int {
	for _, name := range pair {
		if _, err := s.EnsureTag(ctx, name); err != nil {
			log.Fatalf("Failed to create tag %s: %v", name, err)
		}
	}

	err := s.CreateTagRelation(ctx, &domain.TagRelation{
		Kind:           kind,
		AntecedentName: pair[0],
		ConsequentName: pair[1],
		CreatorID:      creator.ID,
		ApproverID:     creator.ID,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return 0
	}
	if err != nil {
		log.Fatalf("Failed to create %s %s -> %s: %v", kind, pair[0], pair[1], err)
	}
	return 1
}
