package domain

import (
	"fmt"
	"strings"
)

// Category is the fixed classification attached to a tag.
// Values match the integer codes stored in the tags table.
type Category int

const (
	// CategoryGeneral is the default category for new tags.
	CategoryGeneral Category = 0
	// CategoryArtist marks tags naming an artist.
	CategoryArtist Category = 1
	// CategoryCopyright marks tags naming a franchise or work.
	CategoryCopyright Category = 3
	// CategoryCharacter marks tags naming a character.
	CategoryCharacter Category = 4
	// CategoryMeta marks tags describing the post rather than its content.
	CategoryMeta Category = 5
)

var categoryNames = map[Category]string{
	CategoryGeneral:   "general",
	CategoryArtist:    "artist",
	CategoryCopyright: "copyright",
	CategoryCharacter: "character",
	CategoryMeta:      "meta",
}

// Categories returns every recognised category in code order.
func Categories() []Category {
	return []Category{CategoryGeneral, CategoryArtist, CategoryCopyright, CategoryCharacter, CategoryMeta}
}

// CategoryNames returns the recognised category names in code order.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryNames))
	for _, c := range Categories() {
		names = append(names, categoryNames[c])
	}
	return names
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range categoryNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// String returns the category name.
func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// MarshalText renders the category by name so API payloads stay readable.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts a category name.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("invalid category %q", string(b))
	}
	*c = parsed
	return nil
}
