package domain

import (
	"slices"
	"strings"
	"time"
)

// Post is a tagged entity. Tags is kept sorted and free of duplicates.
type Post struct {
	ID        int64     `json:"id"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagString renders the tag set the way it is displayed: sorted, space separated.
func (p *Post) TagString() string {
	return strings.Join(p.Tags, " ")
}

// HasTag reports whether the post carries name.
func (p *Post) HasTag(name string) bool {
	_, found := slices.BinarySearch(p.Tags, name)
	return found
}

// SetTags replaces the tag set, sorting and de-duplicating it.
func (p *Post) SetTags(tags []string) {
	p.Tags = NormalizeTagSet(tags)
}

// NormalizeTagSet returns a sorted copy of tags with blanks and duplicates removed.
func NormalizeTagSet(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
