package domain

import "time"

// Tag is a named label attached to posts.
// Name is the source of truth for identity and is stored lowercase.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	PostCount int       `json:"post_count"` // Derived on read, not stored
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now()
}
