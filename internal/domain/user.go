package domain

import "time"

// Level is a user's privilege tier. Higher values include the lower ones.
type Level int

const (
	// LevelMember can submit bulk update requests.
	LevelMember Level = 20
	// LevelBuilder can edit tags directly.
	LevelBuilder Level = 32
	// LevelModerator moderates the forum.
	LevelModerator Level = 40
	// LevelAdmin can approve and reject bulk update requests.
	LevelAdmin Level = 50
)

var levelNames = map[Level]string{
	LevelMember:    "member",
	LevelBuilder:   "builder",
	LevelModerator: "moderator",
	LevelAdmin:     "admin",
}

// ParseLevel resolves a level by name.
func ParseLevel(name string) (Level, bool) {
	for l, n := range levelNames {
		if n == name {
			return l, true
		}
	}
	return 0, false
}

// String returns the level name.
func (l Level) String() string {
	if n, ok := levelNames[l]; ok {
		return n
	}
	return "unknown"
}

// User is an account that requests, approves or discusses bulk updates.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Level        Level     `json:"level"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has administrative privileges.
func (u *User) IsAdmin() bool {
	return u.Level >= LevelAdmin
}

// CanApproveBulkUpdateRequests reports whether the user may approve or reject requests.
func (u *User) CanApproveBulkUpdateRequests() bool {
	return u.IsAdmin()
}

// CanEditBulkUpdateRequest reports whether the user may change a pending request.
func (u *User) CanEditBulkUpdateRequest(b *BulkUpdateRequest) bool {
	return u.IsAdmin() || u.ID == b.UserID
}
