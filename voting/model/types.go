package model

import "time"

const (
	// Validation constants
	AccessCodeLength  = 6
	MaxNameLength     = 255
	MaxTitleLength    = 255
	MaxDescriptionLen = 4000
	AccessCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Session is a voting session participants join with its access code
type Session struct {
	ID         string     `json:"id"`
	AccessCode string     `json:"access_code"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	ClosedAt   *time.Time `json:"closed_at"`
}

// User is a participant registered in one session
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is a discussion item proposed in a session
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vote records one user's yes/no on one card. A user votes at most once per card.
type Vote struct {
	ID        string    `json:"id"`
	CardID    string    `json:"card_id"`
	UserID    string    `json:"user_id"`
	Vote      bool      `json:"vote"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is everything stored for one session
type Snapshot struct {
	Session Session `json:"session"`
	Users   []User  `json:"users"`
	Cards   []Card  `json:"cards"`
	Votes   []Vote  `json:"votes"`
}
