package model

import "time"

// ReactionAction is the outcome of a reaction toggle, reported back to the
// caller so the handler can pick the right message.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionUpdated ReactionAction = "updated"
	ReactionRemoved ReactionAction = "removed"
)

// UserRef is the slim user projection embedded in letters and reactions.
// Email and Role are only populated for a letter's author.
type UserRef struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
}

// Reaction is an emoji tagged to a letter by one user. Reactions have no
// identity of their own — they live and die with their parent letter, and a
// letter holds at most one reaction per user.
type Reaction struct {
	Emoji     string    `json:"emoji"`
	User      UserRef   `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// Letter is a journal entry.
//
// LegacyID is the numeric identifier assigned by the system the data was
// migrated from. It is optional, unique when present, and letters can be
// addressed by either ID in the API.
type Letter struct {
	ID          string     `json:"id"`
	LegacyID    *int64     `json:"legacyId,omitempty"`
	Title       string     `json:"title"`
	Icon        string     `json:"icon"`
	Content     string     `json:"content"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedBy   UserRef    `json:"createdBy"`
	Reactions   []Reaction `json:"reactions"`
	CreatedAt   time.Time  `json:"createdAt"`
}
