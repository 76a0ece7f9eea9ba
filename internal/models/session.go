package models

import "time"

// SessionStatus is the broadcast lifecycle state, owned by the backend.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusPaused    SessionStatus = "paused"
	StatusEnded     SessionStatus = "ended"
)

// Session is one live-shopping broadcast.
type Session struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Category        string        `json:"category,omitempty"`
	Tags            []string      `json:"tags,omitempty"`
	Status          SessionStatus `json:"status"`
	CreatorID       string        `json:"creatorId"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	EndedAt         *time.Time    `json:"endedAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	Products        []Product     `json:"products,omitempty"`
	ActiveProductID *string       `json:"activeProductId,omitempty"`
}

// SessionCreator is the embedded creator summary on a session detail.
type SessionCreator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// SessionWithCreator is the session detail returned by GET /sessions/:id.
type SessionWithCreator struct {
	Session
	Creator SessionCreator `json:"creator"`
}

// StreamToken grants access to the external video transport for one
// session. Role is "publisher" for the creator, "subscriber" for viewers.
type StreamToken struct {
	SessionID   string    `json:"sessionId"`
	ChannelName string    `json:"channelName"`
	Token       string    `json:"token"`
	UID         int64     `json:"uid"`
	AppID       string    `json:"appId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Role        string    `json:"role"`
}
