package models

import "time"

// ChatMessage is one message in a session's chat history.
// Immutable once created; history keeps messages in arrival order.
type ChatMessage struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reaction is a transient reaction event. It is never stored beyond
// triggering one floating instance and one stats update. UserID 0 means
// the reaction came from an anonymous viewer.
type Reaction struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"userId,omitempty"`
}

// ReactionStats is the server-computed snapshot of reaction share per
// kind (0-100). Each push replaces the previous snapshot wholesale.
type ReactionStats struct {
	SessionID   string             `json:"sessionId"`
	Percentages map[string]float64 `json:"percentages"`
	Total       int                `json:"total"`
}
