package realtime

import (
	"encoding/json"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

// Envelope is the websocket message envelope, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client-to-server commands.
const (
	CmdJoinSession       = "join-session"
	CmdLeaveSession      = "leave-session"
	CmdSendMessage       = "send-message"
	CmdSendReaction      = "send-reaction"
	CmdShowcaseProduct   = "showcase-product"
	CmdTrackProductClick = "track-product-click"
)

// Server-to-client events.
const (
	EvtNewMessage        = "new-message"
	EvtNewReaction       = "new-reaction"
	EvtReactionStats     = "reaction-stats"
	EvtViewerCount       = "viewer-count"
	EvtProductShowcased  = "product-showcased"
	EvtShowcaseCleared   = "showcase-cleared"
	EvtProductClickStats = "product-click-stats"
	EvtTrendingProducts  = "trending-products"
)

// JoinPayload is the join-session command body. UserID is omitted for
// anonymous viewers.
type JoinPayload struct {
	SessionID string `json:"sessionId"`
	UserID    *int64 `json:"userId,omitempty"`
}

// MessagePayload is the send-message command body.
type MessagePayload struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	UserID    int64  `json:"userId"`
	UserName  string `json:"userName"`
}

// ReactionPayload is the send-reaction command body.
type ReactionPayload struct {
	SessionID string `json:"sessionId"`
	Type      string `json:"type"`
}

// ShowcasePayload is the showcase-product command body. A nil ProductID
// clears the showcase.
type ShowcasePayload struct {
	SessionID string  `json:"sessionId"`
	ProductID *string `json:"productId"`
}

// ClickPayload is the track-product-click command body.
type ClickPayload struct {
	SessionID string `json:"sessionId"`
	ProductID string `json:"productId"`
	UserID    int64  `json:"userId"`
}

// ShowcasedPayload is the product-showcased broadcast body.
type ShowcasedPayload struct {
	SessionID string         `json:"sessionId"`
	ProductID string         `json:"productId"`
	Product   models.Product `json:"product"`
}

// ClearedPayload is the showcase-cleared broadcast body.
type ClearedPayload struct {
	SessionID string `json:"sessionId"`
}
