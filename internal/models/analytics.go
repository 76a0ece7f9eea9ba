package models

import "time"

// ProductConversionStats is per-product click performance within a session.
type ProductConversionStats struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	UniqueClicks int    `json:"uniqueClicks"`
	TotalClicks  int    `json:"totalClicks"`
	// ConversionRate is (uniqueClicks / totalViewers) * 100.
	ConversionRate float64 `json:"conversionRate"`
}

// SessionConversionStats is the creator-facing conversion snapshot.
// Replace-on-receipt; the client never aggregates locally.
type SessionConversionStats struct {
	SessionID    string                   `json:"sessionId"`
	TotalViewers int                      `json:"totalViewers"`
	ProductStats []ProductConversionStats `json:"productStats"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// TrendingProduct is one entry in the server-ranked click leaderboard.
// Rank 1 is the most clicked; the client must not re-sort.
type TrendingProduct struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	ClickCount  int    `json:"clickCount"`
	Rank        int    `json:"rank"`
}

// TrendingProducts is the viewer-facing trending snapshot.
type TrendingProducts struct {
	SessionID    string            `json:"sessionId"`
	Trending     []TrendingProduct `json:"trending"`
	TotalViewers int               `json:"totalViewers"`
}

// SessionSummary counts a creator's sessions by status.
type SessionSummary struct {
	Total    int `json:"total"`
	ByStatus struct {
		Live      int `json:"live"`
		Ended     int `json:"ended"`
		Scheduled int `json:"scheduled"`
		Paused    int `json:"paused"`
	} `json:"byStatus"`
}

// ViewerMetrics summarizes audience size across a creator's sessions.
type ViewerMetrics struct {
	TotalUnique       int     `json:"totalUnique"`
	AveragePerSession float64 `json:"averagePerSession"`
	PeakConcurrent    int     `json:"peakConcurrent"`
}

// ReactionMetrics summarizes reactions across a creator's sessions.
type ReactionMetrics struct {
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"breakdown"`
}

// ProductMetrics summarizes product engagement across a creator's sessions.
type ProductMetrics struct {
	TotalClicks int     `json:"totalClicks"`
	UniqueUsers int     `json:"uniqueUsers"`
	AverageCTR  float64 `json:"averageCTR"`
}

// GlobalAnalytics is the creator dashboard rollup from the REST backend.
type GlobalAnalytics struct {
	CreatorID int64           `json:"creatorId"`
	Sessions  SessionSummary  `json:"sessions"`
	Viewers   ViewerMetrics   `json:"viewers"`
	Reactions ReactionMetrics `json:"reactions"`
	Products  ProductMetrics  `json:"products"`
}
