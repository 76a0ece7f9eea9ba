package devserver

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

const trendingLimit = 5

// Stats accumulates per-session reaction tallies and product-click
// tracking. Clicks are deduplicated per user per product; anonymous
// clicks are ignored for conversion but still broadcast as reactions
// to activity.
type Stats struct {
	mu        sync.Mutex
	reactions map[string]map[string]int            // sessionID -> type -> count
	clicks    map[string]map[string]map[int64]bool // sessionID -> productID -> user set
	rawClicks map[string]map[string]int            // sessionID -> productID -> total
	viewers   map[string]map[string]bool           // sessionID -> clientID ever joined
}

// NewStats creates an empty tracker.
func NewStats() *Stats {
	return &Stats{
		reactions: make(map[string]map[string]int),
		clicks:    make(map[string]map[string]map[int64]bool),
		rawClicks: make(map[string]map[string]int),
		viewers:   make(map[string]map[string]bool),
	}
}

// SawViewer records that a client joined the session, for the
// total-viewers denominator.
func (s *Stats) SawViewer(sessionID, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewers[sessionID] == nil {
		s.viewers[sessionID] = make(map[string]bool)
	}
	s.viewers[sessionID][clientID] = true
}

// AddReaction counts one reaction and returns the updated distribution.
func (s *Stats) AddReaction(sessionID, kind string) models.ReactionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reactions[sessionID] == nil {
		s.reactions[sessionID] = make(map[string]int)
	}
	s.reactions[sessionID][kind]++

	total := 0
	for _, n := range s.reactions[sessionID] {
		total += n
	}
	pct := make(map[string]float64, len(s.reactions[sessionID]))
	for k, n := range s.reactions[sessionID] {
		pct[k] = math.Round(float64(n)/float64(total)*1000) / 10
	}
	return models.ReactionStats{SessionID: sessionID, Percentages: pct, Total: total}
}

// AddClick records a product click and returns the updated conversion
// and trending snapshots. userID 0 is anonymous and only bumps the raw
// count.
func (s *Stats) AddClick(sessionID, productID string, userID int64, name func(productID string) string) (models.SessionConversionStats, models.TrendingProducts) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rawClicks[sessionID] == nil {
		s.rawClicks[sessionID] = make(map[string]int)
	}
	s.rawClicks[sessionID][productID]++

	if userID != 0 {
		if s.clicks[sessionID] == nil {
			s.clicks[sessionID] = make(map[string]map[int64]bool)
		}
		if s.clicks[sessionID][productID] == nil {
			s.clicks[sessionID][productID] = make(map[int64]bool)
		}
		s.clicks[sessionID][productID][userID] = true
	}

	totalViewers := len(s.viewers[sessionID])

	conv := models.SessionConversionStats{
		SessionID:    sessionID,
		TotalViewers: totalViewers,
		UpdatedAt:    time.Now(),
	}
	for pid, raw := range s.rawClicks[sessionID] {
		unique := len(s.clicks[sessionID][pid])
		rate := 0.0
		if totalViewers > 0 {
			rate = math.Round(float64(unique)/float64(totalViewers)*1000) / 10
		}
		conv.ProductStats = append(conv.ProductStats, models.ProductConversionStats{
			ProductID:      pid,
			ProductName:    name(pid),
			UniqueClicks:   unique,
			TotalClicks:    raw,
			ConversionRate: rate,
		})
	}
	sort.Slice(conv.ProductStats, func(i, j int) bool {
		return conv.ProductStats[i].ProductID < conv.ProductStats[j].ProductID
	})

	trending := models.TrendingProducts{SessionID: sessionID, TotalViewers: totalViewers}
	for pid, raw := range s.rawClicks[sessionID] {
		trending.Trending = append(trending.Trending, models.TrendingProduct{
			ProductID:   pid,
			ProductName: name(pid),
			ClickCount:  raw,
		})
	}
	sort.Slice(trending.Trending, func(i, j int) bool {
		a, b := trending.Trending[i], trending.Trending[j]
		if a.ClickCount != b.ClickCount {
			return a.ClickCount > b.ClickCount
		}
		return a.ProductID < b.ProductID
	})
	if len(trending.Trending) > trendingLimit {
		trending.Trending = trending.Trending[:trendingLimit]
	}
	for i := range trending.Trending {
		trending.Trending[i].Rank = i + 1
	}
	return conv, trending
}

// Rollup aggregates across the given sessions for the creator
// dashboard endpoint.
func (s *Stats) Rollup(sessionIDs []string) (models.ViewerMetrics, models.ReactionMetrics, models.ProductMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var viewers models.ViewerMetrics
	reactions := models.ReactionMetrics{Breakdown: make(map[string]int)}
	var products models.ProductMetrics
	users := make(map[int64]bool)

	for _, id := range sessionIDs {
		n := len(s.viewers[id])
		viewers.TotalUnique += n
		if n > viewers.PeakConcurrent {
			viewers.PeakConcurrent = n
		}
		for kind, count := range s.reactions[id] {
			reactions.Breakdown[kind] += count
			reactions.Total += count
		}
		for _, raw := range s.rawClicks[id] {
			products.TotalClicks += raw
		}
		for _, set := range s.clicks[id] {
			for uid := range set {
				users[uid] = true
			}
		}
	}
	products.UniqueUsers = len(users)
	if len(sessionIDs) > 0 {
		viewers.AveragePerSession = math.Round(float64(viewers.TotalUnique)/float64(len(sessionIDs))*10) / 10
	}
	if viewers.TotalUnique > 0 {
		products.AverageCTR = math.Round(float64(products.TotalClicks)/float64(viewers.TotalUnique)*1000) / 10
	}
	return viewers, reactions, products
}
