// Package session owns the client-side view of one live-shopping
// broadcast: chat history, viewer count, showcase state, reaction and
// analytics snapshots, all driven by realtime channel events and user
// intents.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
	"github.com/sharat789/steam-bazaar-fev2/internal/reactions"
	"github.com/sharat789/steam-bazaar-fev2/internal/realtime"
)

// Phase is the load lifecycle of one session view.
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// API is the slice of the REST collaborator the view consumes.
type API interface {
	GetSession(ctx context.Context, id string) (*models.SessionWithCreator, error)
	StartStream(ctx context.Context, id string) (*models.StreamToken, error)
	EndStream(ctx context.Context, id string) error
	GetStreamToken(ctx context.Context, id string) (*models.StreamToken, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) (*models.Session, error)
}

// Channel is the realtime channel surface the view drives.
type Channel interface {
	Connect(sessionID string, viewer realtime.Viewer) error
	Disconnect()
	Connected() bool
	Err() string
	SetHandlers(h realtime.Handlers)
	SendChatMessage(text string) bool
	SendReaction(kind string) bool
	SetShowcase(productID string) bool
	SendProductClick(productID string) bool
}

type showcaseSource int

const (
	sourceNone showcaseSource = iota
	sourceOptimistic
	sourceAuthoritative
)

// showcaseValue tags where the current showcase value came from.
// Authoritative writes (broadcast events) unconditionally win over
// optimistic local ones.
type showcaseValue struct {
	source    showcaseSource
	productID string
	product   *models.Product
}

// Options configure a view.
type Options struct {
	// Creator marks the local actor as the session's creator, enabling
	// the stream-control operations.
	Creator bool
	// OnChange, if set, is invoked after every state transition so the
	// consuming UI can re-render. Called without internal locks held.
	OnChange func()
}

// View is the per-session view-state owner. One view exists per mounted
// session page; it is discarded in full when the viewed session changes
// or the page unmounts. All state it holds is derived from channel
// events and user intents; it never reorders events.
type View struct {
	logger  *zap.Logger
	api     API
	channel Channel
	overlay *reactions.Overlay
	viewer  realtime.Viewer
	creator bool
	notifyf func()

	mu            sync.Mutex
	gen           int // staleness guard: bumped on every Load/Close
	sessionID     string
	phase         Phase
	loadErr       error
	session       *models.SessionWithCreator
	streamToken   *models.StreamToken
	chat          []models.ChatMessage
	chatSeen      map[string]struct{}
	viewerCount   int
	reactionStats *models.ReactionStats
	showcase      showcaseValue
	conversion    *models.SessionConversionStats
	trending      *models.TrendingProducts
	banner        string
}

// NewView creates an unloaded view. The channel and overlay are owned by
// the view from here on: Close tears both down.
func NewView(api API, channel Channel, overlay *reactions.Overlay, viewer realtime.Viewer, opts Options, logger *zap.Logger) *View {
	return &View{
		logger:   logger,
		api:      api,
		channel:  channel,
		overlay:  overlay,
		viewer:   viewer,
		creator:  opts.Creator,
		notifyf:  opts.OnChange,
		chatSeen: make(map[string]struct{}),
	}
}

// Load fetches the session description and, when the broadcast is live,
// opens the realtime channel. Calling Load with a different session id
// is the session switch: all accumulated state is discarded and the old
// connection closed before anything else happens. A fetch that resolves
// after a newer Load (or Close) is discarded via the generation guard.
func (v *View) Load(ctx context.Context, sessionID string) error {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.resetLocked(sessionID)
	v.mu.Unlock()

	v.channel.Disconnect()
	v.notify()

	s, err := v.api.GetSession(ctx, sessionID)

	v.mu.Lock()
	if v.gen != gen {
		// A newer Load or Close won the race; this result is stale.
		v.mu.Unlock()
		return nil
	}
	if err != nil {
		v.phase = PhaseFailed
		v.loadErr = fmt.Errorf("load session %s: %w", sessionID, err)
		v.mu.Unlock()
		v.notify()
		return v.loadErr
	}
	v.phase = PhaseReady
	v.session = s
	if s.ActiveProductID != nil && *s.ActiveProductID != "" {
		v.showcase = showcaseValue{source: sourceAuthoritative, productID: *s.ActiveProductID}
	}
	connect := s.Status == models.StatusLive
	v.mu.Unlock()

	if connect {
		v.openChannel(gen)
	}
	v.notify()
	return nil
}

// resetLocked discards all per-session state. Caller holds v.mu.
func (v *View) resetLocked(sessionID string) {
	v.sessionID = sessionID
	v.phase = PhaseLoading
	v.loadErr = nil
	v.session = nil
	v.streamToken = nil
	v.chat = nil
	v.chatSeen = make(map[string]struct{})
	v.viewerCount = 0
	v.reactionStats = nil
	v.showcase = showcaseValue{}
	v.conversion = nil
	v.trending = nil
	v.banner = ""
}

// openChannel registers generation-bound handlers and connects. A
// connect failure is non-fatal: the view keeps its loaded state and
// surfaces a banner.
func (v *View) openChannel(gen int) {
	v.channel.SetHandlers(realtime.Handlers{
		OnMessage: func(m models.ChatMessage) {
			v.apply(gen, func() { v.applyMessageLocked(m) })
		},
		OnReaction: func(r models.Reaction) {
			v.apply(gen, func() { v.overlay.Add(r) })
		},
		OnReactionStats: func(s models.ReactionStats) {
			v.apply(gen, func() { v.reactionStats = &s })
		},
		OnViewerCount: func(n int) {
			v.apply(gen, func() { v.viewerCount = n })
		},
		OnProductShowcased: func(productID string, product models.Product) {
			v.apply(gen, func() {
				p := product
				v.showcase = showcaseValue{source: sourceAuthoritative, productID: productID, product: &p}
			})
		},
		OnShowcaseCleared: func() {
			v.apply(gen, func() {
				v.showcase = showcaseValue{source: sourceAuthoritative}
			})
		},
		OnProductClickStats: func(s models.SessionConversionStats) {
			// Delivered to creators, but stored regardless of local role.
			v.apply(gen, func() { v.conversion = &s })
		},
		OnTrendingProducts: func(tr models.TrendingProducts) {
			v.apply(gen, func() { v.trending = &tr })
		},
	})

	v.mu.Lock()
	sessionID := v.sessionID
	v.mu.Unlock()

	if err := v.channel.Connect(sessionID, v.viewer); err != nil {
		v.mu.Lock()
		if v.gen == gen {
			v.banner = "failed to connect to chat server"
		}
		v.mu.Unlock()
	}
}

// apply runs a state mutation if the event still belongs to the current
// generation and the view is ready. Events raced past a session switch
// are dropped here.
func (v *View) apply(gen int, fn func()) {
	v.mu.Lock()
	if v.gen != gen || v.phase != PhaseReady {
		v.mu.Unlock()
		return
	}
	fn()
	v.mu.Unlock()
	v.notify()
}

// applyMessageLocked appends to chat history in arrival order. Messages
// are deduplicated by id: on a transport-level replay the same message
// can arrive twice and must not double up in history.
func (v *View) applyMessageLocked(m models.ChatMessage) {
	if m.SessionID != "" && m.SessionID != v.sessionID {
		return
	}
	if _, dup := v.chatSeen[m.ID]; dup {
		v.logger.Debug("duplicate chat message dropped", zap.String("id", m.ID))
		return
	}
	v.chatSeen[m.ID] = struct{}{}
	v.chat = append(v.chat, m)
}

// SendMessage emits a chat message. History is not updated here; the
// message appears only when echoed back through the channel.
func (v *View) SendMessage(text string) bool {
	return v.channel.SendChatMessage(text)
}

// React emits a reaction and, on successful send, shows the viewer's own
// reaction immediately instead of waiting for the broadcast.
func (v *View) React(kind string) bool {
	if !v.channel.SendReaction(kind) {
		return false
	}
	v.overlay.Add(models.Reaction{Type: kind, UserID: v.viewer.UserID})
	v.notify()
	return true
}

// Showcase highlights a product, optimistically updating local state
// before the broadcast confirms it. If the send fails (not connected) no
// optimistic update happens. An empty productID clears the showcase.
func (v *View) Showcase(productID string) bool {
	if !v.channel.SetShowcase(productID) {
		return false
	}
	v.mu.Lock()
	v.showcase = showcaseValue{source: sourceOptimistic, productID: productID}
	v.mu.Unlock()
	v.notify()
	return true
}

// ClickProduct records a product click for conversion tracking.
func (v *View) ClickProduct(productID string) bool {
	return v.channel.SendProductClick(productID)
}

// StartStream performs the creator's token exchange, marks the broadcast
// live, and opens the realtime channel.
func (v *View) StartStream(ctx context.Context) error {
	v.mu.Lock()
	if !v.creator || v.phase != PhaseReady {
		v.mu.Unlock()
		return fmt.Errorf("start stream: view is not a ready creator view")
	}
	gen := v.gen
	sessionID := v.sessionID
	v.mu.Unlock()

	token, err := v.api.StartStream(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return nil
	}
	v.streamToken = token
	if v.session != nil {
		v.session.Status = models.StatusLive
	}
	v.mu.Unlock()

	v.openChannel(gen)
	v.notify()
	return nil
}

// EndStream ends the broadcast and releases the channel.
func (v *View) EndStream(ctx context.Context) error {
	v.mu.Lock()
	sessionID := v.sessionID
	gen := v.gen
	v.mu.Unlock()

	if err := v.api.EndStream(ctx, sessionID); err != nil {
		return fmt.Errorf("end stream: %w", err)
	}

	v.channel.Disconnect()
	v.mu.Lock()
	if v.gen == gen && v.session != nil {
		v.session.Status = models.StatusEnded
		v.streamToken = nil
	}
	v.mu.Unlock()
	v.notify()
	return nil
}

// Pause sets the broadcast status to paused. The channel stays open so
// chat keeps working during the pause.
func (v *View) Pause(ctx context.Context) error {
	return v.setStatus(ctx, models.StatusPaused)
}

// Resume sets the broadcast status back to live.
func (v *View) Resume(ctx context.Context) error {
	return v.setStatus(ctx, models.StatusLive)
}

func (v *View) setStatus(ctx context.Context, status models.SessionStatus) error {
	v.mu.Lock()
	sessionID := v.sessionID
	gen := v.gen
	v.mu.Unlock()

	if _, err := v.api.UpdateSessionStatus(ctx, sessionID, status); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	v.mu.Lock()
	if v.gen == gen && v.session != nil {
		v.session.Status = status
	}
	v.mu.Unlock()
	v.notify()
	return nil
}

// ViewerStreamToken fetches the subscriber token for the external video
// transport. The view stores it so a re-render never duplicates the
// request.
func (v *View) ViewerStreamToken(ctx context.Context) (*models.StreamToken, error) {
	v.mu.Lock()
	if v.streamToken != nil {
		t := *v.streamToken
		v.mu.Unlock()
		return &t, nil
	}
	gen := v.gen
	sessionID := v.sessionID
	v.mu.Unlock()

	token, err := v.api.GetStreamToken(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("stream token: %w", err)
	}
	v.mu.Lock()
	if v.gen == gen {
		v.streamToken = token
	}
	v.mu.Unlock()
	return token, nil
}

// Close discards the view: pending overlay timers are cancelled, a leave
// is emitted and the channel closed, and any in-flight fetch resolution
// is abandoned via the generation bump.
func (v *View) Close() {
	v.mu.Lock()
	v.gen++
	v.phase = ""
	v.mu.Unlock()
	v.channel.Disconnect()
	v.overlay.Close()
}

func (v *View) notify() {
	if v.notifyf != nil {
		v.notifyf()
	}
}

// Phase returns the load lifecycle state.
func (v *View) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// LoadErr returns the fatal load error, if any.
func (v *View) LoadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// Session returns the loaded session description, nil before ready.
func (v *View) Session() *models.SessionWithCreator {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session == nil {
		return nil
	}
	s := *v.session
	return &s
}

// Chat returns the message history in arrival order.
func (v *View) Chat() []models.ChatMessage {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.ChatMessage, len(v.chat))
	copy(out, v.chat)
	return out
}

// ViewerCount returns the last server-pushed audience size.
func (v *View) ViewerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewerCount
}

// ReactionStats returns the current snapshot, nil before the first push.
func (v *View) ReactionStats() *models.ReactionStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.reactionStats == nil {
		return nil
	}
	s := *v.reactionStats
	return &s
}

// ActiveProductID returns the currently showcased product, "" when none.
func (v *View) ActiveProductID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.showcase.productID
}

// ActiveProduct returns the showcased product detail when the broadcast
// carried one, nil otherwise.
func (v *View) ActiveProduct() *models.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.showcase.product == nil {
		return nil
	}
	p := *v.showcase.product
	return &p
}

// Conversion returns the creator-facing click stats snapshot.
func (v *View) Conversion() *models.SessionConversionStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conversion == nil {
		return nil
	}
	s := *v.conversion
	return &s
}

// Trending returns the viewer-facing trending snapshot.
func (v *View) Trending() *models.TrendingProducts {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.trending == nil {
		return nil
	}
	tr := *v.trending
	return &tr
}

// Connected reports the channel status.
func (v *View) Connected() bool {
	return v.channel.Connected()
}

// Banner returns the non-fatal connection problem to show inline, or ""
// when the channel is healthy.
func (v *View) Banner() string {
	v.mu.Lock()
	banner := v.banner
	v.mu.Unlock()
	if banner != "" {
		return banner
	}
	return v.channel.Err()
}

// Overlay exposes the floating-reaction set for rendering.
func (v *View) Overlay() *reactions.Overlay {
	return v.overlay
}
