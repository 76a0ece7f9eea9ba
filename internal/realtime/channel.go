// Package realtime implements the client side of the session channel:
// one websocket connection per viewed session, typed outbound commands,
// typed inbound event dispatch.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

// Viewer identifies the local participant. A zero UserID means the
// viewer is anonymous; anonymous viewers may react but cannot chat or
// register product clicks.
type Viewer struct {
	UserID   int64
	UserName string
}

// Anonymous reports whether the viewer has no identity.
func (v Viewer) Anonymous() bool {
	return v.UserID == 0 || v.UserName == ""
}

// Handlers are the inbound event observers. Any nil field means that
// event kind is ignored. Handlers are invoked from the read loop, one
// event at a time, in transport order.
type Handlers struct {
	OnMessage           func(models.ChatMessage)
	OnReaction          func(models.Reaction)
	OnReactionStats     func(models.ReactionStats)
	OnViewerCount       func(int)
	OnProductShowcased  func(productID string, product models.Product)
	OnShowcaseCleared   func()
	OnProductClickStats func(models.SessionConversionStats)
	OnTrendingProducts  func(models.TrendingProducts)
}

// Channel owns one websocket connection to the realtime server, scoped
// to a single session. It is a stateless relay: it retains no chat or
// stats data, only the connection and the handler cell. Reconnection is
// left to the owner; the channel never retries on its own.
type Channel struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	hmu      sync.RWMutex
	handlers Handlers

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	viewer    Viewer
	connected bool
	errMsg    string
	send      chan Envelope
	done      chan struct{}
}

// NewChannel creates a channel for the given websocket URL. The channel
// is idle until Connect.
func NewChannel(url string, logger *zap.Logger) *Channel {
	return &Channel{
		url:    url,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// SetHandlers replaces the inbound observers. The connection is not
// touched: handler identity changes are decoupled from connection
// lifecycle so re-registering callbacks never causes a reconnect.
func (c *Channel) SetHandlers(h Handlers) {
	c.hmu.Lock()
	c.handlers = h
	c.hmu.Unlock()
}

// Connect dials the realtime server and joins the given session. If the
// channel is already connected (e.g. the viewed session changed), the
// old connection is torn down first so observers never receive
// cross-session events. On transport failure the error message is
// observable via Err and the error is returned; there is no retry.
func (c *Channel) Connect(sessionID string, viewer Viewer) error {
	c.Disconnect()

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.errMsg = "failed to connect to chat server"
		c.mu.Unlock()
		c.logger.Warn("realtime dial failed", zap.String("url", c.url), zap.Error(err))
		return fmt.Errorf("dial realtime server: %w", err)
	}

	send := make(chan Envelope, sendBuffer)
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.sessionID = sessionID
	c.viewer = viewer
	c.connected = true
	c.errMsg = ""
	c.send = send
	c.done = done
	c.mu.Unlock()

	// Transport confirmed: announce membership before anything else.
	join := JoinPayload{SessionID: sessionID}
	if viewer.UserID != 0 {
		uid := viewer.UserID
		join.UserID = &uid
	}
	send <- envelope(CmdJoinSession, join)

	go c.writePump(conn, send, done)
	go c.readPump(conn)

	c.logger.Info("realtime channel connected",
		zap.String("session_id", sessionID), zap.Int64("user_id", viewer.UserID))
	return nil
}

// Disconnect emits a leave command for the current session and tears
// down the transport. Safe to call when already disconnected. Invoked on
// view unmount and on navigation away so the server can decrement viewer
// counts promptly instead of waiting for a liveness timeout.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return
	}
	if c.connected {
		if data, err := json.Marshal(c.sessionID); err == nil {
			select {
			case c.send <- Envelope{Event: CmdLeaveSession, Data: data}:
			default:
			}
		}
	}
	c.connected = false
	c.conn = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
}

// Connected reports the connection status, readable synchronously.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Err returns the last transport error message, or "" when healthy.
func (c *Channel) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// SessionID returns the session this channel is scoped to.
func (c *Channel) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// SendChatMessage emits a chat message. Returns false without any
// network call when disconnected, when the text is blank after trimming,
// or when the viewer has no identity. Fire-and-forget: true means the
// command left local preconditions, not that the server received it.
func (c *Channel) SendChatMessage(text string) bool {
	text = strings.TrimSpace(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || text == "" || c.viewer.Anonymous() {
		return false
	}
	return c.enqueueLocked(envelope(CmdSendMessage, MessagePayload{
		SessionID: c.sessionID,
		Message:   text,
		UserID:    c.viewer.UserID,
		UserName:  c.viewer.UserName,
	}))
}

// SendReaction emits a reaction. Anonymous viewers are allowed.
func (c *Channel) SendReaction(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	return c.enqueueLocked(envelope(CmdSendReaction, ReactionPayload{
		SessionID: c.sessionID,
		Type:      kind,
	}))
}

// SetShowcase highlights a product to all viewers. An empty productID
// clears the showcase (JSON null on the wire).
func (c *Channel) SetShowcase(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	p := ShowcasePayload{SessionID: c.sessionID}
	if productID != "" {
		p.ProductID = &productID
	}
	return c.enqueueLocked(envelope(CmdShowcaseProduct, p))
}

// SendProductClick records a product click. Requires viewer identity.
func (c *Channel) SendProductClick(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.viewer.UserID == 0 {
		return false
	}
	return c.enqueueLocked(envelope(CmdTrackProductClick, ClickPayload{
		SessionID: c.sessionID,
		ProductID: productID,
		UserID:    c.viewer.UserID,
	}))
}

func (c *Channel) enqueueLocked(env Envelope) bool {
	select {
	case c.send <- env:
	default:
		// buffer full, drop; delivery is not confirmed anyway
		c.logger.Debug("send buffer full, dropping command", zap.String("event", env.Event))
	}
	return true
}

func envelope(event string, payload interface{}) Envelope {
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}

func (c *Channel) writePump(conn *websocket.Conn, send chan Envelope, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case env := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			// Flush queued commands (the leave on disconnect) before closing.
			for {
				select {
				case env := <-send:
					_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = conn.WriteJSON(env)
				default:
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Channel) readPump(conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(65536)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			c.markLost(conn, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(env)
	}
}

// markLost flags the connection as gone, unless this pump belongs to an
// already-replaced connection or the close was deliberate.
func (c *Channel) markLost(conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return
	}
	c.connected = false
	c.conn = nil
	c.errMsg = "connection to chat server lost"
	c.logger.Warn("realtime channel closed", zap.String("session_id", c.sessionID), zap.Error(err))
}

// dispatch routes one inbound event to its registered observer.
// Unregistered kinds are ignored; malformed payloads are logged and
// swallowed so a bad broadcast can never crash the view.
func (c *Channel) dispatch(env Envelope) {
	c.hmu.RLock()
	h := c.handlers
	c.hmu.RUnlock()

	switch env.Event {
	case EvtNewMessage:
		if h.OnMessage == nil {
			return
		}
		var m models.ChatMessage
		if err := json.Unmarshal(env.Data, &m); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnMessage(m)
	case EvtNewReaction:
		if h.OnReaction == nil {
			return
		}
		var r models.Reaction
		if err := json.Unmarshal(env.Data, &r); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnReaction(r)
	case EvtReactionStats:
		if h.OnReactionStats == nil {
			return
		}
		var s models.ReactionStats
		if err := json.Unmarshal(env.Data, &s); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnReactionStats(s)
	case EvtViewerCount:
		if h.OnViewerCount == nil {
			return
		}
		var n int
		if err := json.Unmarshal(env.Data, &n); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnViewerCount(n)
	case EvtProductShowcased:
		if h.OnProductShowcased == nil {
			return
		}
		var p ShowcasedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnProductShowcased(p.ProductID, p.Product)
	case EvtShowcaseCleared:
		if h.OnShowcaseCleared != nil {
			h.OnShowcaseCleared()
		}
	case EvtProductClickStats:
		if h.OnProductClickStats == nil {
			return
		}
		var s models.SessionConversionStats
		if err := json.Unmarshal(env.Data, &s); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnProductClickStats(s)
	case EvtTrendingProducts:
		if h.OnTrendingProducts == nil {
			return
		}
		var tr models.TrendingProducts
		if err := json.Unmarshal(env.Data, &tr); err != nil {
			c.warnPayload(env.Event, err)
			return
		}
		h.OnTrendingProducts(tr)
	default:
		// unknown event kind, not an error
	}
}

func (c *Channel) warnPayload(event string, err error) {
	c.logger.Warn("malformed event payload", zap.String("event", event), zap.Error(err))
}
