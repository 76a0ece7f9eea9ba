package devserver

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/realtime"
)

// Publisher publishes session events to Redis for cross-instance fan-out.
type Publisher interface {
	PublishSessionEvent(sessionID, event string, payload []byte) error
}

// Subscriber subscribes to a session's Redis channel and invokes the
// handler for each incoming event.
type Subscriber interface {
	SubscribeSession(sessionID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains sessionID -> set of connections and broadcasts events.
// Redis pub/sub is optional; without it the hub is single-instance.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*client
	subs     map[string]func()
	logger   *zap.Logger
	pub      Publisher
	sub      Subscriber
}

// NewHub creates a websocket hub. pub and sub may be nil.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		sessions: make(map[string]map[string]*client),
		subs:     make(map[string]func()),
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
}

// register adds a client to a session room and announces the new viewer
// count. The first client in a room starts the Redis subscription.
func (h *Hub) register(c *client, sessionID string) {
	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]*client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeSession(sessionID, func(event string, payload []byte) {
				h.broadcast(sessionID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[sessionID] = cancel
			}
		}
	}
	h.sessions[sessionID][c.id] = c
	count := len(h.sessions[sessionID])
	h.mu.Unlock()

	h.broadcastAndPublish(sessionID, realtime.EvtViewerCount, count)
	h.logger.Debug("client joined session",
		zap.String("client_id", c.id), zap.String("session_id", sessionID))
}

// unregister removes a client from a session room. The last client out
// cancels the Redis subscription.
func (h *Hub) unregister(c *client, sessionID string) {
	h.mu.Lock()
	count := -1
	if room, ok := h.sessions[sessionID]; ok {
		if _, member := room[c.id]; member {
			delete(room, c.id)
			count = len(room)
			if count == 0 {
				delete(h.sessions, sessionID)
				if cancel, ok := h.subs[sessionID]; ok {
					cancel()
					delete(h.subs, sessionID)
				}
			}
		}
	}
	h.mu.Unlock()

	if count > 0 {
		h.broadcastAndPublish(sessionID, realtime.EvtViewerCount, count)
	}
	h.logger.Debug("client left session",
		zap.String("client_id", c.id), zap.String("session_id", sessionID))
}

// broadcast delivers an event to all local clients in a session.
func (h *Hub) broadcast(sessionID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := realtime.Envelope{Event: event, Data: data}

	h.mu.RLock()
	room := make([]*client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		room = append(room, c)
	}
	h.mu.RUnlock()

	for _, c := range room {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// broadcastAndPublish delivers locally and publishes to Redis for other
// instances.
func (h *Hub) broadcastAndPublish(sessionID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcast(sessionID, event, json.RawMessage(data))
	if h.pub != nil {
		_ = h.pub.PublishSessionEvent(sessionID, event, data)
	}
}

// publishOnly publishes to Redis without a local broadcast; the Redis
// subscriber callback then delivers once to every instance including
// this one. Used for chat so local clients never see duplicates. Falls
// back to a local broadcast when Redis is absent.
func (h *Hub) publishOnly(sessionID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.pub != nil {
		_ = h.pub.PublishSessionEvent(sessionID, event, data)
		return
	}
	h.broadcast(sessionID, event, json.RawMessage(data))
}

// ViewerCount returns the number of connected clients in a session.
func (h *Hub) ViewerCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
