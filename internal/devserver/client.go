package devserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
	"github.com/sharat789/steam-bazaar-fev2/internal/realtime"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dev server, all origins welcome
	},
}

// client is a single websocket connection. A connection joins at most
// one session at a time; a new join-session implicitly leaves the
// previous room.
type client struct {
	id        string
	sessionID string
	userID    int64
	srv       *Server
	conn      *websocket.Conn
	send      chan realtime.Envelope
	logger    *zap.Logger
}

// serveWs handles the websocket upgrade and runs the client loop.
func (s *Server) serveWs(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	cl := &client{
		id:     uuid.NewString(),
		srv:    s,
		conn:   conn,
		send:   make(chan realtime.Envelope, 256),
		logger: s.logger,
	}
	go cl.writePump()
	cl.readPump()
}

func (c *client) readPump() {
	defer func() {
		if c.sessionID != "" {
			c.srv.hub.unregister(c, c.sessionID)
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg realtime.Envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(msg)
	}
}

func (c *client) handle(msg realtime.Envelope) {
	switch msg.Event {
	case realtime.CmdJoinSession:
		var p realtime.JoinPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.SessionID == "" {
			return
		}
		if c.sessionID != "" {
			c.srv.hub.unregister(c, c.sessionID)
		}
		c.sessionID = p.SessionID
		if p.UserID != nil {
			c.userID = *p.UserID
		} else {
			c.userID = 0
		}
		c.srv.stats.SawViewer(p.SessionID, c.id)
		c.srv.hub.register(c, p.SessionID)

	case realtime.CmdLeaveSession:
		var sessionID string
		if err := json.Unmarshal(msg.Data, &sessionID); err != nil || sessionID == "" {
			return
		}
		if c.sessionID == sessionID {
			c.srv.hub.unregister(c, sessionID)
			c.sessionID = ""
		}

	case realtime.CmdSendMessage:
		var p realtime.MessagePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return
		}
		if strings.TrimSpace(p.Message) == "" || p.SessionID == "" {
			return
		}
		out := models.ChatMessage{
			ID:        uuid.NewString(),
			Message:   p.Message,
			UserID:    p.UserID,
			UserName:  p.UserName,
			SessionID: p.SessionID,
			CreatedAt: time.Now(),
		}
		// Publish-only: the subscriber callback broadcasts once, so no
		// instance double-delivers to its local clients.
		c.srv.hub.publishOnly(p.SessionID, realtime.EvtNewMessage, out)

	case realtime.CmdSendReaction:
		var p realtime.ReactionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.SessionID == "" || p.Type == "" {
			return
		}
		reaction := models.Reaction{Type: p.Type, Timestamp: time.Now(), UserID: c.userID}
		c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtNewReaction, reaction)
		stats := c.srv.stats.AddReaction(p.SessionID, p.Type)
		c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtReactionStats, stats)

	case realtime.CmdShowcaseProduct:
		var p realtime.ShowcasePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.SessionID == "" {
			return
		}
		product, err := c.srv.store.SetActiveProduct(p.SessionID, p.ProductID)
		if err != nil {
			c.logger.Warn("showcase rejected", zap.String("session_id", p.SessionID), zap.Error(err))
			return
		}
		if p.ProductID == nil {
			c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtShowcaseCleared,
				realtime.ClearedPayload{SessionID: p.SessionID})
			return
		}
		c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtProductShowcased,
			realtime.ShowcasedPayload{SessionID: p.SessionID, ProductID: *p.ProductID, Product: *product})

	case realtime.CmdTrackProductClick:
		var p realtime.ClickPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.SessionID == "" || p.ProductID == "" {
			return
		}
		conv, trending := c.srv.stats.AddClick(p.SessionID, p.ProductID, p.UserID, c.srv.productName)
		c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtProductClickStats, conv)
		c.srv.hub.broadcastAndPublish(p.SessionID, realtime.EvtTrendingProducts, trending)

	default:
		// ignore
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
