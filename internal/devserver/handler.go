package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/middleware"
	"github.com/sharat789/steam-bazaar-fev2/internal/models"
	"github.com/sharat789/steam-bazaar-fev2/pkg/response"
)

// Server bundles the in-memory store, the stat tracker, and the
// websocket hub behind one gin router.
type Server struct {
	store  *Store
	stats  *Stats
	hub    *Hub
	logger *zap.Logger
}

// New creates a dev server with a seeded catalog. pub and sub may be
// nil for single-instance use.
func New(logger *zap.Logger, pub Publisher, sub Subscriber) *Server {
	store := NewStore()
	store.Seed()
	return &Server{
		store:  store,
		stats:  NewStats(),
		hub:    NewHub(logger, pub, sub),
		logger: logger,
	}
}

// Router builds the HTTP surface: the websocket endpoint plus the REST
// subset the client packages consume.
func (s *Server) Router(corsOrigins string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS(corsOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ws", s.serveWs)

	r.GET("/sessions", s.listSessions)
	r.POST("/sessions", s.createSession)
	r.GET("/sessions/:id", s.getSession)
	r.DELETE("/sessions/:id", s.deleteSession)
	r.PATCH("/sessions/:id/status", s.updateStatus)
	r.POST("/sessions/:id/start-stream", s.startStream)
	r.POST("/sessions/:id/end-stream", s.endStream)
	r.GET("/sessions/:id/stream-token", s.streamToken)

	r.GET("/products", s.listProducts)
	r.POST("/products", s.createProduct)
	r.PUT("/products/:id", s.updateProduct)
	r.DELETE("/products/:id", s.deleteProduct)

	r.GET("/analytics/creator/:id", s.creatorAnalytics)
	return r
}

func (s *Server) productName(productID string) string {
	if p, err := s.store.GetProduct(productID); err == nil {
		return p.Name
	}
	return productID
}

func (s *Server) listSessions(c *gin.Context) {
	response.OK(c, s.store.ListSessions(c.Query("creatorId")))
}

func (s *Server) getSession(c *gin.Context) {
	sess, err := s.store.GetSession(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, sess)
}

func (s *Server) createSession(c *gin.Context) {
	var in struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Tags        []string `json:"tags"`
		ProductIDs  []string `json:"productIds"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Title == "" {
		response.BadRequest(c, "title is required")
		return
	}
	sess := s.store.CreateSession(in.Title, in.Description, in.Category, in.Tags, in.ProductIDs)
	response.Created(c, sess)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.store.DeleteSession(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.NoContent(c)
}

func (s *Server) updateStatus(c *gin.Context) {
	var in struct {
		Status models.SessionStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		response.BadRequest(c, "status is required")
		return
	}
	switch in.Status {
	case models.StatusScheduled, models.StatusLive, models.StatusPaused, models.StatusEnded:
	default:
		response.BadRequest(c, "unknown status")
		return
	}
	sess, err := s.store.SetStatus(c.Param("id"), in.Status)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, sess)
}

func (s *Server) startStream(c *gin.Context) {
	id := c.Param("id")
	sess, err := s.store.SetStatus(id, models.StatusLive)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, s.mintToken(sess.ID, "publisher"))
}

func (s *Server) endStream(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.SetStatus(id, models.StatusEnded); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	s.hub.broadcastAndPublish(id, "session-ended", gin.H{"sessionId": id})
	response.NoContent(c)
}

func (s *Server) streamToken(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetSession(id); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.OK(c, s.mintToken(id, "subscriber"))
}

// mintToken fabricates a stream token. There is no real video
// transport behind the dev server; the shape just has to match.
func (s *Server) mintToken(sessionID, role string) models.StreamToken {
	return models.StreamToken{
		SessionID:   sessionID,
		ChannelName: "session-" + sessionID,
		Token:       uuid.NewString(),
		UID:         1,
		AppID:       "dev",
		ExpiresAt:   time.Now().Add(time.Hour),
		Role:        role,
	}
}

func (s *Server) listProducts(c *gin.Context) {
	response.OK(c, s.store.ListProducts())
}

func (s *Server) createProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil || p.Name == "" {
		response.BadRequest(c, "name is required")
		return
	}
	p.ID = ""
	response.Created(c, s.store.PutProduct(p))
}

func (s *Server) updateProduct(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.store.GetProduct(id); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid product body")
		return
	}
	p.ID = id
	response.OK(c, s.store.PutProduct(p))
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.store.DeleteProduct(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.NoContent(c)
}

func (s *Server) creatorAnalytics(c *gin.Context) {
	creatorID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid creator id")
		return
	}
	sessions := s.store.ListSessions(c.Param("id"))

	var summary models.SessionSummary
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		summary.Total++
		ids = append(ids, sess.ID)
		switch sess.Status {
		case models.StatusLive:
			summary.ByStatus.Live++
		case models.StatusEnded:
			summary.ByStatus.Ended++
		case models.StatusScheduled:
			summary.ByStatus.Scheduled++
		case models.StatusPaused:
			summary.ByStatus.Paused++
		}
	}
	viewers, reactions, products := s.stats.Rollup(ids)
	response.OK(c, models.GlobalAnalytics{
		CreatorID: creatorID,
		Sessions:  summary,
		Viewers:   viewers,
		Reactions: reactions,
		Products:  products,
	})
}
