// Package api exposes a read-only HTTP surface over the engine's
// published tick snapshots (component 10's "UI refresh push"), plus a
// websocket endpoint that streams them live. Grounded on the teacher's
// internal/api/server.go (gin wiring, CORS middleware) repointed from
// backtest data-file browsing to live trade-configuration snapshots.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"tradecore/internal/currency"
	"tradecore/internal/logger"
	"tradecore/internal/stats"
	"tradecore/internal/store"
	ws "tradecore/internal/websocket"
)

// Server serves snapshot state over HTTP and websocket.
type Server struct {
	router *gin.Engine
	hub    *ws.Hub
	log    logger.Logger
	store  *store.Store

	mu      sync.RWMutex
	latest  map[string]stats.Snapshot
	started time.Time
}

// NewServer wires a gin router over pub's snapshot stream. st is used by
// the read-only reconciliation endpoint and may be nil in tests that
// don't exercise it. NewServer itself starts the hub's broadcast loop and
// the subscription watchers; Run only starts the HTTP listener.
func NewServer(pub *stats.Publisher, st *store.Store, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware())

	hub := ws.NewHub(log)

	s := &Server{
		router:  router,
		hub:     hub,
		log:     log,
		store:   st,
		latest:  make(map[string]stats.Snapshot),
		started: time.Now(),
	}

	go hub.Run()
	sub := pub.Subscribe()
	go s.watch(sub)
	go hub.Watch(pub.Subscribe())

	s.setupRoutes()
	return s
}

// watch keeps the latest-snapshot index current for the HTTP
// endpoints, independently of the websocket fan-out.
func (s *Server) watch(sub chan stats.Snapshot) {
	for snap := range sub {
		s.mu.Lock()
		s.latest[snap.ConfigurationName] = snap
		s.mu.Unlock()
	}
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/configurations", s.listConfigurations)
		v1.GET("/configurations/:name", s.getConfiguration)
		v1.GET("/positions/open/:exchange", s.getOpenPositions)
	}
	s.router.GET("/ws", s.handleWebSocket)
}

// Run starts the HTTP server on addr (e.g. ":8080").
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	s.mu.RLock()
	active := len(s.latest)
	s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"status":               "healthy",
		"uptime_seconds":       time.Since(s.started).Seconds(),
		"active_configurations": active,
	})
}

func (s *Server) listConfigurations(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshots := make([]stats.Snapshot, 0, len(s.latest))
	for _, snap := range s.latest {
		snapshots = append(snapshots, snap)
	}
	c.JSON(http.StatusOK, gin.H{"configurations": snapshots})
}

func (s *Server) getConfiguration(c *gin.Context) {
	name := c.Param("name")
	s.mu.RLock()
	snap, ok := s.latest[name]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown configuration " + name})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getOpenPositions reconciles open positions for one exchange via
// store.BrowseOpenPositionsSummary, the stats/reconciliation query over
// the four core tables.
func (s *Server) getOpenPositions(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not configured"})
		return
	}
	ex := currency.ParseExchange(c.Param("exchange"))
	positions, err := s.store.BrowseOpenPositionsSummary(c.Request.Context(), ex)
	if err != nil {
		s.log.Error("browse open positions summary failed", "exchange", ex, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load open positions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": ex, "positions": positions})
}

var upgrader = gorillaws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(s.hub, conn)
	s.hub.Register <- client
	go client.WritePump()
	go client.ReadPump()
}
