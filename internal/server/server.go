package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/tandemflow/tandem/internal/engine"
	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/internal/util"
)

type (
	// Server implements the HTTP API server for the orchestrator
	Server struct {
		engine    *engine.Engine
		workflows *store.WorkflowStore
		history   *store.HistoryStore
		archiver  *store.Archiver
		sockets   util.Set[*Client]
		mu        sync.Mutex
	}

	// Stores carries the persistence collaborators the server consumes.
	// Archiver may be nil when no bucket is configured
	Stores struct {
		Workflows *store.WorkflowStore
		History   *store.HistoryStore
		Archiver  *store.Archiver
	}
)

// NewServer creates a new HTTP API server
func NewServer(eng *engine.Engine, st Stores) *Server {
	return &Server{
		engine:    eng,
		workflows: st.Workflows,
		history:   st.History,
		archiver:  st.Archiver,
		sockets:   util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Engine endpoints
	eng := router.Group("/engine")
	{
		eng.GET("", s.handleEngine)
		eng.GET("/", s.handleEngine)

		// Workflow definition endpoints
		eng.GET("/workflow", s.listWorkflows)
		eng.POST("/workflow", s.saveWorkflow)
		eng.GET("/workflow/:workflowID", s.getWorkflow)
		eng.PUT("/workflow/:workflowID", s.updateWorkflow)
		eng.DELETE("/workflow/:workflowID", s.deleteWorkflow)

		// Run invocation and live snapshots
		eng.POST("/workflow/:workflowID/run", s.runWorkflow)
		eng.GET("/run", s.listRuns)
		eng.GET("/run/:runID", s.getRun)

		// Step history
		eng.GET("/history/:identity", s.getHistory)

		// WebSocket
		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
