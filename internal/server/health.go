package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/tandemflow/tandem"
	"github.com/tandemflow/tandem/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: app.Name,
		Version: app.Version,
		Status:  "healthy",
	})
}

func (s *Server) handleEngine(c *gin.Context) {
	runs := s.engine.ActiveRuns()
	c.JSON(http.StatusOK, api.RunListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}
