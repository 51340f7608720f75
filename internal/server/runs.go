package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/pkg/api"
	"github.com/tandemflow/tandem/pkg/log"
)

var (
	ErrRunWorkflow = errors.New("failed to run workflow")
	ErrRunNotFound = errors.New("run not found")
	ErrGetHistory  = errors.New("failed to get history")
)

const defaultHistoryCount = 50

func (s *Server) runWorkflow(c *gin.Context) {
	workflowID := c.Param("workflowID")

	var req api.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
				Status: http.StatusBadRequest,
			})
			return
		}
	}

	wf, err := s.workflows.Get(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, store.ErrWorkflowNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{
				Error:  fmt.Sprintf("%s: %s", err.Error(), workflowID),
				Status: http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrGetWorkflow, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	result, err := s.engine.Run(c.Request.Context(), wf, req.Identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrRunWorkflow, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(c.Request.Context(), result); err != nil {
			slog.Error("Failed to archive run result",
				log.WorkflowID(result.WorkflowID),
				log.RunID(result.RunID),
				log.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) listRuns(c *gin.Context) {
	runs := s.engine.ActiveRuns()
	c.JSON(http.StatusOK, api.RunListResponse{
		Runs:  runs,
		Count: len(runs),
	})
}

func (s *Server) getRun(c *gin.Context) {
	runID := c.Param("runID")

	state, ok := s.engine.ExecutionState(runID)
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrRunNotFound, runID),
			Status: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, state)
}

func (s *Server) getHistory(c *gin.Context) {
	identity := c.Param("identity")

	count := int64(defaultHistoryCount)
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  fmt.Sprintf("invalid count: %q", raw),
				Status: http.StatusBadRequest,
			})
			return
		}
		count = parsed
	}

	records, err := s.history.Recent(c.Request.Context(), identity, count)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrGetHistory, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.HistoryResponse{
		Records: records,
		Count:   len(records),
	})
}
