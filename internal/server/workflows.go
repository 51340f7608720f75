package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/pkg/api"
)

var (
	ErrInvalidJSON    = errors.New("invalid JSON request")
	ErrListWorkflows  = errors.New("failed to list workflows")
	ErrGetWorkflow    = errors.New("failed to get workflow")
	ErrSaveWorkflow   = errors.New("failed to save workflow")
	ErrDeleteWorkflow = errors.New("failed to delete workflow")
)

var invalidWorkflowIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

func (s *Server) listWorkflows(c *gin.Context) {
	digests, err := s.workflows.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrListWorkflows, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.WorkflowListResponse{
		Workflows: digests,
		Count:     len(digests),
	})
}

func (s *Server) saveWorkflow(c *gin.Context) {
	var wf api.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	wf.ID = sanitizeWorkflowID(wf.ID)
	if wf.ID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "Valid workflow ID is required",
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := wf.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := s.workflows.Put(c.Request.Context(), &wf); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrSaveWorkflow, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusCreated, api.WorkflowSavedResponse{
		WorkflowID: wf.ID,
	})
}

func (s *Server) getWorkflow(c *gin.Context) {
	workflowID := c.Param("workflowID")

	wf, err := s.workflows.Get(c.Request.Context(), workflowID)
	if err == nil {
		c.JSON(http.StatusOK, wf)
		return
	}

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
}

func (s *Server) updateWorkflow(c *gin.Context) {
	workflowID := c.Param("workflowID")

	var wf api.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	if wf.ID != workflowID {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "Workflow ID in URL does not match workflow ID in body",
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := wf.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
		return
	}

	if err := s.workflows.Put(c.Request.Context(), &wf); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrSaveWorkflow, err),
			Status: http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, api.WorkflowSavedResponse{
		WorkflowID: wf.ID,
	})
}

func (s *Server) deleteWorkflow(c *gin.Context) {
	workflowID := c.Param("workflowID")

	err := s.workflows.Delete(c.Request.Context(), workflowID)
	if err == nil {
		c.JSON(http.StatusOK, api.WorkflowSavedResponse{
			WorkflowID: workflowID,
		})
		return
	}

	if errors.Is(err, store.ErrWorkflowNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), workflowID),
			Status: http.StatusNotFound,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", ErrDeleteWorkflow, err),
		Status: http.StatusInternalServerError,
	})
}

func sanitizeWorkflowID(id string) string {
	id = strings.ToLower(id)
	sanitized := invalidWorkflowIDChars.ReplaceAllString(id, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return strings.Trim(sanitized, "-")
}
