package server_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/pkg/api"
)

func TestSaveAndGetWorkflow(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	rec := h.request(
		t, http.MethodPost, "/engine/workflow", sampleWorkflow(),
	)
	assert.Equal(t, http.StatusCreated, rec.Code)

	saved := decode[api.WorkflowSavedResponse](t, rec)
	assert.Equal(t, "user-journey", saved.WorkflowID)

	rec = h.request(
		t, http.MethodGet, "/engine/workflow/user-journey", nil,
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	wf := decode[api.Workflow](t, rec)
	assert.Equal(t, "User Journey", wf.Name)
	assert.Len(t, wf.Steps, 1)
}

func TestSaveWorkflowSanitizesID(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	wf := sampleWorkflow()
	wf.ID = "User Journey #1!"
	rec := h.request(t, http.MethodPost, "/engine/workflow", wf)
	assert.Equal(t, http.StatusCreated, rec.Code)

	saved := decode[api.WorkflowSavedResponse](t, rec)
	assert.Equal(t, "user-journey-1", saved.WorkflowID)
}

func TestSaveWorkflowRejectsInvalid(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	wf := sampleWorkflow()
	wf.Steps = nil
	rec := h.request(t, http.MethodPost, "/engine/workflow", wf)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[api.ErrorResponse](t, rec)
	assert.Contains(t, resp.Error, "no steps")
}

func TestSaveWorkflowRejectsBadJSON(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	rec := h.request(t, http.MethodPost, "/engine/workflow", "not a workflow")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkflows(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	rec := h.request(t, http.MethodGet, "/engine/workflow", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[api.WorkflowListResponse](t, rec).Count)

	h.request(t, http.MethodPost, "/engine/workflow", sampleWorkflow())

	rec = h.request(t, http.MethodGet, "/engine/workflow", nil)
	resp := decode[api.WorkflowListResponse](t, rec)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "user-journey", resp.Workflows[0].ID)
	assert.Equal(t, 1, resp.Workflows[0].Steps)
}

func TestGetWorkflowNotFound(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	rec := h.request(t, http.MethodGet, "/engine/workflow/absent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateWorkflow(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})
	h.request(t, http.MethodPost, "/engine/workflow", sampleWorkflow())

	wf := sampleWorkflow()
	wf.Name = "Renamed"
	rec := h.request(
		t, http.MethodPut, "/engine/workflow/user-journey", wf,
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.request(
		t, http.MethodGet, "/engine/workflow/user-journey", nil,
	)
	assert.Equal(t, "Renamed", decode[api.Workflow](t, rec).Name)
}

func TestUpdateWorkflowIDMismatch(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})

	rec := h.request(
		t, http.MethodPut, "/engine/workflow/other-id", sampleWorkflow(),
	)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteWorkflow(t *testing.T) {
	h := newTestHarness(t, &fakeExecutor{})
	h.request(t, http.MethodPost, "/engine/workflow", sampleWorkflow())

	rec := h.request(
		t, http.MethodDelete, "/engine/workflow/user-journey", nil,
	)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.request(
		t, http.MethodDelete, "/engine/workflow/user-journey", nil,
	)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
