package api

type (
	// ErrorResponse is the uniform error payload for the HTTP API
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// WorkflowListResponse wraps workflow digests for list endpoints
	WorkflowListResponse struct {
		Workflows []*WorkflowDigest `json:"workflows"`
		Count     int               `json:"count"`
	}

	// WorkflowSavedResponse acknowledges a stored definition
	WorkflowSavedResponse struct {
		WorkflowID string `json:"workflow_id"`
	}

	// RunRequest carries optional parameters for a run invocation
	RunRequest struct {
		Identity string `json:"identity,omitempty"`
	}

	// RunListResponse wraps live execution snapshots
	RunListResponse struct {
		Runs  []*ExecutionState `json:"runs"`
		Count int               `json:"count"`
	}

	// HistoryResponse wraps recent history records for an identity
	HistoryResponse struct {
		Records []*HistoryRecord `json:"records"`
		Count   int              `json:"count"`
	}

	// HealthResponse reports service liveness
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}

	// StepEvent is the WebSocket frame broadcast as each step of a live
	// run completes
	StepEvent struct {
		Type      string      `json:"type"`
		RunID     string      `json:"run_id"`
		Step      *StepResult `json:"step"`
		Timestamp int64       `json:"timestamp"`
	}
)

// EventTypeStepResult identifies step completion frames on the
// WebSocket stream
const EventTypeStepResult = "step_result"
