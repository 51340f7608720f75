package api

import "time"

type (
	// Envelope is the protocol-neutral normalized result of dispatching
	// one request. A status code of 0 means the protocol has no status
	// concept (e.g. gRPC OK)
	Envelope struct {
		StatusCode int               `json:"status_code"`
		Headers    map[string]string `json:"headers,omitempty"`
		Body       any               `json:"body,omitempty"`
		Error      string            `json:"error,omitempty"`
		Success    bool              `json:"success"`
	}

	// StepResult records one executed step: the request actually sent,
	// the response envelope, timing, and assertion verdicts
	StepResult struct {
		Order      int                `json:"order"`
		Name       string             `json:"name,omitempty"`
		Request    *Request           `json:"request"`
		Response   *Envelope          `json:"response"`
		DurationMs int64              `json:"duration_ms"`
		Success    bool               `json:"success"`
		Assertions []*AssertionResult `json:"assertions,omitempty"`
	}

	// WorkflowResult aggregates a whole run. Success is the AND of all
	// executed steps' success flags: a failure permitted by
	// continue_on_failure lets the run proceed but still forces the
	// aggregate to false. Error names the step that halted execution
	WorkflowResult struct {
		WorkflowID   string        `json:"workflow_id"`
		WorkflowName string        `json:"workflow_name"`
		RunID        string        `json:"run_id"`
		Success      bool          `json:"success"`
		Steps        []*StepResult `json:"steps"`
		DurationMs   int64         `json:"duration_ms"`
		Error        string        `json:"error,omitempty"`
	}

	// HistoryRecord is the durable trace of one dispatched step,
	// emitted best-effort to the history sink
	HistoryRecord struct {
		Source     string    `json:"source"`
		WorkflowID string    `json:"workflow_id"`
		RunID      string    `json:"run_id"`
		StepOrder  int       `json:"step_order"`
		Request    *Request  `json:"request"`
		Response   *Envelope `json:"response"`
		DurationMs int64     `json:"duration_ms"`
		Success    bool      `json:"success"`
		RecordedAt time.Time `json:"recorded_at"`
	}

	// ExecutionState is a read-only snapshot of a run in progress
	ExecutionState struct {
		RunID            string        `json:"run_id"`
		WorkflowID       string        `json:"workflow_id"`
		CurrentStepIndex int           `json:"current_step_index"`
		Results          []*StepResult `json:"results"`
		ContextSteps     []int         `json:"context_steps"`
	}
)

// HistorySourceWorkflow tags history records emitted by the workflow
// engine, as opposed to ad hoc invocations recorded by other surfaces
const HistorySourceWorkflow = "workflow"

// FailedEnvelope builds an unsuccessful envelope from an error message
func FailedEnvelope(msg string) *Envelope {
	return &Envelope{
		Success: false,
		Error:   msg,
	}
}
