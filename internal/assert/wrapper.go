package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/internal/config"
	"github.com/tandemflow/tandem/pkg/api"
)

type (
	// Wrapper wraps testify assertions with Tandem-specific helpers
	Wrapper struct {
		*testing.T
		*assert.Assertions
		Require *assert.Assertions
	}
)

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus Tandem-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// WorkflowValid asserts that a workflow definition is valid
func (w *Wrapper) WorkflowValid(wf *api.Workflow) {
	w.Helper()
	w.NoError(wf.Validate())
	w.NotEmpty(wf.ID)
	w.NotEmpty(wf.Name)
	w.NotEmpty(wf.Steps)
}

// WorkflowInvalid asserts that a workflow is invalid and returns the
// validation error
func (w *Wrapper) WorkflowInvalid(
	wf *api.Workflow, expectedErrorContains string,
) error {
	w.Helper()
	err := wf.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// StepValid asserts that a step and its request template are valid
func (w *Wrapper) StepValid(s *api.Step) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotNil(s.Request)
	if s.Request == nil {
		return
	}

	switch s.Request.Protocol {
	case api.ProtocolHTTP:
		w.NotEmpty(s.Request.URL)
	case api.ProtocolGraphQL:
		w.NotNil(s.Request.GraphQL, "GraphQL steps should have GraphQLConfig")
		if s.Request.GraphQL != nil {
			w.NotEmpty(s.Request.GraphQL.Query)
		}
	case api.ProtocolGRPC:
		w.NotNil(s.Request.GRPC, "gRPC steps should have GRPCConfig")
		if s.Request.GRPC != nil {
			w.NotEmpty(s.Request.GRPC.Target)
			w.NotEmpty(s.Request.GRPC.Method)
		}
	}
}

// StepInvalid asserts that a step is invalid and returns the validation error
func (w *Wrapper) StepInvalid(
	s *api.Step, expectedErrorContains string,
) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// RunSucceeded asserts that a run completed with every step passing
func (w *Wrapper) RunSucceeded(res *api.WorkflowResult, stepCount int) {
	w.Helper()
	w.True(res.Success)
	w.Empty(res.Error)
	w.Len(res.Steps, stepCount)
	for _, step := range res.Steps {
		w.True(step.Success, "step %d should have succeeded", step.Order)
	}
}

// RunFailed asserts that a run failed, optionally checking the halting
// error message
func (w *Wrapper) RunFailed(res *api.WorkflowResult, contains string) {
	w.Helper()
	w.False(res.Success)
	if contains != "" {
		w.Contains(res.Error, contains)
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.StepTimeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
