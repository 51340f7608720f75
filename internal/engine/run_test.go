package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/internal/engine"
	"github.com/tandemflow/tandem/internal/executor"
	"github.com/tandemflow/tandem/pkg/api"
)

type (
	fakeExecutor struct {
		eng     *engine.Engine
		active  []int
		calls   []*api.Request
		creds   []*api.Credentials
		respond func(req *api.Request) (*api.Envelope, error)
	}

	fakeHistory struct {
		records []*api.HistoryRecord
		err     error
	}

	fakeCredentials struct {
		bundles map[string]*api.Credentials
		err     error
	}
)

func (f *fakeExecutor) Execute(
	_ context.Context, req *api.Request, creds *api.Credentials,
) (*api.Envelope, error) {
	f.calls = append(f.calls, req)
	f.creds = append(f.creds, creds)
	if f.eng != nil {
		f.active = append(f.active, len(f.eng.ActiveRuns()))
	}
	if f.respond != nil {
		return f.respond(req)
	}
	return &api.Envelope{StatusCode: 200, Success: true}, nil
}

func (f *fakeHistory) Record(
	_ context.Context, _ string, rec *api.HistoryRecord,
) error {
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeCredentials) Find(
	_ context.Context, specID, _ string,
) (*api.Credentials, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bundles[specID], nil
}

func httpStep(order int, url string) *api.Step {
	return &api.Step{
		Order: order,
		Request: &api.Request{
			Protocol: api.ProtocolHTTP,
			Method:   "GET",
			URL:      url,
		},
	}
}

func testWorkflow(steps ...*api.Step) *api.Workflow {
	return &api.Workflow{
		ID:    "test-workflow",
		Name:  "Test Workflow",
		Steps: steps,
	}
}

func newTestEngine(
	t *testing.T, exec *fakeExecutor, deps engine.Dependencies,
) *engine.Engine {
	t.Helper()
	deps.Executors = executor.Registry{api.ProtocolHTTP: exec}
	eng, err := engine.New(deps)
	assert.NoError(t, err)
	exec.eng = eng
	return eng
}

func TestRunAllStepsSucceed(t *testing.T) {
	exec := &fakeExecutor{
		respond: func(req *api.Request) (*api.Envelope, error) {
			if req.URL == "https://api.example.com/login" {
				return &api.Envelope{
					StatusCode: 200,
					Body:       map[string]any{"id": float64(123)},
					Success:    true,
				}, nil
			}
			return &api.Envelope{StatusCode: 200, Success: true}, nil
		},
	}
	eng := newTestEngine(t, exec, engine.Dependencies{})

	step2 := httpStep(2, "https://api.example.com/users/{{userId}}")
	step2.Mappings = []*api.VariableMapping{{
		SourceStep:     1,
		SourcePath:     "id",
		TargetVariable: "userId",
	}}

	// Steps given out of order are executed by ascending order
	wf := testWorkflow(step2, httpStep(1, "https://api.example.com/login"))

	result, err := eng.Run(context.Background(), wf, "tester")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, 1, result.Steps[0].Order)
	assert.Equal(t, 2, result.Steps[1].Order)
	assert.NotEmpty(t, result.RunID)

	assert.Len(t, exec.calls, 2)
	assert.Equal(t, "https://api.example.com/users/123", exec.calls[1].URL)
}

func TestRunHaltsOnFailure(t *testing.T) {
	exec := &fakeExecutor{
		respond: func(req *api.Request) (*api.Envelope, error) {
			if req.URL == "https://api.example.com/two" {
				return &api.Envelope{
					StatusCode: 500,
					Error:      "HTTP 500",
					Success:    false,
				}, nil
			}
			return &api.Envelope{StatusCode: 200, Success: true}, nil
		},
	}
	eng := newTestEngine(t, exec, engine.Dependencies{})

	wf := testWorkflow(
		httpStep(1, "https://api.example.com/one"),
		httpStep(2, "https://api.example.com/two"),
		httpStep(3, "https://api.example.com/three"),
	)

	result, err := eng.Run(context.Background(), wf, "")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "step 2 failed: HTTP 500", result.Error)
	assert.Len(t, result.Steps, 2)
	assert.Len(t, exec.calls, 2)
}

func TestRunContinueOnFailure(t *testing.T) {
	exec := &fakeExecutor{
		respond: func(req *api.Request) (*api.Envelope, error) {
			if req.URL == "https://api.example.com/flaky" {
				return api.FailedEnvelope("connection refused"), nil
			}
			return &api.Envelope{StatusCode: 200, Success: true}, nil
		},
	}
	eng := newTestEngine(t, exec, engine.Dependencies{})

	flaky := httpStep(2, "https://api.example.com/flaky")
	flaky.ContinueOnFailure = true

	wf := testWorkflow(
		httpStep(1, "https://api.example.com/one"),
		flaky,
		httpStep(3, "https://api.example.com/three"),
	)

	result, err := eng.Run(context.Background(), wf, "")
	assert.NoError(t, err)

	// All steps ran, but one failure still fails the aggregate
	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Len(t, result.Steps, 3)
	assert.False(t, result.Steps[1].Success)
	assert.True(t, result.Steps[2].Success)
}

func TestRunUnknownProtocolExecutor(t *testing.T) {
	exec := &fakeExecutor{}
	eng := newTestEngine(t, exec, engine.Dependencies{})

	step := &api.Step{
		Order: 1,
		Request: &api.Request{
			Protocol: api.ProtocolGRPC,
			GRPC: &api.GRPCConfig{
				Target: "localhost:50051",
				Method: "users.UserService/GetUser",
			},
		},
	}

	result, err := eng.Run(context.Background(), testWorkflow(step), "")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Len(t, result.Steps, 1)
	assert.Contains(t, result.Steps[0].Response.Error, "unknown protocol")
	assert.Empty(t, exec.calls)
}

func TestRunNilWorkflow(t *testing.T) {
	eng := newTestEngine(t, &fakeExecutor{}, engine.Dependencies{})

	result, err := eng.Run(context.Background(), nil, "")
	assert.ErrorIs(t, err, engine.ErrNilWorkflow)
	assert.Nil(t, result)
}

func TestRunInvalidWorkflow(t *testing.T) {
	eng := newTestEngine(t, &fakeExecutor{}, engine.Dependencies{})

	result, err := eng.Run(context.Background(), &api.Workflow{
		ID:   "empty",
		Name: "Empty",
	}, "")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.Steps)
}

func TestRunRecordsHistory(t *testing.T) {
	hist := &fakeHistory{}
	eng := newTestEngine(t, &fakeExecutor{}, engine.Dependencies{
		History: hist,
	})

	wf := testWorkflow(
		httpStep(1, "https://api.example.com/one"),
		httpStep(2, "https://api.example.com/two"),
	)

	result, err := eng.Run(context.Background(), wf, "tester")
	assert.NoError(t, err)
	assert.True(t, result.Success)

	assert.Len(t, hist.records, 2)
	rec := hist.records[0]
	assert.Equal(t, api.HistorySourceWorkflow, rec.Source)
	assert.Equal(t, "test-workflow", rec.WorkflowID)
	assert.Equal(t, result.RunID, rec.RunID)
	assert.Equal(t, 1, rec.StepOrder)
	assert.True(t, rec.Success)
	assert.False(t, rec.RecordedAt.IsZero())
}

func TestRunHistoryFailureDoesNotAffectOutcome(t *testing.T) {
	hist := &fakeHistory{err: errors.New("sink unavailable")}
	eng := newTestEngine(t, &fakeExecutor{}, engine.Dependencies{
		History: hist,
	})

	wf := testWorkflow(httpStep(1, "https://api.example.com/one"))

	result, err := eng.Run(context.Background(), wf, "")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, hist.records, 1)
}

func TestRunAssertionFailureFailsStep(t *testing.T) {
	eng := newTestEngine(t, &fakeExecutor{}, engine.Dependencies{})

	step := httpStep(1, "https://api.example.com/one")
	step.Assertions = []*api.Assertion{
		{Type: api.AssertStatusCode, Expected: float64(404)},
	}

	result, err := eng.Run(context.Background(), testWorkflow(step), "")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "assertion failed")
	assert.Len(t, result.Steps[0].Assertions, 1)
	assert.False(t, result.Steps[0].Assertions[0].Passed)

	// The envelope itself succeeded; only the assertion failed
	assert.True(t, result.Steps[0].Response.Success)
}

func TestRunCredentialLookup(t *testing.T) {
	creds := &fakeCredentials{
		bundles: map[string]*api.Credentials{
			"github": {
				Type:  api.CredentialBearer,
				Token: "tok-123",
			},
		},
	}
	exec := &fakeExecutor{}
	eng := newTestEngine(t, exec, engine.Dependencies{
		Credentials: creds,
	})

	step := httpStep(1, "https://api.github.com/user")
	step.Request.SpecID = "github"

	result, err := eng.Run(context.Background(), testWorkflow(step), "")
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, exec.creds, 1)
	assert.NotNil(t, exec.creds[0])
	assert.Equal(t, "tok-123", exec.creds[0].Token)
}

func TestRunCredentialLookupFailure(t *testing.T) {
	creds := &fakeCredentials{err: errors.New("redis down")}
	exec := &fakeExecutor{}
	eng := newTestEngine(t, exec, engine.Dependencies{
		Credentials: creds,
	})

	step := httpStep(1, "https://api.github.com/user")
	step.Request.SpecID = "github"

	result, err := eng.Run(context.Background(), testWorkflow(step), "")
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t,
		result.Steps[0].Response.Error, "credential lookup failed")
	assert.Empty(t, exec.calls)
}

func TestRunObserverReceivesSteps(t *testing.T) {
	var seen []*api.StepResult
	var runIDs []string

	exec := &fakeExecutor{}
	eng := newTestEngine(t, exec, engine.Dependencies{
		Observer: func(runID string, res *api.StepResult) {
			runIDs = append(runIDs, runID)
			seen = append(seen, res)
		},
	})

	wf := testWorkflow(
		httpStep(1, "https://api.example.com/one"),
		httpStep(2, "https://api.example.com/two"),
	)

	result, err := eng.Run(context.Background(), wf, "")
	assert.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].Order)
	assert.Equal(t, 2, seen[1].Order)
	for _, id := range runIDs {
		assert.Equal(t, result.RunID, id)
	}
}

func TestRunActiveRunLifecycle(t *testing.T) {
	exec := &fakeExecutor{}
	eng := newTestEngine(t, exec, engine.Dependencies{})

	wf := testWorkflow(httpStep(1, "https://api.example.com/one"))

	result, err := eng.Run(context.Background(), wf, "")
	assert.NoError(t, err)

	// The run was visible while its step executed, and is gone now
	assert.Equal(t, []int{1}, exec.active)
	assert.Empty(t, eng.ActiveRuns())

	_, ok := eng.ExecutionState(result.RunID)
	assert.False(t, ok)
}
