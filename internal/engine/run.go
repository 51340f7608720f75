package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tandemflow/tandem/pkg/api"
	"github.com/tandemflow/tandem/pkg/log"
)

// Run executes the workflow's steps in order and returns the aggregated
// result. Per-step failures are captured into StepResults rather than
// returned as errors; only structural misuse (a nil workflow) errors
// out. The aggregate success flag is the AND of every executed step's
// success, so a failure permitted by continue_on_failure still forces
// it to false
func (e *Engine) Run(
	ctx context.Context, wf *api.Workflow, identity string,
) (*api.WorkflowResult, error) {
	if wf == nil {
		return nil, ErrNilWorkflow
	}

	start := time.Now()
	result := &api.WorkflowResult{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		RunID:        uuid.NewString(),
		Success:      true,
	}

	if err := wf.Validate(); err != nil {
		result.Success = false
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	steps := slices.Clone(wf.Steps)
	slices.SortStableFunc(steps, func(a, b *api.Step) int {
		return cmp.Compare(a.Order, b.Order)
	})

	st := newRunState(wf.ID, result.RunID)
	e.register(st)
	defer e.unregister(result.RunID)

	slog.Info("Workflow run starting",
		log.WorkflowID(wf.ID),
		log.RunID(result.RunID),
		log.Identity(identity),
		slog.Int("steps", len(steps)))

	for i, step := range steps {
		st.setIndex(i)

		res := e.executeStep(ctx, wf, st, step, identity)
		st.record(step.Order, res)
		result.Steps = append(result.Steps, res)
		if e.observer != nil {
			e.observer(result.RunID, res)
		}

		if res.Success {
			continue
		}
		result.Success = false

		if !step.ContinueOnFailure {
			result.Error = fmt.Sprintf(
				"step %d failed: %s", step.Order, failureReason(res),
			)
			break
		}
		slog.Warn("Step failed, continuing",
			log.WorkflowID(wf.ID),
			log.RunID(result.RunID),
			log.StepOrder(step.Order),
			log.ErrorString(failureReason(res)))
	}

	result.DurationMs = time.Since(start).Milliseconds()

	slog.Info("Workflow run finished",
		log.WorkflowID(wf.ID),
		log.RunID(result.RunID),
		slog.Bool("success", result.Success),
		slog.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// executeStep runs the resolve → dispatch → record → assert pipeline
// for one step. Failures at any stage are converted into the returned
// StepResult, never raised
func (e *Engine) executeStep(
	ctx context.Context, wf *api.Workflow, st *runState, step *api.Step,
	identity string,
) *api.StepResult {
	res := &api.StepResult{
		Order: step.Order,
		Name:  step.Name,
	}

	resolved, warnings, err := Resolve(step, st.contextView())
	for _, warning := range warnings {
		slog.Warn("Variable resolution warning",
			log.WorkflowID(wf.ID),
			log.StepOrder(step.Order),
			slog.String("warning", warning))
	}
	if err != nil {
		res.Response = api.FailedEnvelope(err.Error())
		return res
	}
	res.Request = resolved

	var creds *api.Credentials
	if resolved.SpecID != "" && e.creds != nil {
		if creds, err = e.creds.Find(ctx, resolved.SpecID, identity); err != nil {
			res.Response = api.FailedEnvelope(
				fmt.Sprintf("credential lookup failed: %v", err))
			return res
		}
	}

	exec, err := e.executors.Lookup(resolved.Protocol)
	if err != nil {
		res.Response = api.FailedEnvelope(err.Error())
		return res
	}

	start := time.Now()
	env, err := exec.Execute(ctx, resolved, creds)
	res.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		env = api.FailedEnvelope(err.Error())
	}
	res.Response = env
	res.Success = env.Success

	e.recordHistory(ctx, identity, wf.ID, st.runID, step.Order, res)

	if len(step.Assertions) > 0 {
		res.Assertions = EvaluateAssertions(
			step.Assertions, env, res.DurationMs,
		)
		for _, verdict := range res.Assertions {
			if !verdict.Passed {
				res.Success = false
			}
		}
	}
	return res
}

// recordHistory emits the durable trace for a dispatched step. Sink
// failures are logged and swallowed; they never affect the run
func (e *Engine) recordHistory(
	ctx context.Context, identity, workflowID, runID string, order int,
	res *api.StepResult,
) {
	if e.history == nil {
		return
	}

	rec := &api.HistoryRecord{
		Source:     api.HistorySourceWorkflow,
		WorkflowID: workflowID,
		RunID:      runID,
		StepOrder:  order,
		Request:    res.Request,
		Response:   res.Response,
		DurationMs: res.DurationMs,
		Success:    res.Response.Success,
		RecordedAt: time.Now().UTC(),
	}

	if err := e.history.Record(ctx, identity, rec); err != nil {
		slog.Error("Failed to record step history",
			log.WorkflowID(workflowID),
			log.RunID(runID),
			log.StepOrder(order),
			log.Error(err))
	}
}

func failureReason(res *api.StepResult) string {
	if res.Response != nil && res.Response.Error != "" {
		return res.Response.Error
	}
	for _, verdict := range res.Assertions {
		if !verdict.Passed {
			return "assertion failed: " + verdict.Message
		}
	}
	return "call unsuccessful"
}
