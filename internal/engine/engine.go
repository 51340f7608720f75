// Package engine is the workflow orchestrator: it walks a workflow's
// steps in order, resolves inter-step data dependencies, dispatches
// each step to a protocol executor, evaluates assertions, and applies
// the continue/halt policy.
package engine

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/tandemflow/tandem/internal/executor"
	"github.com/tandemflow/tandem/pkg/api"
)

type (
	// CredentialSource resolves the credential bundle for a request's
	// spec ID, or nil when none is configured
	CredentialSource interface {
		Find(
			ctx context.Context, specID, identity string,
		) (*api.Credentials, error)
	}

	// HistorySink durably records one trace per dispatched step. Calls
	// are best-effort: the engine logs sink errors and never lets them
	// alter a run's outcome
	HistorySink interface {
		Record(
			ctx context.Context, identity string, rec *api.HistoryRecord,
		) error
	}

	// Observer receives each step result as it is recorded, for
	// streaming surfaces
	Observer func(runID string, res *api.StepResult)

	// Dependencies carries the collaborators the engine consumes.
	// Credentials, History, and Observer may be nil
	Dependencies struct {
		Executors   executor.Registry
		Credentials CredentialSource
		History     HistorySink
		Observer    Observer
	}

	// Engine executes workflows. It holds no per-run state beyond the
	// live-run snapshot table; concurrent Run calls are independent
	Engine struct {
		executors executor.Registry
		creds     CredentialSource
		history   HistorySink
		observer  Observer
		active    map[string]*runState
		mu        sync.RWMutex
	}

	// runState is the per-run scratch space: the current step index,
	// results so far, and the step order → response body table that
	// variable mappings resolve against. Created fresh per run and
	// discarded when the run completes
	runState struct {
		workflowID string
		runID      string
		index      int
		results    []*api.StepResult
		context    map[int]any
		mu         sync.Mutex
	}
)

var (
	ErrNoExecutors = errors.New("no executors registered")
	ErrNilWorkflow = errors.New("workflow is nil")
)

func New(deps Dependencies) (*Engine, error) {
	if len(deps.Executors) == 0 {
		return nil, ErrNoExecutors
	}

	return &Engine{
		executors: deps.Executors,
		creds:     deps.Credentials,
		history:   deps.History,
		observer:  deps.Observer,
		active:    map[string]*runState{},
	}, nil
}

// ExecutionState returns a read-only snapshot of a live run
func (e *Engine) ExecutionState(runID string) (*api.ExecutionState, bool) {
	e.mu.RLock()
	st, ok := e.active[runID]
	e.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return st.snapshot(), true
}

// ActiveRuns returns snapshots of every run currently in progress
func (e *Engine) ActiveRuns() []*api.ExecutionState {
	e.mu.RLock()
	states := make([]*runState, 0, len(e.active))
	for _, st := range e.active {
		states = append(states, st)
	}
	e.mu.RUnlock()

	snaps := make([]*api.ExecutionState, len(states))
	for i, st := range states {
		snaps[i] = st.snapshot()
	}
	slices.SortFunc(snaps, func(a, b *api.ExecutionState) int {
		return cmp.Compare(a.RunID, b.RunID)
	})
	return snaps
}

func (e *Engine) register(st *runState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[st.runID] = st
}

func (e *Engine) unregister(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, runID)
}

func newRunState(workflowID, runID string) *runState {
	return &runState{
		workflowID: workflowID,
		runID:      runID,
		context:    map[int]any{},
	}
}

func (st *runState) setIndex(i int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.index = i
}

// record stores the step's result and exposes its response body to
// later steps, regardless of success: a failed step's partial body may
// still be useful to a continue-on-failure chain
func (st *runState) record(order int, res *api.StepResult) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.results = append(st.results, res)
	if res.Response != nil {
		st.context[order] = res.Response.Body
	} else {
		st.context[order] = nil
	}
}

func (st *runState) contextView() map[int]any {
	st.mu.Lock()
	defer st.mu.Unlock()

	view := make(map[int]any, len(st.context))
	for order, body := range st.context {
		view[order] = body
	}
	return view
}

func (st *runState) snapshot() *api.ExecutionState {
	st.mu.Lock()
	defer st.mu.Unlock()

	steps := make([]int, 0, len(st.context))
	for order := range st.context {
		steps = append(steps, order)
	}
	slices.Sort(steps)

	return &api.ExecutionState{
		RunID:            st.runID,
		WorkflowID:       st.workflowID,
		CurrentStepIndex: st.index,
		Results:          slices.Clone(st.results),
		ContextSteps:     steps,
	}
}
