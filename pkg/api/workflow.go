package api

import (
	"errors"
	"fmt"
)

type (
	// Workflow is an ordered sequence of protocol calls executed as a
	// unit. Step order values are used both for sorting and as keys into
	// the execution context, so they must be unique within a workflow
	Workflow struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description,omitempty"`
		Tags        []string `json:"tags,omitempty"`
		Template    bool     `json:"template,omitempty"`
		Steps       []*Step  `json:"steps"`
	}

	// WorkflowDigest is the summary form returned by list endpoints
	WorkflowDigest struct {
		ID    string   `json:"id"`
		Name  string   `json:"name"`
		Tags  []string `json:"tags,omitempty"`
		Steps int      `json:"steps"`
	}
)

var (
	ErrWorkflowIDEmpty    = errors.New("workflow ID empty")
	ErrWorkflowNameEmpty  = errors.New("workflow name empty")
	ErrWorkflowNoSteps    = errors.New("workflow has no steps")
	ErrDuplicateStepOrder = errors.New("duplicate step order")
)

// Validate checks the workflow definition and every step it contains
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return ErrWorkflowIDEmpty
	}
	if w.Name == "" {
		return ErrWorkflowNameEmpty
	}
	if len(w.Steps) == 0 {
		return ErrWorkflowNoSteps
	}

	seen := map[int]bool{}
	for _, step := range w.Steps {
		if seen[step.Order] {
			return fmt.Errorf("%w: %d", ErrDuplicateStepOrder, step.Order)
		}
		seen[step.Order] = true

		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", step.Order, err)
		}
	}
	return nil
}

// Digest returns the summary form of the workflow
func (w *Workflow) Digest() *WorkflowDigest {
	return &WorkflowDigest{
		ID:    w.ID,
		Name:  w.Name,
		Tags:  w.Tags,
		Steps: len(w.Steps),
	}
}
