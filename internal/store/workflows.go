package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/tandemflow/tandem/pkg/api"
)

// WorkflowStore keeps workflow definitions in a Redis hash keyed by
// workflow ID
type WorkflowStore struct {
	rdb    *redis.Client
	prefix string
}

// ErrWorkflowNotFound is returned when a workflow ID has no stored
// definition
var ErrWorkflowNotFound = errors.New("workflow not found")

func NewWorkflowStore(rdb *redis.Client, prefix string) *WorkflowStore {
	return &WorkflowStore{
		rdb:    rdb,
		prefix: prefix,
	}
}

// Put stores or replaces a workflow definition
func (s *WorkflowStore) Put(ctx context.Context, wf *api.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key(), wf.ID, data).Err()
}

// Get fetches one workflow definition by ID
func (s *WorkflowStore) Get(
	ctx context.Context, id string,
) (*api.Workflow, error) {
	data, err := s.rdb.HGet(ctx, s.key(), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}

	var wf api.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// List returns digests of all stored workflows
func (s *WorkflowStore) List(
	ctx context.Context,
) ([]*api.WorkflowDigest, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}

	digests := make([]*api.WorkflowDigest, 0, len(raw))
	for _, item := range raw {
		var wf api.Workflow
		if err := json.Unmarshal([]byte(item), &wf); err != nil {
			return nil, err
		}
		digests = append(digests, wf.Digest())
	}
	return digests, nil
}

// Delete removes a workflow definition
func (s *WorkflowStore) Delete(ctx context.Context, id string) error {
	removed, err := s.rdb.HDel(ctx, s.key(), id).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrWorkflowNotFound
	}
	return nil
}

func (s *WorkflowStore) key() string {
	return s.prefix + ":workflows"
}
