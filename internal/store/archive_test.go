package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/pkg/api"
)

func TestArchiverWritesResult(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	archiver, err := store.NewArchiver(ctx, "file://"+dir, "")
	assert.NoError(t, err)
	defer func() { assert.NoError(t, archiver.Close()) }()

	result := &api.WorkflowResult{
		WorkflowID:   "wf-1",
		WorkflowName: "Sample",
		RunID:        "run-1",
		Success:      true,
		DurationMs:   42,
	}
	assert.NoError(t, archiver.Archive(ctx, result))

	data, err := os.ReadFile(filepath.Join(dir, "wf-1", "run-1.json"))
	assert.NoError(t, err)

	var stored api.WorkflowResult
	assert.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "wf-1", stored.WorkflowID)
	assert.Equal(t, "run-1", stored.RunID)
	assert.True(t, stored.Success)
}

func TestArchiverKeyPrefix(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	archiver, err := store.NewArchiver(ctx, "file://"+dir, "runs/")
	assert.NoError(t, err)
	defer func() { assert.NoError(t, archiver.Close()) }()

	result := &api.WorkflowResult{
		WorkflowID: "wf-1",
		RunID:      "run-1",
	}
	assert.NoError(t, archiver.Archive(ctx, result))

	_, err = os.Stat(filepath.Join(dir, "runs", "wf-1", "run-1.json"))
	assert.NoError(t, err)
}
