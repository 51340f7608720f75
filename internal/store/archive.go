package store

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/tandemflow/tandem/pkg/api"
)

// Archiver writes completed WorkflowResults to a blob bucket (S3, GCS,
// Azure, S3-compatible, or local files) for long-term retention
type Archiver struct {
	bucket *blob.Bucket
	prefix string
}

func NewArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*Archiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Archiver{bucket: bucket, prefix: prefix}, nil
}

// Archive stores the run's result under workflow-id/run-id
func (a *Archiver) Archive(
	ctx context.Context, result *api.WorkflowResult,
) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(result), data, nil)
}

func (a *Archiver) Close() error {
	return a.bucket.Close()
}

func (a *Archiver) keyFor(result *api.WorkflowResult) string {
	return fmt.Sprintf(
		"%s%s/%s.json", a.prefix, result.WorkflowID, result.RunID,
	)
}
