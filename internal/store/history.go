package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tandemflow/tandem/internal/engine"
	"github.com/tandemflow/tandem/pkg/api"
)

// HistoryStore persists one record per dispatched step in a capped
// Redis list per execution identity, newest first
type HistoryStore struct {
	rdb    *redis.Client
	prefix string
	limit  int64
}

var _ engine.HistorySink = (*HistoryStore)(nil)

func NewHistoryStore(rdb *redis.Client, prefix string, limit int64) *HistoryStore {
	return &HistoryStore{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
	}
}

// Record appends the history record for an identity, trimming the list
// to the configured cap
func (s *HistoryStore) Record(
	ctx context.Context, identity string, rec *api.HistoryRecord,
) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := s.key(identity)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.limit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to count history records for an identity, newest
// first
func (s *HistoryStore) Recent(
	ctx context.Context, identity string, count int64,
) ([]*api.HistoryRecord, error) {
	raw, err := s.rdb.LRange(ctx, s.key(identity), 0, count-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*api.HistoryRecord, 0, len(raw))
	for _, item := range raw {
		var rec api.HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (s *HistoryStore) key(identity string) string {
	return fmt.Sprintf("%s:history:%s", s.prefix, identity)
}
