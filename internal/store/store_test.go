package store_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/internal/store"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := store.NewRedisClient(store.Options{
		Addr:   mr.Addr(),
		Prefix: "test",
	})
	t.Cleanup(func() {
		assert.NoError(t, rdb.Close())
	})
	return rdb
}
