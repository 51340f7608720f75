// Package store provides the persistence collaborators consumed by the
// engine and server: Redis-backed workflow definitions, credential
// bundles, and step history, plus blob archival of completed runs.
package store

import (
	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection shared by the stores
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisClient opens the shared Redis connection
func NewRedisClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}
