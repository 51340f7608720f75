package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tandemflow/tandem/internal/engine"
	"github.com/tandemflow/tandem/internal/util"
	"github.com/tandemflow/tandem/pkg/api"
)

// CredentialStore resolves credential bundles from Redis, read through
// a TTL cache so hot workflows do not hit Redis once per step. A spec
// ID with no stored bundle resolves to nil without error
type CredentialStore struct {
	rdb    *redis.Client
	prefix string
	cache  *util.Cache[*api.Credentials]
}

var _ engine.CredentialSource = (*CredentialStore)(nil)

func NewCredentialStore(
	rdb *redis.Client, prefix string, cacheTTL time.Duration,
) *CredentialStore {
	return &CredentialStore{
		rdb:    rdb,
		prefix: prefix,
		cache:  util.NewCache[*api.Credentials](cacheTTL),
	}
}

// Find resolves the bundle for a spec ID. Identity-scoped bundles take
// precedence over bundles shared across identities
func (s *CredentialStore) Find(
	ctx context.Context, specID, identity string,
) (*api.Credentials, error) {
	cacheKey := specID + "/" + identity
	if creds, ok := s.cache.Get(cacheKey); ok {
		return creds, nil
	}

	creds, err := s.fetch(ctx, s.key(specID, identity))
	if err != nil {
		return nil, err
	}
	if creds == nil {
		if creds, err = s.fetch(ctx, s.key(specID, "")); err != nil {
			return nil, err
		}
	}

	s.cache.Set(cacheKey, creds)
	return creds, nil
}

// Put stores a bundle for a spec ID; an empty identity shares the
// bundle across identities
func (s *CredentialStore) Put(
	ctx context.Context, specID, identity string, creds *api.Credentials,
) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(
		ctx, s.key(specID, identity), data, 0,
	).Err(); err != nil {
		return err
	}

	s.cache.Clear()
	return nil
}

// Sweep evicts expired cache entries; invoked by the process supervisor
func (s *CredentialStore) Sweep() int {
	return s.cache.Sweep()
}

// CacheStats reports credential cache activity
func (s *CredentialStore) CacheStats() util.CacheStats {
	return s.cache.Stats()
}

func (s *CredentialStore) fetch(
	ctx context.Context, key string,
) (*api.Credentials, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var creds api.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *CredentialStore) key(specID, identity string) string {
	if identity == "" {
		return fmt.Sprintf("%s:creds:%s", s.prefix, specID)
	}
	return fmt.Sprintf("%s:creds:%s:%s", s.prefix, specID, identity)
}
