package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tandemflow/tandem/internal/store"
	"github.com/tandemflow/tandem/pkg/api"
)

func bearer(token string) *api.Credentials {
	return &api.Credentials{
		Type:  api.CredentialBearer,
		Token: token,
	}
}

func TestCredentialStoreFind(t *testing.T) {
	cs := store.NewCredentialStore(newTestRedis(t), "test", time.Minute)
	ctx := context.Background()

	assert.NoError(t, cs.Put(ctx, "github", "", bearer("shared-tok")))

	creds, err := cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Equal(t, "shared-tok", creds.Token)
}

func TestCredentialStoreIdentityPrecedence(t *testing.T) {
	cs := store.NewCredentialStore(newTestRedis(t), "test", time.Minute)
	ctx := context.Background()

	assert.NoError(t, cs.Put(ctx, "github", "", bearer("shared-tok")))
	assert.NoError(t, cs.Put(ctx, "github", "alice", bearer("alice-tok")))

	creds, err := cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice-tok", creds.Token)

	creds, err = cs.Find(ctx, "github", "bob")
	assert.NoError(t, err)
	assert.Equal(t, "shared-tok", creds.Token)
}

func TestCredentialStoreMissingIsNil(t *testing.T) {
	cs := store.NewCredentialStore(newTestRedis(t), "test", time.Minute)

	creds, err := cs.Find(context.Background(), "unknown", "alice")
	assert.NoError(t, err)
	assert.Nil(t, creds)
}

func TestCredentialStoreCaches(t *testing.T) {
	cs := store.NewCredentialStore(newTestRedis(t), "test", time.Minute)
	ctx := context.Background()

	assert.NoError(t, cs.Put(ctx, "github", "", bearer("tok")))

	_, err := cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)
	_, err = cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)

	stats := cs.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestCredentialStorePutInvalidatesCache(t *testing.T) {
	cs := store.NewCredentialStore(newTestRedis(t), "test", time.Minute)
	ctx := context.Background()

	assert.NoError(t, cs.Put(ctx, "github", "", bearer("old")))

	creds, err := cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "old", creds.Token)

	assert.NoError(t, cs.Put(ctx, "github", "", bearer("new")))

	creds, err = cs.Find(ctx, "github", "alice")
	assert.NoError(t, err)
	assert.Equal(t, "new", creds.Token)
}
