package register

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatterly/registration-service/internal/types"
)

func TestMemoryCredentialCacheReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCredentialCache()

	user := &types.UserRecord{ID: uuid.New(), Username: "Qanny", Email: "poerty@gmail.com"}
	require.NoError(t, cache.Put(ctx, user.ID.String(), user))

	got, found := cache.Get(ctx, user.ID.String())
	require.True(t, found)
	assert.Equal(t, user, got)
}

func TestMemoryCredentialCacheMiss(t *testing.T) {
	cache := NewMemoryCredentialCache()

	got, found := cache.Get(context.Background(), uuid.NewString())
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestMemoryCredentialCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCredentialCache()

	id := uuid.New()
	first := &types.UserRecord{ID: id, Username: "Qanny"}
	second := &types.UserRecord{ID: id, Username: "Qanny", PostsCount: 3}

	require.NoError(t, cache.Put(ctx, id.String(), first))
	require.NoError(t, cache.Put(ctx, id.String(), second))

	got, found := cache.Get(ctx, id.String())
	require.True(t, found)
	assert.Equal(t, 3, got.PostsCount)
}
