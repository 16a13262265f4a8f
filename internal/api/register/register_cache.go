package register

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/chatterly/registration-service/internal/types"
)

// CredentialCache is the immediately-readable source of truth for a freshly
// registered user, during the window before durable persistence completes.
// Once Put returns nil, any later Get for that identifier must observe the
// record. Eviction policy is a cache-wide concern; entries written here carry
// no expiry of their own.
type CredentialCache interface {
	Put(ctx context.Context, id string, user *types.UserRecord) error
	Get(ctx context.Context, id string) (*types.UserRecord, bool)
}

var _ CredentialCache = (*MemoryCredentialCache)(nil)

// MemoryCredentialCache is the in-process implementation used by the single
// binary deployment. A shared store satisfying the same interface drops in
// for multi-process setups.
type MemoryCredentialCache struct {
	c *gocache.Cache
}

func NewMemoryCredentialCache() *MemoryCredentialCache {
	return &MemoryCredentialCache{
		c: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

func (m *MemoryCredentialCache) Put(_ context.Context, id string, user *types.UserRecord) error {
	m.c.Set(id, user, gocache.NoExpiration)
	return nil
}

func (m *MemoryCredentialCache) Get(_ context.Context, id string) (*types.UserRecord, bool) {
	v, found := m.c.Get(id)
	if !found {
		return nil, false
	}
	u, ok := v.(*types.UserRecord)
	if !ok {
		return nil, false
	}
	return u, true
}
