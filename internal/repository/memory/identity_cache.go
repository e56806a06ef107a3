package memory

import (
	"time"

	"actually-colab-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// IdentityCache remembers which user owns a connection so socket messages
// do not hit storage just to resolve the caller.
type IdentityCache struct {
	cache *cache.Cache
}

func NewIdentityCache(ttl time.Duration) *IdentityCache {
	return &IdentityCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *IdentityCache) Save(connectionId string, user *entity.User) {
	r.cache.Set(connectionId, user, cache.DefaultExpiration)
}

func (r *IdentityCache) Get(connectionId string) (*entity.User, bool) {
	if x, found := r.cache.Get(connectionId); found {
		return x.(*entity.User), true
	}
	return nil, false
}

func (r *IdentityCache) Delete(connectionId string) {
	r.cache.Delete(connectionId)
}
