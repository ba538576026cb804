// Package categories answers whether a category id belongs to an owner.
// Category management itself lives elsewhere; this is a read-only lookup.
package categories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"impegni/internal/cache"
	"impegni/internal/core"
	"impegni/internal/storage"
)

// Directory reports whether a category exists for an owner.
type Directory interface {
	Exists(ctx context.Context, owner string, id int64) (bool, error)
}

// CategoryGetter is the storage lookup the SQL directory is built on.
type CategoryGetter interface {
	GetCategory(ctx context.Context, owner string, id int64) (storage.Category, error)
}

// Store adapts a CategoryGetter into a Directory.
type Store struct {
	getter CategoryGetter
}

func NewStore(getter CategoryGetter) *Store {
	return &Store{getter: getter}
}

func (s *Store) Exists(ctx context.Context, owner string, id int64) (bool, error) {
	_, err := s.getter.GetCategory(ctx, owner, id)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup category %d: %w", id, err)
	}
	return true, nil
}

type cacheKey struct {
	owner string
	id    int64
}

// Cached memoizes positive lookups of another Directory. Misses are never
// cached so a freshly created category is visible immediately.
type Cached struct {
	next  Directory
	cache *cache.LRU[cacheKey, bool]
}

func NewCached(next Directory, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: cache.NewLRU[cacheKey, bool](size, ttl),
	}
}

func (c *Cached) Exists(ctx context.Context, owner string, id int64) (bool, error) {
	key := cacheKey{owner: owner, id: id}
	if _, ok := c.cache.Get(key); ok {
		return true, nil
	}
	ok, err := c.next.Exists(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if ok {
		c.cache.Set(key, true)
	}
	return ok, nil
}

// Prune drops expired lookups; it lets a cache.Manager bound the memory
// held by owners that stopped asking.
func (c *Cached) Prune() int {
	return c.cache.Prune()
}

// Validate returns a ValidationError when id is set and unknown to dir.
// A nil id or a nil directory always passes.
func Validate(ctx context.Context, dir Directory, owner string, id *int64) error {
	if dir == nil || id == nil {
		return nil
	}
	ok, err := dir.Exists(ctx, owner, *id)
	if err != nil {
		return err
	}
	if !ok {
		return core.Invalid("category_id", fmt.Sprintf("unknown category %d", *id))
	}
	return nil
}
