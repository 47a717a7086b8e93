package cache

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

// Cache stores previously computed lookups keyed by signature.
type Cache interface {
	// Get returns nil, nil on a miss. Freshness is left to the caller.
	Get(ctx context.Context, key string) (*types.CacheEntry, error)
	Put(ctx context.Context, entry types.CacheEntry) error
}

var _ Cache = (*Store)(nil)

// Store is a process-local go-cache in front of the Postgres table. Entries outlive the
// memory TTL in Postgres, so stale results stay available as a fallback.
type Store struct {
	logger *slog.Logger
	memory *gocache.Cache
	repo   Repository
	now    func() time.Time
}

func NewStore(repo Repository, memoryTTL, cleanupInterval time.Duration, logger *slog.Logger) *Store {
	return &Store{
		logger: logger,
		memory: gocache.New(memoryTTL, cleanupInterval),
		repo:   repo,
		now:    time.Now,
	}
}

func (s *Store) Get(ctx context.Context, key string) (*types.CacheEntry, error) {
	if v, found := s.memory.Get(key); found {
		entry := v.(types.CacheEntry)
		return &entry, nil
	}

	entry, err := s.repo.Get(ctx, key)
	if err != nil || entry == nil {
		return nil, err
	}
	s.memory.Set(key, *entry, gocache.DefaultExpiration)
	return entry, nil
}

func (s *Store) Put(ctx context.Context, entry types.CacheEntry) error {
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = s.now()
	}
	if err := s.repo.Put(ctx, entry); err != nil {
		return err
	}
	s.memory.Set(entry.Key, entry, gocache.DefaultExpiration)
	s.logger.DebugContext(ctx, "Cache entry stored", slog.String("key", entry.Key), slog.Int("places", len(entry.Places)))
	return nil
}
