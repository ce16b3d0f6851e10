package presence

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SeenStore remembers which viewer identities have been observed in a session's
// lifetime, so repeated joins by the same viewer count once toward
// total_unique_viewers.
type SeenStore interface {
	// MarkSeen records the viewer and reports whether this is the first time
	// the viewer was observed for this session.
	MarkSeen(ctx context.Context, sessionID, viewerID uuid.UUID) (first bool, err error)
	// UniqueCount returns the number of distinct viewers observed for a session.
	UniqueCount(ctx context.Context, sessionID uuid.UUID) (int, error)
	// Clear discards a session's seen set (after wrap-up).
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

func seenKey(sessionID uuid.UUID) string {
	return "presence:viewers:" + sessionID.String()
}

// RedisSeenStore backs the seen set with one Redis set per session, shared
// across instances.
type RedisSeenStore struct {
	client *redis.Client
}

// NewRedisSeenStore creates a Redis-backed seen store.
func NewRedisSeenStore(client *redis.Client) *RedisSeenStore {
	return &RedisSeenStore{client: client}
}

func (s *RedisSeenStore) MarkSeen(ctx context.Context, sessionID, viewerID uuid.UUID) (bool, error) {
	added, err := s.client.SAdd(ctx, seenKey(sessionID), viewerID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("sadd: %w", err)
	}
	return added > 0, nil
}

func (s *RedisSeenStore) UniqueCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := s.client.SCard(ctx, seenKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("scard: %w", err)
	}
	return int(n), nil
}

func (s *RedisSeenStore) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.Del(ctx, seenKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// MemorySeenStore is a process-local seen store for tests and single-node setups.
type MemorySeenStore struct {
	mu   sync.Mutex
	seen map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewMemorySeenStore creates an in-memory seen store.
func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{seen: make(map[uuid.UUID]map[uuid.UUID]struct{})}
}

func (s *MemorySeenStore) MarkSeen(_ context.Context, sessionID, viewerID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.seen[sessionID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.seen[sessionID] = set
	}
	if _, ok := set[viewerID]; ok {
		return false, nil
	}
	set[viewerID] = struct{}{}
	return true, nil
}

func (s *MemorySeenStore) UniqueCount(_ context.Context, sessionID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen[sessionID]), nil
}

func (s *MemorySeenStore) Clear(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, sessionID)
	return nil
}
