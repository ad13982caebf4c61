package infrastructure

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/jukebox/internal/modules/music_player/domain"
)

// MemoryQueueStore is an in-memory implementation of domain.QueueStore.
type MemoryQueueStore struct {
	mu            sync.RWMutex
	queues        map[snowflake.ID]*domain.Queue
	defaultVolume int
}

// NewMemoryQueueStore creates a new MemoryQueueStore whose new queues start at defaultVolume.
func NewMemoryQueueStore(defaultVolume int) *MemoryQueueStore {
	return &MemoryQueueStore{
		queues:        make(map[snowflake.ID]*domain.Queue),
		defaultVolume: defaultVolume,
	}
}

// GetQueue returns the queue for the given guild, creating it on first use.
func (s *MemoryQueueStore) GetQueue(guildID snowflake.ID) *domain.Queue {
	s.mu.RLock()
	q, ok := s.queues[guildID]
	s.mu.RUnlock()
	if ok {
		return q
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have inserted it between the locks
	if q, ok := s.queues[guildID]; ok {
		return q
	}
	q = domain.NewQueue(guildID, s.defaultVolume)
	s.queues[guildID] = q
	return q
}

// Delete removes the queue for the given guild.
func (s *MemoryQueueStore) Delete(guildID snowflake.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queues, guildID)
}

// Len returns the number of tracked guilds (for testing/monitoring).
func (s *MemoryQueueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.queues)
}

// Ensure MemoryQueueStore implements domain.QueueStore.
var _ domain.QueueStore = (*MemoryQueueStore)(nil)
