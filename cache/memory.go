package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"dga-topology/models"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryStore keeps results in process, encoded the same way as RedisClient.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a store whose entries expire after ttl; zero keeps
// them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (ms *MemoryStore) SaveAnalysis(_ context.Context, unitID string, result models.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	now := ms.now()
	entry := memoryEntry{data: data}
	if ms.ttl > 0 {
		entry.expires = now.Add(ms.ttl)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	// Expired entries are dropped on every write.
	for key, e := range ms.entries {
		if e.expired(now) {
			delete(ms.entries, key)
		}
	}
	ms.entries[Key(unitID)] = entry

	return nil
}

func (ms *MemoryStore) GetAnalysis(_ context.Context, unitID string) (*models.AnalysisResult, error) {
	key := Key(unitID)

	ms.mu.RLock()
	entry, ok := ms.entries[key]
	ms.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if now := ms.now(); entry.expired(now) {
		ms.mu.Lock()
		if current, ok := ms.entries[key]; ok && current.expired(now) {
			delete(ms.entries, key)
		}
		ms.mu.Unlock()

		return nil, nil
	}

	return decode(entry.data)
}

// Len reports the number of entries held, expired or not.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return len(ms.entries)
}

func (ms *MemoryStore) Close() error {
	return nil
}
