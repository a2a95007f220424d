package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryStore keeps chunks in memory. With a cache file it reloads them on
// Open and rewrites the file after every change.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks []Chunk
	path   string
}

// NewMemoryStore creates an in-memory store. cachePath may be empty.
func NewMemoryStore(cachePath string) *MemoryStore {
	return &MemoryStore{path: cachePath}
}

// Open loads the cache file when one is configured and present.
func (m *MemoryStore) Open(context.Context) error {
	if m.path == "" {
		return nil
	}
	raw, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read embeddings cache: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		return fmt.Errorf("decode embeddings cache %s: %w", m.path, err)
	}
	m.mu.Lock()
	m.chunks = chunks
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Reset(context.Context, int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	return m.saveLocked()
}

func (m *MemoryStore) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	index := make(map[string]int, len(m.chunks))
	for i, c := range m.chunks {
		index[c.ID] = i
	}
	for _, c := range chunks {
		if i, ok := index[c.ID]; ok {
			m.chunks[i] = c
			continue
		}
		index[c.ID] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	return m.saveLocked()
}

func (m *MemoryStore) Search(_ context.Context, vector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	matches := make([]Match, 0, len(m.chunks))
	for _, c := range m.chunks {
		if len(c.Vector) == 0 {
			continue
		}
		matches = append(matches, Match{Text: c.Text, ChunkID: c.ChunkID, Score: Cosine(vector, c.Vector)})
	}
	m.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) saveLocked() error {
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	raw, err := json.Marshal(m.chunks)
	if err != nil {
		return fmt.Errorf("encode embeddings cache: %w", err)
	}
	if err := os.WriteFile(m.path, raw, 0o644); err != nil {
		return fmt.Errorf("write embeddings cache: %w", err)
	}
	return nil
}
