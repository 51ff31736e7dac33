package gallery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/shouni/artconnect-kit/pkg/domain"
)

type memoryBackend struct {
	mu    sync.RWMutex
	items map[string]domain.Artwork
	now   func() time.Time
}

// NewMemoryBackend はプロセス内だけで保持するストアを返します。
func NewMemoryBackend() Backend {
	return &memoryBackend{items: make(map[string]domain.Artwork), now: time.Now}
}

func (m *memoryBackend) Insert(_ context.Context, art *domain.Artwork) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	art.ID = ulid.Make().String()
	art.CreatedAt = m.now().UTC().Truncate(time.Millisecond)
	m.items[art.ID] = *art
	return nil
}

func (m *memoryBackend) Get(_ context.Context, id string) (*domain.Artwork, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *memoryBackend) Query(_ context.Context, where Where, limit int) ([]domain.Artwork, error) {
	m.mu.RLock()
	out := make([]domain.Artwork, 0, len(m.items))
	for _, a := range m.items {
		if where.Matches(&a) {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryBackend) UpdateVisibility(_ context.Context, id string, v domain.Visibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	a.Visibility = v
	m.items[id] = a
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryBackend) Close() error { return nil }
