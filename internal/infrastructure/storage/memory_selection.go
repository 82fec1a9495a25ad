package storage

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
)

const selectionShards = 32

type selectionShard struct {
	mu      sync.Mutex
	pending map[int64]entity.PendingSelection
}

type memorySelectionRepository struct {
	shards [selectionShards]*selectionShard
	now    func() time.Time
}

// NewMemorySelectionRepository in-memory selection store, sharded by user id
func NewMemorySelectionRepository() repository.SelectionRepository {
	return newMemorySelectionRepository(time.Now)
}

func newMemorySelectionRepository(now func() time.Time) *memorySelectionRepository {
	m := &memorySelectionRepository{now: now}
	for i := range m.shards {
		m.shards[i] = &selectionShard{pending: make(map[int64]entity.PendingSelection)}
	}
	return m
}

func (m *memorySelectionRepository) shard(userID int64) *selectionShard {
	idx := userID % selectionShards
	if idx < 0 {
		idx = -idx
	}
	return m.shards[idx]
}

// Put stores the selection (last write wins)
func (m *memorySelectionRepository) Put(ctx context.Context, selection entity.PendingSelection) error {
	s := m.shard(selection.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	for userID, p := range s.pending {
		if p.Expired(now) {
			delete(s.pending, userID)
		}
	}

	s.pending[selection.UserID] = selection
	return nil
}

// Take removes and returns the selection
func (m *memorySelectionRepository) Take(ctx context.Context, userID int64) (*entity.PendingSelection, error) {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.pending[userID]
	if !exists {
		return nil, entity.ErrSelectionNotFound
	}
	delete(s.pending, userID)

	if p.Expired(m.now()) {
		return nil, entity.ErrSelectionNotFound
	}
	return &p, nil
}

// Close is a no-op for the in-memory store
func (m *memorySelectionRepository) Close() error {
	return nil
}
