package archive

import (
	"context"
	"sync"
)

type InMemoryRepository struct {
	records map[string]*Record
	mu      sync.RWMutex
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]*Record)}
}

func (r *InMemoryRepository) FindByBucket(ctx context.Context, bucketKey string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[bucketKey]
	if !exists {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.RequestedTime]; exists {
		return ErrExists
	}
	r.records[rec.RequestedTime] = rec
	return nil
}

func (r *InMemoryRepository) Close() {}
