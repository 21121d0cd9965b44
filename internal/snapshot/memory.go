package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/shelfvision/stockwatch/internal/stock"
	"github.com/shelfvision/stockwatch/internal/vision"
)

// MemoryStore is an in-memory Store for tests and dev mode.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[vision.SKU]stock.Record
}

// NewMemoryStore creates an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[vision.SKU]stock.Record)}
}

func (s *MemoryStore) Get(ctx context.Context, sku vision.SKU) (*stock.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sku]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec *stock.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.SKU] = *rec
	return nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]stock.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]stock.Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SKU < records[j].SKU })
	return records, nil
}
