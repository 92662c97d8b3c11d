// Package memory provides in-memory store implementations.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// DetectionStore is an in-memory implementation of storage.DetectionStore.
type DetectionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Detection // keyed by detection_id
}

// NewDetectionStore creates a new in-memory detection store.
func NewDetectionStore() *DetectionStore {
	return &DetectionStore{
		data: make(map[string]*domain.Detection),
	}
}

var _ storage.DetectionStore = (*DetectionStore)(nil)

// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
func (s *DetectionStore) Insert(_ context.Context, d *domain.Detection) error {
	if d == nil || d.DetectionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DetectionID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	detectionCopy := *d
	s.data[d.DetectionID] = &detectionCopy
	return nil
}

// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
func (s *DetectionStore) GetByID(_ context.Context, detectionID string) (*domain.Detection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[detectionID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	detectionCopy := *d
	return &detectionCopy, nil
}

// GetByAccount retrieves all detections of a pool account, ordered by slot ASC.
func (s *DetectionStore) GetByAccount(_ context.Context, account string) ([]*domain.Detection, error) {
	return s.filter(func(d *domain.Detection) bool { return d.Account == account }, func(a, b *domain.Detection) bool {
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.DetectionID < b.DetectionID
	}), nil
}

// GetByTimeRange retrieves detections within [start, end] (inclusive), ordered by detected_at ASC.
func (s *DetectionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Detection, error) {
	return s.filter(func(d *domain.Detection) bool {
		return d.DetectedAt >= start && d.DetectedAt <= end
	}, func(a, b *domain.Detection) bool {
		if a.DetectedAt != b.DetectedAt {
			return a.DetectedAt < b.DetectedAt
		}
		return a.DetectionID < b.DetectionID
	}), nil
}

// Len returns the number of stored detections.
func (s *DetectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *DetectionStore) filter(keep func(*domain.Detection) bool, less func(a, b *domain.Detection) bool) []*domain.Detection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Detection
	for _, d := range s.data {
		if keep(d) {
			detectionCopy := *d
			result = append(result, &detectionCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return less(result[i], result[j])
	})
	return result
}
