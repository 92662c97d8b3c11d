package storage

import (
	"context"

	"solana-pool-sniper/internal/domain"
)

// DetectionStore provides access to pool_detections storage.
type DetectionStore interface {
	// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
	Insert(ctx context.Context, d *domain.Detection) error

	// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, detectionID string) (*domain.Detection, error)

	// GetByAccount retrieves all detections of a pool account, ordered by slot ASC.
	GetByAccount(ctx context.Context, account string) ([]*domain.Detection, error)

	// GetByTimeRange retrieves detections within [start, end] (inclusive), ordered by detected_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Detection, error)
}
