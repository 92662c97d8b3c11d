package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

// DetectionStore implements storage.DetectionStore using PostgreSQL.
type DetectionStore struct {
	pool *Pool
}

// NewDetectionStore creates a new DetectionStore.
func NewDetectionStore(pool *Pool) *DetectionStore {
	return &DetectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DetectionStore = (*DetectionStore)(nil)

const selectDetection = `
	SELECT detection_id, protocol, account, mint_a, mint_b, slot, detected_at, created_at
	FROM pool_detections
`

// Insert adds a new detection. Returns ErrDuplicateKey if detection_id exists.
func (s *DetectionStore) Insert(ctx context.Context, d *domain.Detection) error {
	if d == nil || d.DetectionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pool_detections (
			detection_id, protocol, account, mint_a, mint_b, slot, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		d.DetectionID,
		string(d.Protocol),
		d.Account,
		d.MintA,
		d.MintB,
		d.Slot,
		d.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert detection: %w", err)
	}
	return nil
}

// GetByID retrieves a detection by its ID. Returns ErrNotFound if not exists.
func (s *DetectionStore) GetByID(ctx context.Context, detectionID string) (*domain.Detection, error) {
	row := s.pool.QueryRow(ctx, selectDetection+`WHERE detection_id = $1`, detectionID)

	var d domain.Detection
	if err := scanDetection(row, &d); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get detection by id: %w", err)
	}
	return &d, nil
}

// GetByAccount retrieves all detections of a pool account, ordered by slot ASC.
func (s *DetectionStore) GetByAccount(ctx context.Context, account string) ([]*domain.Detection, error) {
	rows, err := s.pool.Query(ctx, selectDetection+`
		WHERE account = $1
		ORDER BY slot ASC, detection_id ASC
	`, account)
	if err != nil {
		return nil, fmt.Errorf("get detections by account: %w", err)
	}
	defer rows.Close()

	return scanDetections(rows)
}

// GetByTimeRange retrieves detections within [start, end] (inclusive), ordered by detected_at ASC.
func (s *DetectionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Detection, error) {
	rows, err := s.pool.Query(ctx, selectDetection+`
		WHERE detected_at >= $1 AND detected_at <= $2
		ORDER BY detected_at ASC, detection_id ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("get detections by time range: %w", err)
	}
	defer rows.Close()

	return scanDetections(rows)
}

// scanDetection scans a single row into d.
func scanDetection(row pgx.Row, d *domain.Detection) error {
	var protocol string
	err := row.Scan(
		&d.DetectionID,
		&protocol,
		&d.Account,
		&d.MintA,
		&d.MintB,
		&d.Slot,
		&d.DetectedAt,
		&d.CreatedAt,
	)
	if err != nil {
		return err
	}
	d.Protocol = domain.Protocol(protocol)
	return nil
}

// scanDetections scans multiple rows into a slice of Detection.
func scanDetections(rows pgx.Rows) ([]*domain.Detection, error) {
	var detections []*domain.Detection

	for rows.Next() {
		var d domain.Detection
		if err := scanDetection(rows, &d); err != nil {
			return nil, fmt.Errorf("scan detection row: %w", err)
		}
		detections = append(detections, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection rows: %w", err)
	}

	return detections, nil
}
