package storage

import "errors"

// Journal errors shared by every DetectionStore.
var (
	// ErrNotFound means no detection has the requested ID.
	ErrNotFound = errors.New("detection not found")

	// ErrDuplicateKey means the pool was already journaled. Detections are
	// written once per pool and never updated.
	ErrDuplicateKey = errors.New("detection already recorded")

	// ErrInvalidInput means a detection or query argument was rejected.
	ErrInvalidInput = errors.New("invalid input")
)
