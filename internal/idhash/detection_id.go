// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-pool-sniper/internal/domain"
)

// ComputeDetectionID computes a deterministic detection_id using SHA256.
// Formula: SHA256(protocol|account)
// A pool is detected once; later state changes of the account map to the same ID.
// Returns hex-encoded hash (64 characters).
func ComputeDetectionID(protocol domain.Protocol, account string) string {
	data := fmt.Sprintf("%s|%s", string(protocol), account)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
