package domain

// Detection records the first published sighting of a pool account.
// Corresponds to pool_detections table in PostgreSQL.
type Detection struct {
	DetectionID string   // PRIMARY KEY, deterministic hash
	Protocol    Protocol // pool | cpmm-pool | dlmm-pool
	Account     string   // pool account address
	MintA       string   // first mint slot as laid out on chain
	MintB       string   // second mint slot
	Slot        int64    // slot of the first sighting
	DetectedAt  int64    // Unix timestamp in milliseconds
	CreatedAt   int64    // record creation timestamp (ms)
}
