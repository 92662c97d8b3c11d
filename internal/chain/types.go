package chain

// Commitment levels accepted by the RPC and WebSocket APIs.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// LatestBlockhash from getLatestBlockhash.
type LatestBlockhash struct {
	Slot                 int64
	Blockhash            string
	LastValidBlockHeight uint64
}

// SimulationResult from simulateTransaction.
type SimulationResult struct {
	Slot          int64
	Err           interface{}
	Logs          []string
	UnitsConsumed *uint64
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *uint64
	Err                interface{}
	ConfirmationStatus string
}

// Confirmed reports whether the status reached at least the confirmed commitment.
func (s *SignatureStatus) Confirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}
