// Package executor submits signed transactions and confirms them against a
// blockhash expiry height.
package executor

import (
	"context"
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// Execution errors.
var (
	ErrSignerMismatch   = errors.New("signer did not sign the transaction")
	ErrUnsigned         = errors.New("transaction has no signatures")
	ErrSimulationFailed = errors.New("simulation failed")
	ErrTransactionError = errors.New("transaction failed on chain")
	ErrBlockhashExpired = errors.New("blockhash expired before confirmation")
	ErrExpiryUnknown    = errors.New("blockhash expiry could not be checked")
)

// Result is the outcome of ExecuteAndConfirm.
// Signature may be set even when Confirmed is false.
type Result struct {
	Confirmed bool
	Signature string
	Err       error
}

// Executor submits and confirms a signed transaction. signer must be one of the
// transaction's required signers; it need not be the fee payer. Implementations
// are safe for concurrent use; serializing one signer's transactions is the
// caller's job.
type Executor interface {
	Name() string
	ExecuteAndConfirm(ctx context.Context, tx *solana.Transaction, signer solana.PublicKey, blockhash domain.BlockhashWithExpiry) Result
}

// alreadyProcessedMarkers are node error texts for a transaction the network has already seen.
var alreadyProcessedMarkers = []string{
	"already processed",
	"already been processed",
	"alreadyprocessed",
}

// IsAlreadyProcessed reports whether err says the transaction was already processed.
func IsAlreadyProcessed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range alreadyProcessedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// firstSignature returns the transaction's first signature, or "" when unsigned.
func firstSignature(tx *solana.Transaction) string {
	if tx == nil || len(tx.Signatures) == 0 || tx.Signatures[0] == (solana.Signature{}) {
		return ""
	}
	return tx.Signatures[0].String()
}
