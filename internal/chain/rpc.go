package chain

import "context"

// RPCClient defines the Solana JSON-RPC calls used for transaction execution.
type RPCClient interface {
	// GetLatestBlockhash returns a recent blockhash and its expiry height.
	GetLatestBlockhash(ctx context.Context, commitment string) (*LatestBlockhash, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context, commitment string) (uint64, error)

	// SimulateTransaction simulates a base64 encoded signed transaction.
	SimulateTransaction(ctx context.Context, encodedTx string, commitment string) (*SimulationResult, error)

	// SendTransaction submits a base64 encoded signed transaction and returns its signature.
	SendTransaction(ctx context.Context, encodedTx string, opts SendOptions) (string, error)

	// GetSignatureStatuses returns one status per signature; nil entries are unknown to the node.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)
}

// SendOptions controls sendTransaction behavior.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	// MaxRetries is forwarded to the node; nil leaves the node default.
	MaxRetries *uint
}
