package executor

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/domain"
)

// Backend is the node API an executor talks to.
type Backend interface {
	Simulate(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error)
	Send(ctx context.Context, tx *solana.Transaction) (string, error)
	SignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
	LatestBlockhash(ctx context.Context) (domain.BlockhashWithExpiry, error)
}

// HTTPBackend implements Backend on the in-house JSON-RPC client.
type HTTPBackend struct {
	client     chain.RPCClient
	commitment string
}

// NewHTTPBackend creates a Backend over client using confirmed commitment.
func NewHTTPBackend(client chain.RPCClient) *HTTPBackend {
	return &HTTPBackend{client: client, commitment: chain.CommitmentConfirmed}
}

var _ Backend = (*HTTPBackend)(nil)

func encodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Simulate implements Backend.
func (b *HTTPBackend) Simulate(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error) {
	encoded, err := encodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	return b.client.SimulateTransaction(ctx, encoded, chain.CommitmentProcessed)
}

// Send implements Backend. Preflight is skipped and the node does not rebroadcast.
func (b *HTTPBackend) Send(ctx context.Context, tx *solana.Transaction) (string, error) {
	encoded, err := encodeTransaction(tx)
	if err != nil {
		return "", err
	}
	noRetries := uint(0)
	return b.client.SendTransaction(ctx, encoded, chain.SendOptions{
		SkipPreflight: true,
		MaxRetries:    &noRetries,
	})
}

// SignatureStatus implements Backend. A nil status means the node has not seen it yet.
func (b *HTTPBackend) SignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error) {
	statuses, err := b.client.GetSignatureStatuses(ctx, []string{signature})
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}

// BlockHeight implements Backend.
func (b *HTTPBackend) BlockHeight(ctx context.Context) (uint64, error) {
	return b.client.GetBlockHeight(ctx, b.commitment)
}

// LatestBlockhash implements Backend.
func (b *HTTPBackend) LatestBlockhash(ctx context.Context) (domain.BlockhashWithExpiry, error) {
	latest, err := b.client.GetLatestBlockhash(ctx, b.commitment)
	if err != nil {
		return domain.BlockhashWithExpiry{}, err
	}
	hash, err := solana.HashFromBase58(latest.Blockhash)
	if err != nil {
		return domain.BlockhashWithExpiry{}, fmt.Errorf("parse blockhash: %w", err)
	}
	return domain.BlockhashWithExpiry{Blockhash: hash, LastValidBlockHeight: latest.LastValidBlockHeight}, nil
}

// RPCBackend implements Backend on the solana-go RPC client.
type RPCBackend struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
}

// NewRPCBackend creates a Backend for endpoint using confirmed commitment.
func NewRPCBackend(endpoint string) *RPCBackend {
	return &RPCBackend{client: rpc.New(endpoint), commitment: rpc.CommitmentConfirmed}
}

var _ Backend = (*RPCBackend)(nil)

// Simulate implements Backend.
func (b *RPCBackend) Simulate(ctx context.Context, tx *solana.Transaction) (*chain.SimulationResult, error) {
	out, err := b.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("simulateTransaction: empty value")
	}
	return &chain.SimulationResult{
		Slot:          int64(out.Context.Slot),
		Err:           out.Value.Err,
		Logs:          out.Value.Logs,
		UnitsConsumed: out.Value.UnitsConsumed,
	}, nil
}

// Send implements Backend.
func (b *RPCBackend) Send(ctx context.Context, tx *solana.Transaction) (string, error) {
	noRetries := uint(0)
	sig, err := b.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &noRetries,
	})
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

// SignatureStatus implements Backend.
func (b *RPCBackend) SignatureStatus(ctx context.Context, signature string) (*chain.SignatureStatus, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}
	out, err := b.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, err
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}
	v := out.Value[0]
	return &chain.SignatureStatus{
		Slot:               int64(v.Slot),
		Confirmations:      v.Confirmations,
		Err:                v.Err,
		ConfirmationStatus: string(v.ConfirmationStatus),
	}, nil
}

// BlockHeight implements Backend.
func (b *RPCBackend) BlockHeight(ctx context.Context) (uint64, error) {
	return b.client.GetBlockHeight(ctx, b.commitment)
}

// LatestBlockhash implements Backend.
func (b *RPCBackend) LatestBlockhash(ctx context.Context) (domain.BlockhashWithExpiry, error) {
	out, err := b.client.GetLatestBlockhash(ctx, b.commitment)
	if err != nil {
		return domain.BlockhashWithExpiry{}, err
	}
	if out == nil || out.Value == nil {
		return domain.BlockhashWithExpiry{}, fmt.Errorf("getLatestBlockhash: empty value")
	}
	return domain.BlockhashWithExpiry{
		Blockhash:            out.Value.Blockhash,
		LastValidBlockHeight: out.Value.LastValidBlockHeight,
	}, nil
}
