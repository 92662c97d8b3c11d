package domain

import "github.com/gagliardetto/solana-go"

// BlockhashWithExpiry is a recent blockhash together with the last block height
// at which a transaction referencing it can still land.
type BlockhashWithExpiry struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}
