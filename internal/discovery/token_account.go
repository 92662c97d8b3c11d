package discovery

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TokenAccountSize is the size of an SPL token account.
const TokenAccountSize = 165

// Token account states.
const (
	TokenAccountUninitialized uint8 = 0
	TokenAccountInitialized   uint8 = 1
	TokenAccountFrozen        uint8 = 2
)

const (
	tokenMintOffset   = 0
	tokenOwnerOffset  = 32
	tokenAmountOffset = 64
	tokenStateOffset  = 108
)

// TokenAccount is a decoded SPL token account.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
	State  uint8
}

// DecodeTokenAccount decodes an SPL token account.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return nil, fmt.Errorf("token account: %w: %d", ErrUnexpectedSize, len(data))
	}
	return &TokenAccount{
		Mint:   readPubkey(data, tokenMintOffset),
		Owner:  readPubkey(data, tokenOwnerOffset),
		Amount: readU64(data, tokenAmountOffset),
		State:  data[tokenStateOffset],
	}, nil
}
