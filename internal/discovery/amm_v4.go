package discovery

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// AmmV4AccountSize is the size of a Raydium AMM v4 liquidity state account.
const AmmV4AccountSize = 752

// Raydium AMM v4 status values.
const (
	AmmV4StatusInitialized uint64 = 1
	AmmV4StatusSwapOnly    uint64 = 6
)

// Raydium AMM v4 liquidity state layout offsets.
const (
	ammV4StatusOffset          = 0
	ammV4BaseDecimalOffset     = 32
	ammV4QuoteDecimalOffset    = 40
	ammV4PoolOpenTimeOffset    = 224
	ammV4BaseVaultOffset       = 336
	ammV4QuoteVaultOffset      = 368
	ammV4BaseMintOffset        = 400
	ammV4QuoteMintOffset       = 432
	ammV4LpMintOffset          = 464
	ammV4OpenOrdersOffset      = 496
	ammV4MarketIDOffset        = 528
	ammV4MarketProgramIDOffset = 560
	ammV4TargetOrdersOffset    = 592
)

// AmmV4Pool is the subset of a Raydium AMM v4 liquidity state used downstream.
type AmmV4Pool struct {
	Status          uint64
	BaseDecimal     uint64
	QuoteDecimal    uint64
	PoolOpenTime    uint64 // unix seconds
	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketID        solana.PublicKey
	MarketProgramID solana.PublicKey
	TargetOrders    solana.PublicKey
}

// DecodeAmmV4 decodes a Raydium AMM v4 liquidity state account.
func DecodeAmmV4(data []byte) (*AmmV4Pool, error) {
	if len(data) != AmmV4AccountSize {
		return nil, fmt.Errorf("amm v4: %w: %d", ErrUnexpectedSize, len(data))
	}

	return &AmmV4Pool{
		Status:          readU64(data, ammV4StatusOffset),
		BaseDecimal:     readU64(data, ammV4BaseDecimalOffset),
		QuoteDecimal:    readU64(data, ammV4QuoteDecimalOffset),
		PoolOpenTime:    readU64(data, ammV4PoolOpenTimeOffset),
		BaseVault:       readPubkey(data, ammV4BaseVaultOffset),
		QuoteVault:      readPubkey(data, ammV4QuoteVaultOffset),
		BaseMint:        readPubkey(data, ammV4BaseMintOffset),
		QuoteMint:       readPubkey(data, ammV4QuoteMintOffset),
		LpMint:          readPubkey(data, ammV4LpMintOffset),
		OpenOrders:      readPubkey(data, ammV4OpenOrdersOffset),
		MarketID:        readPubkey(data, ammV4MarketIDOffset),
		MarketProgramID: readPubkey(data, ammV4MarketProgramIDOffset),
		TargetOrders:    readPubkey(data, ammV4TargetOrdersOffset),
	}, nil
}

// Protocol implements AccountState.
func (p *AmmV4Pool) Protocol() domain.Protocol { return domain.ProtocolAmmV4 }

// Mints implements AccountState.
func (p *AmmV4Pool) Mints() (solana.PublicKey, solana.PublicKey) { return p.BaseMint, p.QuoteMint }

// Tradeable reports whether swaps are enabled for the pool status.
func (p *AmmV4Pool) Tradeable() bool {
	return p.Status == AmmV4StatusInitialized || p.Status == AmmV4StatusSwapOnly
}
