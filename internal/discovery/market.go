package discovery

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// MarketV3AccountSize is the size of an OpenBook (Serum v3 layout) market account.
const MarketV3AccountSize = 388

// Market account flag bits.
const (
	MarketFlagInitialized uint64 = 1 << 0
	MarketFlagMarket      uint64 = 1 << 1
)

// OpenBook market v3 layout offsets. The first 5 bytes are the "serum" padding.
const (
	marketAccountFlagsOffset     = 5
	marketOwnAddressOffset       = 13
	marketVaultSignerNonceOffset = 45
	marketBaseMintOffset         = 53
	marketQuoteMintOffset        = 85
	marketBaseVaultOffset        = 117
	marketQuoteVaultOffset       = 165
	marketRequestQueueOffset     = 221
	marketEventQueueOffset       = 253
	marketBidsOffset             = 285
	marketAsksOffset             = 317
	marketBaseLotSizeOffset      = 349
	marketQuoteLotSizeOffset     = 357
)

// MarketV3 is a decoded OpenBook market.
type MarketV3 struct {
	AccountFlags     uint64
	OwnAddress       solana.PublicKey
	VaultSignerNonce uint64
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	BaseVault        solana.PublicKey
	QuoteVault       solana.PublicKey
	RequestQueue     solana.PublicKey
	EventQueue       solana.PublicKey
	Bids             solana.PublicKey
	Asks             solana.PublicKey
	BaseLotSize      uint64
	QuoteLotSize     uint64
}

// DecodeMarketV3 decodes an OpenBook market account.
func DecodeMarketV3(data []byte) (*MarketV3, error) {
	if len(data) != MarketV3AccountSize {
		return nil, fmt.Errorf("market: %w: %d", ErrUnexpectedSize, len(data))
	}

	return &MarketV3{
		AccountFlags:     readU64(data, marketAccountFlagsOffset),
		OwnAddress:       readPubkey(data, marketOwnAddressOffset),
		VaultSignerNonce: readU64(data, marketVaultSignerNonceOffset),
		BaseMint:         readPubkey(data, marketBaseMintOffset),
		QuoteMint:        readPubkey(data, marketQuoteMintOffset),
		BaseVault:        readPubkey(data, marketBaseVaultOffset),
		QuoteVault:       readPubkey(data, marketQuoteVaultOffset),
		RequestQueue:     readPubkey(data, marketRequestQueueOffset),
		EventQueue:       readPubkey(data, marketEventQueueOffset),
		Bids:             readPubkey(data, marketBidsOffset),
		Asks:             readPubkey(data, marketAsksOffset),
		BaseLotSize:      readU64(data, marketBaseLotSizeOffset),
		QuoteLotSize:     readU64(data, marketQuoteLotSizeOffset),
	}, nil
}

// Protocol implements AccountState.
func (m *MarketV3) Protocol() domain.Protocol { return domain.ProtocolMarket }

// Mints implements AccountState.
func (m *MarketV3) Mints() (solana.PublicKey, solana.PublicKey) { return m.BaseMint, m.QuoteMint }

// Tradeable reports whether the market is initialized.
func (m *MarketV3) Tradeable() bool {
	want := MarketFlagInitialized | MarketFlagMarket
	return m.AccountFlags&want == want
}

// VaultSigner derives the market's vault signer authority for program.
func (m *MarketV3) VaultSigner(program solana.PublicKey) (solana.PublicKey, error) {
	return createProgramAddress([][]byte{m.OwnAddress[:], u64LE(m.VaultSignerNonce)}, program)
}
