package discovery

import (
	"bytes"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// DlmmMinAccountSize covers the LbPair fields through reserve_y.
// LbPair accounts embed bin bitmaps and reward arrays, so no exact size is assumed.
const DlmmMinAccountSize = 216

// DLMM pair status values.
const (
	DlmmStatusEnabled  uint8 = 0
	DlmmStatusDisabled uint8 = 1
)

// lbPairDiscriminator separates LbPair from the program's other account kinds.
var lbPairDiscriminator = accountDiscriminator("LbPair")

// Meteora DLMM LbPair layout offsets.
const (
	dlmmPairTypeOffset        = 75
	dlmmActiveIDOffset        = 76
	dlmmBinStepOffset         = 80
	dlmmStatusOffset          = 82
	dlmmActivationTypeOffset  = 86
	dlmmTokenXMintOffset      = 88
	dlmmTokenYMintOffset      = 120
	dlmmReserveXOffset        = 152
	dlmmReserveYOffset        = 184
	dlmmActivationPointOffset = 816
)

// DlmmPair is a decoded Meteora DLMM LbPair.
type DlmmPair struct {
	PairType       uint8
	ActiveID       int32
	BinStep        uint16
	Status         uint8
	ActivationType uint8
	TokenXMint     solana.PublicKey
	TokenYMint     solana.PublicKey
	ReserveX       solana.PublicKey
	ReserveY       solana.PublicKey
	// ActivationPoint is nil when the account is too short to carry it.
	ActivationPoint *uint64
}

// DecodeDlmm decodes a Meteora DLMM LbPair account. Short accounts and other
// account kinds of the program yield errors wrapping ErrForeignAccount.
func DecodeDlmm(data []byte) (*DlmmPair, error) {
	if len(data) < DlmmMinAccountSize {
		return nil, ErrAccountTooSmall
	}
	if !bytes.Equal(data[:8], lbPairDiscriminator) {
		return nil, ErrForeignAccount
	}

	pair := &DlmmPair{
		PairType:       data[dlmmPairTypeOffset],
		ActiveID:       readI32(data, dlmmActiveIDOffset),
		BinStep:        readU16(data, dlmmBinStepOffset),
		Status:         data[dlmmStatusOffset],
		ActivationType: data[dlmmActivationTypeOffset],
		TokenXMint:     readPubkey(data, dlmmTokenXMintOffset),
		TokenYMint:     readPubkey(data, dlmmTokenYMintOffset),
		ReserveX:       readPubkey(data, dlmmReserveXOffset),
		ReserveY:       readPubkey(data, dlmmReserveYOffset),
	}
	if len(data) >= dlmmActivationPointOffset+8 {
		point := readU64(data, dlmmActivationPointOffset)
		pair.ActivationPoint = &point
	}
	return pair, nil
}

// Protocol implements AccountState.
func (p *DlmmPair) Protocol() domain.Protocol { return domain.ProtocolDlmm }

// Mints implements AccountState.
func (p *DlmmPair) Mints() (solana.PublicKey, solana.PublicKey) { return p.TokenXMint, p.TokenYMint }

// Tradeable reports whether the pair status is enabled.
func (p *DlmmPair) Tradeable() bool {
	return p.Status == DlmmStatusEnabled
}
