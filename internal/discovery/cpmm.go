package discovery

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// CpmmAccountSize is the size of a Raydium CPMM PoolState account, discriminator included.
const CpmmAccountSize = 637

// CPMM status bits. A set bit disables the operation.
const (
	CpmmStatusDepositDisabled  uint8 = 1 << 0
	CpmmStatusWithdrawDisabled uint8 = 1 << 1
	CpmmStatusSwapDisabled     uint8 = 1 << 2
)

// cpmmDiscriminator identifies PoolState among the program's account kinds.
var cpmmDiscriminator = accountDiscriminator("PoolState")

// Raydium CPMM PoolState layout offsets.
const (
	cpmmAmmConfigOffset      = 8
	cpmmPoolCreatorOffset    = 40
	cpmmToken0VaultOffset    = 72
	cpmmToken1VaultOffset    = 104
	cpmmLpMintOffset         = 136
	cpmmToken0MintOffset     = 168
	cpmmToken1MintOffset     = 200
	cpmmToken0ProgramOffset  = 232
	cpmmToken1ProgramOffset  = 264
	cpmmObservationKeyOffset = 296
	cpmmAuthBumpOffset       = 328
	cpmmStatusOffset         = 329
	cpmmLpDecimalsOffset     = 330
	cpmmMint0DecimalsOffset  = 331
	cpmmMint1DecimalsOffset  = 332
	cpmmLpSupplyOffset       = 333
	cpmmOpenTimeOffset       = 373
)

// CpmmPool is a decoded Raydium CPMM PoolState.
type CpmmPool struct {
	AmmConfig      solana.PublicKey
	PoolCreator    solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	LpMint         solana.PublicKey
	Token0Mint     solana.PublicKey
	Token1Mint     solana.PublicKey
	Token0Program  solana.PublicKey
	Token1Program  solana.PublicKey
	ObservationKey solana.PublicKey
	AuthBump       uint8
	Status         uint8
	LpMintDecimals uint8
	Mint0Decimals  uint8
	Mint1Decimals  uint8
	LpSupply       uint64
	OpenTime       uint64 // unix seconds
}

// DecodeCpmm decodes a Raydium CPMM PoolState account.
func DecodeCpmm(data []byte) (*CpmmPool, error) {
	if len(data) != CpmmAccountSize {
		return nil, fmt.Errorf("cpmm: %w: %d", ErrUnexpectedSize, len(data))
	}
	if !bytes.Equal(data[:8], cpmmDiscriminator) {
		return nil, fmt.Errorf("cpmm: %w", ErrDiscriminator)
	}

	return &CpmmPool{
		AmmConfig:      readPubkey(data, cpmmAmmConfigOffset),
		PoolCreator:    readPubkey(data, cpmmPoolCreatorOffset),
		Token0Vault:    readPubkey(data, cpmmToken0VaultOffset),
		Token1Vault:    readPubkey(data, cpmmToken1VaultOffset),
		LpMint:         readPubkey(data, cpmmLpMintOffset),
		Token0Mint:     readPubkey(data, cpmmToken0MintOffset),
		Token1Mint:     readPubkey(data, cpmmToken1MintOffset),
		Token0Program:  readPubkey(data, cpmmToken0ProgramOffset),
		Token1Program:  readPubkey(data, cpmmToken1ProgramOffset),
		ObservationKey: readPubkey(data, cpmmObservationKeyOffset),
		AuthBump:       data[cpmmAuthBumpOffset],
		Status:         data[cpmmStatusOffset],
		LpMintDecimals: data[cpmmLpDecimalsOffset],
		Mint0Decimals:  data[cpmmMint0DecimalsOffset],
		Mint1Decimals:  data[cpmmMint1DecimalsOffset],
		LpSupply:       readU64(data, cpmmLpSupplyOffset),
		OpenTime:       readU64(data, cpmmOpenTimeOffset),
	}, nil
}

// Protocol implements AccountState.
func (p *CpmmPool) Protocol() domain.Protocol { return domain.ProtocolCpmm }

// Mints implements AccountState.
func (p *CpmmPool) Mints() (solana.PublicKey, solana.PublicKey) { return p.Token0Mint, p.Token1Mint }

// Tradeable reports whether the swap-disabled bit is clear.
func (p *CpmmPool) Tradeable() bool {
	return p.Status&CpmmStatusSwapDisabled == 0
}
