package discovery

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/domain"
)

// Decode errors.
var (
	// ErrForeignAccount marks data that belongs to a different account kind.
	// Such accounts are skipped, not counted as decode failures.
	ErrForeignAccount = errors.New("foreign account kind")

	// ErrAccountTooSmall rejects data shorter than the layout minimum.
	ErrAccountTooSmall = fmt.Errorf("%w: account too small", ErrForeignAccount)

	// ErrUnexpectedSize is returned when a fixed-size layout has the wrong length.
	ErrUnexpectedSize = errors.New("unexpected account size")

	// ErrDiscriminator is returned when a fixed-size Anchor account has the wrong discriminator.
	ErrDiscriminator = errors.New("discriminator mismatch")
)

// AccountState is the decoded view shared by pool and market layouts.
type AccountState interface {
	// Protocol returns the layout tag.
	Protocol() domain.Protocol
	// Mints returns the two interchangeable mint slots in on-chain order.
	Mints() (solana.PublicKey, solana.PublicKey)
	// Tradeable reports whether the lifecycle flag currently permits swaps.
	Tradeable() bool
}

// Decode decodes data for a pool or market protocol.
func Decode(protocol domain.Protocol, data []byte) (AccountState, error) {
	var (
		state AccountState
		err   error
	)
	switch protocol {
	case domain.ProtocolMarket:
		var m *MarketV3
		m, err = DecodeMarketV3(data)
		state = m
	case domain.ProtocolAmmV4:
		var p *AmmV4Pool
		p, err = DecodeAmmV4(data)
		state = p
	case domain.ProtocolCpmm:
		var p *CpmmPool
		p, err = DecodeCpmm(data)
		state = p
	case domain.ProtocolDlmm:
		var p *DlmmPair
		p, err = DecodeDlmm(data)
		state = p
	default:
		return nil, fmt.Errorf("no account decoder for protocol %q", protocol)
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func readPubkey(data []byte, offset int) solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], data[offset:offset+32])
	return pk
}

func readU64(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}

func readU16(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset : offset+2])
}

func readI32(data []byte, offset int) int32 {
	return int32(binary.LittleEndian.Uint32(data[offset : offset+4]))
}

func u64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
