package discovery

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

var (
	testMintA  = solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R")
	testWallet = solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
)

func putPubkey(data []byte, offset int, pk solana.PublicKey) {
	copy(data[offset:offset+32], pk[:])
}

func putU64(data []byte, offset int, v uint64) {
	binary.LittleEndian.PutUint64(data[offset:offset+8], v)
}

func ammV4Account(status uint64, base, quote solana.PublicKey) []byte {
	data := make([]byte, AmmV4AccountSize)
	putU64(data, ammV4StatusOffset, status)
	putU64(data, ammV4BaseDecimalOffset, 6)
	putU64(data, ammV4QuoteDecimalOffset, 9)
	putU64(data, ammV4PoolOpenTimeOffset, 1704067200)
	putPubkey(data, ammV4BaseMintOffset, base)
	putPubkey(data, ammV4QuoteMintOffset, quote)
	putPubkey(data, ammV4MarketProgramIDOffset, OpenBookProgram)
	return data
}

func cpmmAccount(status uint8, mint0, mint1 solana.PublicKey) []byte {
	data := make([]byte, CpmmAccountSize)
	copy(data, cpmmDiscriminator)
	putPubkey(data, cpmmToken0MintOffset, mint0)
	putPubkey(data, cpmmToken1MintOffset, mint1)
	data[cpmmStatusOffset] = status
	data[cpmmMint0DecimalsOffset] = 9
	data[cpmmMint1DecimalsOffset] = 6
	putU64(data, cpmmOpenTimeOffset, 1704067200)
	return data
}

func dlmmAccount(size int, status uint8, x, y solana.PublicKey) []byte {
	data := make([]byte, size)
	copy(data, lbPairDiscriminator)
	activeID := int32(-42)
	binary.LittleEndian.PutUint32(data[dlmmActiveIDOffset:], uint32(activeID))
	binary.LittleEndian.PutUint16(data[dlmmBinStepOffset:], 25)
	data[dlmmStatusOffset] = status
	putPubkey(data, dlmmTokenXMintOffset, x)
	putPubkey(data, dlmmTokenYMintOffset, y)
	if size >= dlmmActivationPointOffset+8 {
		putU64(data, dlmmActivationPointOffset, 300_000_000)
	}
	return data
}

func marketAccount(flags uint64, base, quote solana.PublicKey, nonce uint64) []byte {
	data := make([]byte, MarketV3AccountSize)
	copy(data, "serum")
	putU64(data, marketAccountFlagsOffset, flags)
	putPubkey(data, marketOwnAddressOffset, testMarketAddress)
	putU64(data, marketVaultSignerNonceOffset, nonce)
	putPubkey(data, marketBaseMintOffset, base)
	putPubkey(data, marketQuoteMintOffset, quote)
	putU64(data, marketBaseLotSizeOffset, 1_000_000)
	putU64(data, marketQuoteLotSizeOffset, 100)
	return data
}

var testMarketAddress = solana.MustPublicKeyFromBase58("8BnEgHoWFysVcuFFX7QztDmzuH8r5ZFvyP3sYwn1XTh6")

func tokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, TokenAccountSize)
	putPubkey(data, tokenMintOffset, mint)
	putPubkey(data, tokenOwnerOffset, owner)
	putU64(data, tokenAmountOffset, amount)
	data[tokenStateOffset] = TokenAccountInitialized
	return data
}
