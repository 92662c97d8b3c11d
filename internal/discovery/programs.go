package discovery

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Known program IDs.
var (
	// OpenBookProgram is the OpenBook (Serum v3 layout) market program ID.
	OpenBookProgram = solana.MustPublicKeyFromBase58("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	// RaydiumAmmV4Program is the Raydium AMM v4 program ID.
	RaydiumAmmV4Program = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	// RaydiumCpmmProgram is the Raydium constant-product (CPMM) program ID.
	RaydiumCpmmProgram = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
	// MeteoraDlmmProgram is the Meteora DLMM program ID.
	MeteoraDlmmProgram = solana.MustPublicKeyFromBase58("LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9t6ci5Ejx")
	// TokenProgram is the SPL Token program ID.
	TokenProgram = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// Quote mints accepted by alias.
var (
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// ResolveQuoteMint accepts "wsol", "usdc" or a base58 mint address.
func ResolveQuoteMint(value string) (solana.PublicKey, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "wsol", "sol":
		return WSOLMint, nil
	case "usdc":
		return USDCMint, nil
	}
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(value))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("quote mint %q: %w", value, err)
	}
	return pk, nil
}

// accountDiscriminator returns the Anchor account discriminator for name.
func accountDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("account:" + name))
	return hash[:8]
}
