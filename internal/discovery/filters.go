package discovery

import (
	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/domain"
)

// WatchConfig selects which program subscriptions are opened.
type WatchConfig struct {
	QuoteMint solana.PublicKey
	Wallet    solana.PublicKey

	Markets bool
	AmmV4   bool
	Cpmm    bool
	Dlmm    bool
	// WalletChanges subscribes to the wallet's token accounts (auto-sell).
	WalletChanges bool
}

// Watch is one program subscription with its server-side filter.
type Watch struct {
	Protocol domain.Protocol
	Program  solana.PublicKey
	Filter   chain.ProgramFilter
}

// Watches returns the subscriptions implied by cfg, in a stable order. Pool
// layouts get one subscription per quote slot under the same protocol.
func Watches(cfg WatchConfig) []Watch {
	var watches []Watch
	if cfg.Markets {
		watches = append(watches, MarketWatch(cfg.QuoteMint))
	}
	if cfg.AmmV4 {
		watches = append(watches, AmmV4Watches(cfg.QuoteMint)...)
	}
	if cfg.Cpmm {
		watches = append(watches, CpmmWatches(cfg.QuoteMint)...)
	}
	if cfg.Dlmm {
		watches = append(watches, DlmmWatch())
	}
	if cfg.WalletChanges {
		watches = append(watches, WalletWatch(cfg.Wallet))
	}
	return watches
}

// MarketWatch matches OpenBook markets quoted in quote.
func MarketWatch(quote solana.PublicKey) Watch {
	return Watch{
		Protocol: domain.ProtocolMarket,
		Program:  OpenBookProgram,
		Filter: chain.ProgramFilter{
			DataSize: MarketV3AccountSize,
			Memcmp:   []chain.Memcmp{{Offset: marketQuoteMintOffset, Bytes: quote.Bytes()}},
		},
	}
}

// AmmV4Watches matches swap-only AMM v4 pools backed by OpenBook markets
// with quote in the base slot, then in the quote slot.
func AmmV4Watches(quote solana.PublicKey) []Watch {
	watch := func(offset uint64) Watch {
		return Watch{
			Protocol: domain.ProtocolAmmV4,
			Program:  RaydiumAmmV4Program,
			Filter: chain.ProgramFilter{
				DataSize: AmmV4AccountSize,
				Memcmp: []chain.Memcmp{
					{Offset: ammV4MarketProgramIDOffset, Bytes: OpenBookProgram.Bytes()},
					{Offset: ammV4StatusOffset, Bytes: u64LE(AmmV4StatusSwapOnly)},
					{Offset: offset, Bytes: quote.Bytes()},
				},
			},
		}
	}
	return []Watch{watch(ammV4BaseMintOffset), watch(ammV4QuoteMintOffset)}
}

// CpmmWatches matches CPMM PoolState accounts with quote as token0, then as token1.
func CpmmWatches(quote solana.PublicKey) []Watch {
	watch := func(offset uint64) Watch {
		return Watch{
			Protocol: domain.ProtocolCpmm,
			Program:  RaydiumCpmmProgram,
			Filter: chain.ProgramFilter{
				DataSize: CpmmAccountSize,
				Memcmp: []chain.Memcmp{
					{Offset: 0, Bytes: cpmmDiscriminator},
					{Offset: offset, Bytes: quote.Bytes()},
				},
			},
		}
	}
	return []Watch{watch(cpmmToken0MintOffset), watch(cpmmToken1MintOffset)}
}

// DlmmWatch subscribes to every DLMM program account. LbPair has no fixed
// size, so kind checks happen in DecodeDlmm.
func DlmmWatch() Watch {
	return Watch{
		Protocol: domain.ProtocolDlmm,
		Program:  MeteoraDlmmProgram,
	}
}

// WalletWatch matches SPL token accounts owned by wallet.
func WalletWatch(wallet solana.PublicKey) Watch {
	return Watch{
		Protocol: domain.ProtocolWallet,
		Program:  TokenProgram,
		Filter: chain.ProgramFilter{
			DataSize: TokenAccountSize,
			Memcmp:   []chain.Memcmp{{Offset: tokenOwnerOffset, Bytes: wallet.Bytes()}},
		},
	}
}
