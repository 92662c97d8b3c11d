package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-pool-sniper/internal/domain"
)

func TestWatches_EnabledSetOnly(t *testing.T) {
	assert.Empty(t, Watches(WatchConfig{}))

	watches := Watches(WatchConfig{
		QuoteMint:     WSOLMint,
		Wallet:        testWallet,
		Markets:       true,
		Cpmm:          true,
		WalletChanges: true,
	})
	require.Len(t, watches, 4)
	assert.Equal(t, domain.ProtocolMarket, watches[0].Protocol)
	assert.Equal(t, domain.ProtocolCpmm, watches[1].Protocol)
	assert.Equal(t, domain.ProtocolCpmm, watches[2].Protocol)
	assert.Equal(t, domain.ProtocolWallet, watches[3].Protocol)
}

func TestWatch_ServerFiltersMatchLayouts(t *testing.T) {
	// Every server filter must accept the account it is meant to deliver.
	assert.True(t, MarketWatch(WSOLMint).Filter.Matches(marketAccount(3, testMintA, WSOLMint, 0)))
	assert.False(t, MarketWatch(WSOLMint).Filter.Matches(marketAccount(3, WSOLMint, testMintA, 0)))
	assert.True(t, DlmmWatch().Filter.Matches(make([]byte, 8)))
	assert.True(t, WalletWatch(testWallet).Filter.Matches(tokenAccount(testMintA, testWallet, 1)))
	assert.False(t, WalletWatch(testWallet).Filter.Matches(tokenAccount(testMintA, testMintA, 1)))
}

// delivered counts the watches whose filter accepts data.
func delivered(watches []Watch, data []byte) int {
	n := 0
	for _, w := range watches {
		if w.Filter.Matches(data) {
			n++
		}
	}
	return n
}

func TestPoolWatches_QuoteInEitherSlot(t *testing.T) {
	amm := AmmV4Watches(WSOLMint)
	require.Len(t, amm, 2)
	for _, w := range amm {
		assert.Equal(t, domain.ProtocolAmmV4, w.Protocol)
	}
	assert.Equal(t, 1, delivered(amm, ammV4Account(AmmV4StatusSwapOnly, testMintA, WSOLMint)))
	assert.Equal(t, 1, delivered(amm, ammV4Account(AmmV4StatusSwapOnly, WSOLMint, testMintA)))
	assert.Equal(t, 0, delivered(amm, ammV4Account(AmmV4StatusSwapOnly, testMintA, testMintA)))
	assert.Equal(t, 0, delivered(amm, ammV4Account(AmmV4StatusInitialized, testMintA, WSOLMint)))

	cpmm := CpmmWatches(WSOLMint)
	require.Len(t, cpmm, 2)
	for _, w := range cpmm {
		assert.Equal(t, domain.ProtocolCpmm, w.Protocol)
	}
	assert.Equal(t, 1, delivered(cpmm, cpmmAccount(CpmmStatusSwapDisabled, testMintA, WSOLMint)))
	assert.Equal(t, 1, delivered(cpmm, cpmmAccount(0, WSOLMint, testMintA)))
	assert.Equal(t, 0, delivered(cpmm, cpmmAccount(0, testMintA, testMintA)))
}

func TestResolveQuoteMint(t *testing.T) {
	pk, err := ResolveQuoteMint("WSOL")
	require.NoError(t, err)
	assert.Equal(t, WSOLMint, pk)

	pk, err = ResolveQuoteMint("usdc")
	require.NoError(t, err)
	assert.Equal(t, USDCMint, pk)

	pk, err = ResolveQuoteMint(testMintA.String())
	require.NoError(t, err)
	assert.Equal(t, testMintA, pk)

	_, err = ResolveQuoteMint("not-a-key")
	assert.Error(t, err)
}
