package discovery

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_QuoteInEitherSlot(t *testing.T) {
	other := solana.NewWallet().PublicKey()

	tests := []struct {
		name  string
		watch Watch
		data  []byte
		want  Outcome
	}{
		{"amm quote in slot A", AmmV4Watches(WSOLMint)[0], ammV4Account(AmmV4StatusSwapOnly, WSOLMint, testMintA), OutcomeEmitted},
		{"amm quote in slot B", AmmV4Watches(WSOLMint)[0], ammV4Account(AmmV4StatusSwapOnly, testMintA, WSOLMint), OutcomeEmitted},
		{"amm no quote", AmmV4Watches(WSOLMint)[0], ammV4Account(AmmV4StatusSwapOnly, testMintA, other), OutcomeNoQuote},
		{"cpmm quote in slot A", CpmmWatches(WSOLMint)[0], cpmmAccount(0, WSOLMint, testMintA), OutcomeEmitted},
		{"cpmm quote in slot B", CpmmWatches(WSOLMint)[0], cpmmAccount(0, testMintA, WSOLMint), OutcomeEmitted},
		{"cpmm no quote", CpmmWatches(WSOLMint)[0], cpmmAccount(0, testMintA, other), OutcomeNoQuote},
		{"dlmm quote in slot A", DlmmWatch(), dlmmAccount(904, DlmmStatusEnabled, WSOLMint, testMintA), OutcomeEmitted},
		{"dlmm quote in slot B", DlmmWatch(), dlmmAccount(904, DlmmStatusEnabled, testMintA, WSOLMint), OutcomeEmitted},
		{"dlmm no quote", DlmmWatch(), dlmmAccount(904, DlmmStatusEnabled, testMintA, other), OutcomeNoQuote},
		{"market quote in slot B", MarketWatch(WSOLMint), marketAccount(MarketFlagInitialized|MarketFlagMarket, testMintA, WSOLMint, 0), OutcomeEmitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, outcome, err := Evaluate(tt.watch, tt.data, WSOLMint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
			if tt.want == OutcomeEmitted {
				require.NotNil(t, state)
				assert.Equal(t, tt.watch.Protocol, state.Protocol())
			} else {
				assert.Nil(t, state)
			}
		})
	}
}

func TestEvaluate_TradeableFlagFlip(t *testing.T) {
	disabled := cpmmAccount(CpmmStatusSwapDisabled, testMintA, WSOLMint)
	_, outcome, err := Evaluate(CpmmWatches(WSOLMint)[0], disabled, WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotTradeable, outcome)

	enabled := cpmmAccount(0, testMintA, WSOLMint)
	state, outcome, err := Evaluate(CpmmWatches(WSOLMint)[0], enabled, WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmitted, outcome)
	assert.NotNil(t, state)

	_, outcome, _ = Evaluate(DlmmWatch(), dlmmAccount(904, DlmmStatusDisabled, testMintA, WSOLMint), WSOLMint)
	assert.Equal(t, OutcomeNotTradeable, outcome)
}

func TestEvaluate_DecodeFailures(t *testing.T) {
	_, outcome, err := Evaluate(AmmV4Watches(WSOLMint)[0], []byte{0xde, 0xad}, WSOLMint)
	assert.Error(t, err)
	assert.Equal(t, OutcomeDecodeError, outcome)

	_, outcome, err = Evaluate(DlmmWatch(), make([]byte, 64), WSOLMint)
	assert.ErrorIs(t, err, ErrAccountTooSmall)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestEvaluateWallet(t *testing.T) {
	acct, outcome, err := EvaluateWallet(tokenAccount(testMintA, testWallet, 10), WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, OutcomeEmitted, outcome)
	assert.Equal(t, testMintA, acct.Mint)

	acct, outcome, err = EvaluateWallet(tokenAccount(WSOLMint, testWallet, 10), WSOLMint)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Nil(t, acct)

	_, outcome, err = EvaluateWallet(make([]byte, 10), WSOLMint)
	assert.Error(t, err)
	assert.Equal(t, OutcomeDecodeError, outcome)
}

func TestStats_ObserveAndReset(t *testing.T) {
	var s Stats
	s.Observe(OutcomeEmitted)
	s.Observe(OutcomeEmitted)
	s.Observe(OutcomeNoQuote)
	s.Observe(OutcomeNotTradeable)
	s.Observe(OutcomeDecodeError)
	s.Observe(OutcomeIgnored)

	assert.Equal(t, Counters{
		Notifications: 6,
		DecodeErrors:  1,
		NoQuote:       1,
		NotTradeable:  1,
		Ignored:       1,
		Emitted:       2,
	}, s.Reset())
	assert.Equal(t, Counters{}, s.Reset())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "emitted", OutcomeEmitted.String())
	assert.Equal(t, "not_tradeable", OutcomeNotTradeable.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
