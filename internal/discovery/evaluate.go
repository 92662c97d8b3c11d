package discovery

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Outcome classifies a single account notification.
type Outcome int

const (
	OutcomeEmitted Outcome = iota
	OutcomeDecodeError
	OutcomeNoQuote
	OutcomeNotTradeable
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmitted:
		return "emitted"
	case OutcomeDecodeError:
		return "decode_error"
	case OutcomeNoQuote:
		return "no_quote"
	case OutcomeNotTradeable:
		return "not_tradeable"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// HasQuote reports whether quote sits in either mint slot of state.
func HasQuote(state AccountState, quote solana.PublicKey) bool {
	a, b := state.Mints()
	return a.Equals(quote) || b.Equals(quote)
}

// Evaluate decodes data for watch and applies the quote and tradeability checks.
// The state is returned only for OutcomeEmitted; err is set only for OutcomeDecodeError
// and OutcomeIgnored.
func Evaluate(w Watch, data []byte, quote solana.PublicKey) (AccountState, Outcome, error) {
	state, err := Decode(w.Protocol, data)
	if err != nil {
		if errors.Is(err, ErrForeignAccount) {
			return nil, OutcomeIgnored, err
		}
		return nil, OutcomeDecodeError, err
	}
	if !HasQuote(state, quote) {
		return nil, OutcomeNoQuote, nil
	}
	if !state.Tradeable() {
		return nil, OutcomeNotTradeable, nil
	}
	return state, OutcomeEmitted, nil
}

// EvaluateWallet decodes a wallet token account. Quote-mint holdings are ignored
// since they are the funding side of trades.
func EvaluateWallet(data []byte, quote solana.PublicKey) (*TokenAccount, Outcome, error) {
	acct, err := DecodeTokenAccount(data)
	if err != nil {
		return nil, OutcomeDecodeError, err
	}
	if acct.Mint.Equals(quote) {
		return nil, OutcomeIgnored, nil
	}
	return acct, OutcomeEmitted, nil
}
