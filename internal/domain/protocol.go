package domain

// Protocol tags an account layout the listener can subscribe to.
// The string value doubles as the event tag and metric label.
type Protocol string

const (
	ProtocolMarket Protocol = "market"
	ProtocolAmmV4  Protocol = "pool"
	ProtocolCpmm   Protocol = "cpmm-pool"
	ProtocolDlmm   Protocol = "dlmm-pool"
	ProtocolWallet Protocol = "wallet"
)

// AllProtocols lists protocols in subscription order.
func AllProtocols() []Protocol {
	return []Protocol{ProtocolMarket, ProtocolAmmV4, ProtocolCpmm, ProtocolDlmm, ProtocolWallet}
}

// IsPool reports whether the protocol describes a tradeable pool layout.
func (p Protocol) IsPool() bool {
	switch p {
	case ProtocolAmmV4, ProtocolCpmm, ProtocolDlmm:
		return true
	}
	return false
}
