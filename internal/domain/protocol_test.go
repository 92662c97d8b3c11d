package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocol_IsPool(t *testing.T) {
	pools := map[Protocol]bool{
		ProtocolMarket: false,
		ProtocolAmmV4:  true,
		ProtocolCpmm:   true,
		ProtocolDlmm:   true,
		ProtocolWallet: false,
	}
	for _, p := range AllProtocols() {
		assert.Equal(t, pools[p], p.IsPool(), string(p))
	}
	assert.Len(t, AllProtocols(), len(pools))
}
