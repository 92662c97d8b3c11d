package discovery

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// ErrOnCurve is returned when seeds hash to a point on the ed25519 curve.
var ErrOnCurve = errors.New("derived address is on the ed25519 curve")

const pdaMarker = "ProgramDerivedAddress"

// createProgramAddress derives a program address from explicit seeds, no bump search.
func createProgramAddress(seeds [][]byte, program solana.PublicKey) (solana.PublicKey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var addr solana.PublicKey
	copy(addr[:], h.Sum(nil))

	if isOnCurve(addr[:]) {
		return solana.PublicKey{}, ErrOnCurve
	}
	return addr, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
