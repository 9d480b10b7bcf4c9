package substrate

import (
	"math/bits"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
)

// newMortalEra returns an era of `period` blocks starting at the given block.
// period must be a power of two between 4 and 65536.
func newMortalEra(currentBlockNumber, period uint64) types.ExtrinsicEra {
	phase := currentBlockNumber % period

	quantizeFactor := period >> 12
	if quantizeFactor < 1 {
		quantizeFactor = 1
	}
	quantizedPhase := phase / quantizeFactor * quantizeFactor

	// the low 4 bits hold log2(period)-1, clamped to [1, 15]
	low := uint16(bits.TrailingZeros64(period) - 1)
	if low < 1 {
		low = 1
	} else if low > 15 {
		low = 15
	}
	encoded := low | uint16((quantizedPhase/quantizeFactor)<<4)

	return types.ExtrinsicEra{
		IsMortalEra: true,
		AsMortalEra: types.MortalEra{
			First:  byte(encoded),
			Second: byte(encoded >> 8),
		},
	}
}
