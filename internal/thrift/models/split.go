package models

import (
	"math/bits"

	dErrors "ahorro/pkg/domain-errors"
)

// Split is how one contribution is routed between the two pools.
type Split struct {
	ToGroupPool     uint64
	ToInsurancePool uint64
}

// SplitContribution computes floor(amount*bps/10000) with a 128-bit
// intermediate product. ToGroupPool + ToInsurancePool == amount always holds.
func SplitContribution(amount uint64, bps uint16) (Split, error) {
	if bps > MaxInsuranceBPS {
		return Split{}, dErrors.New(dErrors.CodeInvalidConfiguration, "insurance bps must be at most 1000")
	}
	hi, lo := bits.Mul64(amount, uint64(bps))
	// hi < bps <= 1000 < BPSDenominator, so Div64 cannot panic.
	cut, _ := bits.Div64(hi, lo, BPSDenominator)

	toGroup, borrow := bits.Sub64(amount, cut, 0)
	if borrow != 0 {
		return Split{}, dErrors.New(dErrors.CodeArithmeticOverflow, "insurance cut exceeds contribution")
	}
	return Split{ToGroupPool: toGroup, ToInsurancePool: cut}, nil
}
