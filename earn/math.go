package earn

import (
	"fmt"

	"github.com/holiman/uint256"

	"solana-m/runtime"
)

// ComputeYield returns the yield accrued by balance while the index grew from
// lastIndex to index: floor(balance * index / lastIndex) - balance. The
// product is taken in 256 bits so only a result above u64 overflows.
func ComputeYield(balance, index, lastIndex uint64) (uint64, error) {
	if lastIndex == 0 {
		return 0, fmt.Errorf("%w: zero base index", runtime.ErrMathOverflow)
	}
	if index < lastIndex {
		return 0, fmt.Errorf("%w: index %d below %d", runtime.ErrMathUnderflow, index, lastIndex)
	}

	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(balance), uint256.NewInt(index))
	if overflow {
		return 0, runtime.ErrMathOverflow
	}
	scaled := new(uint256.Int).Div(product, uint256.NewInt(lastIndex))
	if !scaled.IsUint64() {
		return 0, fmt.Errorf("%w: scaled balance exceeds u64", runtime.ErrMathOverflow)
	}
	total := scaled.Uint64()
	if total < balance {
		return 0, runtime.ErrMathUnderflow
	}
	return total - balance, nil
}

// addChecked adds two amounts, failing on u64 overflow.
func addChecked(a, b uint64) (uint64, error) {
	sum, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow || !sum.IsUint64() {
		return 0, runtime.ErrMathOverflow
	}
	return sum.Uint64(), nil
}
