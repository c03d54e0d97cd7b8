// Package orca exposes the swap routing contract the relay engine depends on.
// Route discovery lives behind the Client interface; this package only carries
// the pool math needed to size swaps.
package orca

import (
	"crypto/ed25519"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrEmptyPoolsPair        = errors.New("pools pair is empty")
	ErrEstimatedAmountTooBig = errors.New("estimated amount exceeds pool reserves")
)

// Pool is a constant product token swap pool, oriented in the direction of the
// trade: token A is the source side, token B the destination side.
type Pool struct {
	Program   ed25519.PublicKey
	Account   ed25519.PublicKey
	Authority ed25519.PublicKey

	PoolTokenMint ed25519.PublicKey
	FeeAccount    ed25519.PublicKey

	TokenAMint    ed25519.PublicKey
	TokenBMint    ed25519.PublicKey
	TokenAccountA ed25519.PublicKey
	TokenAccountB ed25519.PublicKey
	TokenABalance uint64
	TokenBBalance uint64

	TradeFeeNumerator        uint64
	TradeFeeDenominator      uint64
	OwnerTradeFeeNumerator   uint64
	OwnerTradeFeeDenominator uint64

	Deprecated bool
}

func (p Pool) feeRatio() float64 {
	var ratio float64
	if p.TradeFeeDenominator > 0 {
		ratio += float64(p.TradeFeeNumerator) / float64(p.TradeFeeDenominator)
	}
	if p.OwnerTradeFeeDenominator > 0 {
		ratio += float64(p.OwnerTradeFeeNumerator) / float64(p.OwnerTradeFeeDenominator)
	}
	return ratio
}

// GetOutputAmount returns the amount of token B received for the provided
// amount of token A.
func (p Pool) GetOutputAmount(inputAmount uint64) uint64 {
	if inputAmount == 0 {
		return 0
	}

	inputAfterFee := float64(inputAmount) * (1 - p.feeRatio())
	out := float64(p.TokenBBalance) * inputAfterFee / (float64(p.TokenABalance) + inputAfterFee)
	return uint64(math.Floor(out))
}

// GetInputAmount returns the amount of token A required to receive the
// provided amount of token B.
func (p Pool) GetInputAmount(estimatedOutputAmount uint64) (uint64, error) {
	if estimatedOutputAmount == 0 {
		return 0, nil
	}
	if estimatedOutputAmount >= p.TokenBBalance {
		return 0, ErrEstimatedAmountTooBig
	}

	inputAfterFee := float64(p.TokenABalance) * float64(estimatedOutputAmount) / float64(p.TokenBBalance-estimatedOutputAmount)
	input := inputAfterFee / (1 - p.feeRatio())
	return uint64(math.Ceil(input)), nil
}

// GetMinimumAmountOut returns the worst acceptable output for the provided
// input under the given slippage tolerance.
func (p Pool) GetMinimumAmountOut(inputAmount uint64, slippage float64) uint64 {
	estimated := p.GetOutputAmount(inputAmount)
	return uint64(math.Floor(float64(estimated) * (1 - slippage)))
}

// PoolsPair is an ordered swap route of one (direct) or two (transitive)
// pools.
type PoolsPair []Pool

// IsTransitive reports whether the route crosses an intermediate token.
func (p PoolsPair) IsTransitive() bool {
	return len(p) == 2
}

// TransitTokenMint returns the mint bridging a transitive route.
func (p PoolsPair) TransitTokenMint() ed25519.PublicKey {
	if !p.IsTransitive() {
		return nil
	}
	return p[0].TokenBMint
}

// GetOutputAmount returns the estimated route output for the provided input.
func (p PoolsPair) GetOutputAmount(inputAmount uint64) (uint64, error) {
	if len(p) == 0 {
		return 0, ErrEmptyPoolsPair
	}

	amount := inputAmount
	for _, pool := range p {
		amount = pool.GetOutputAmount(amount)
	}
	return amount, nil
}

// GetInputAmount returns the input required so that, after applying the
// slippage tolerance to every leg, at least minimumAmountOut is received.
func (p PoolsPair) GetInputAmount(minimumAmountOut uint64, slippage float64) (uint64, error) {
	if len(p) == 0 {
		return 0, ErrEmptyPoolsPair
	}

	needed := minimumAmountOut
	for i := len(p) - 1; i >= 0; i-- {
		estimated := uint64(math.Ceil(float64(needed) / (1 - slippage)))

		input, err := p[i].GetInputAmount(estimated)
		if err != nil {
			return 0, err
		}
		needed = input
	}
	return needed, nil
}

// GetMinimumAmountOut returns the worst acceptable route output for the
// provided input under the given slippage tolerance.
func (p PoolsPair) GetMinimumAmountOut(inputAmount uint64, slippage float64) (uint64, error) {
	if len(p) == 0 {
		return 0, ErrEmptyPoolsPair
	}

	amount := inputAmount
	for _, pool := range p {
		amount = pool.GetMinimumAmountOut(amount, slippage)
	}
	return amount, nil
}
