package orca

import (
	"context"
	"crypto/ed25519"
)

// Client discovers tradable swap routes. Implementations are expected to load
// and refresh the pool set themselves.
type Client interface {
	// GetTradablePoolsPairs returns all routes (direct and transitive) from
	// fromMint to toMint, with every pool oriented in the direction of the
	// trade.
	GetTradablePoolsPairs(ctx context.Context, fromMint, toMint ed25519.PublicKey) ([]PoolsPair, error)
}

// FindBestPoolsPairForEstimatedAmount returns the route requiring the least
// input to produce the estimated output amount.
func FindBestPoolsPairForEstimatedAmount(pairs []PoolsPair, estimatedAmount uint64, slippage float64) (PoolsPair, error) {
	var best PoolsPair
	var bestInput uint64

	for _, pair := range pairs {
		input, err := pair.GetInputAmount(estimatedAmount, slippage)
		if err != nil {
			continue
		}

		if best == nil || input < bestInput {
			best = pair
			bestInput = input
		}
	}

	return best, nil
}
