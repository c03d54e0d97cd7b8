package feerelayer

import (
	"crypto/ed25519"
	"sync"
)

// cache holds the network constants and relay state fetched by Load. All
// access goes through the accessors; the lock is never held across network
// calls.
type cache struct {
	mu sync.RWMutex

	minimumTokenAccountBalance *uint64
	minimumRelayAccountBalance *uint64
	lamportsPerSignature       *uint64
	feePayerAddress            ed25519.PublicKey

	relayAccountStatus      *RelayAccountStatus
	freeTransactionFeeLimit *FreeTransactionFeeLimit
}

func (c *cache) loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.minimumTokenAccountBalance != nil &&
		c.minimumRelayAccountBalance != nil &&
		c.lamportsPerSignature != nil &&
		c.feePayerAddress != nil
}

func (c *cache) commitLoad(
	minimumTokenAccountBalance, minimumRelayAccountBalance, lamportsPerSignature uint64,
	feePayerAddress ed25519.PublicKey,
	relayAccountStatus RelayAccountStatus,
	freeTransactionFeeLimit FreeTransactionFeeLimit,
) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.minimumTokenAccountBalance = &minimumTokenAccountBalance
	c.minimumRelayAccountBalance = &minimumRelayAccountBalance
	c.lamportsPerSignature = &lamportsPerSignature
	c.feePayerAddress = feePayerAddress
	c.relayAccountStatus = &relayAccountStatus
	c.freeTransactionFeeLimit = &freeTransactionFeeLimit
}

func (c *cache) getMinimumTokenAccountBalance() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.minimumTokenAccountBalance == nil {
		return 0, false
	}
	return *c.minimumTokenAccountBalance, true
}

func (c *cache) getMinimumRelayAccountBalance() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.minimumRelayAccountBalance == nil {
		return 0, false
	}
	return *c.minimumRelayAccountBalance, true
}

func (c *cache) getLamportsPerSignature() (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lamportsPerSignature == nil {
		return 0, false
	}
	return *c.lamportsPerSignature, true
}

func (c *cache) getFeePayerAddress() (ed25519.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.feePayerAddress == nil {
		return nil, false
	}
	return c.feePayerAddress, true
}

func (c *cache) getRelayAccountStatus() (RelayAccountStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.relayAccountStatus == nil {
		return RelayAccountStatus{}, false
	}
	return *c.relayAccountStatus, true
}

func (c *cache) setRelayAccountStatus(status RelayAccountStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.relayAccountStatus = &status
}

func (c *cache) getFreeTransactionFeeLimit() (FreeTransactionFeeLimit, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.freeTransactionFeeLimit == nil {
		return FreeTransactionFeeLimit{}, false
	}
	return *c.freeTransactionFeeLimit, true
}

func (c *cache) setFreeTransactionFeeLimit(limit FreeTransactionFeeLimit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.freeTransactionFeeLimit = &limit
}

// markTransactionAsCompleted burns one allowance use and the provided fee
// amount from the free transaction allowance.
func (c *cache) markTransactionAsCompleted(freeFeeAmountUsed uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.freeTransactionFeeLimit == nil {
		return
	}
	c.freeTransactionFeeLimit.UsedCount++
	c.freeTransactionFeeLimit.UsedAmount += freeFeeAmountUsed
}
