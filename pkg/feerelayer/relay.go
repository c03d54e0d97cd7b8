// Package feerelayer implements the client side of the fee relay service:
// fee accounting against the relayer's free transaction allowance, relay
// account top ups via token swaps, and submission of sponsored transactions.
package feerelayer

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/p2p-wallet/fee-relayer-go/pkg/feerelayer/api"
	"github.com/p2p-wallet/fee-relayer-go/pkg/orca"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/relayprogram"
	"github.com/p2p-wallet/fee-relayer-go/pkg/solana/token"
)

// Relay coordinates fee estimation, relay account top ups, and sponsored
// transaction submission for a single owner.
type Relay struct {
	log *logrus.Entry

	solana  solana.Client
	relayer api.Client
	orca    orca.Client

	owner   ed25519.PrivateKey
	program ed25519.PublicKey

	cache cache
}

// Option configures a Relay.
type Option func(*Relay)

// WithRelayProgram overrides the relay program the engine derives addresses
// for. Intended for tests and non-mainnet deployments.
func WithRelayProgram(program ed25519.PublicKey) Option {
	return func(r *Relay) {
		r.program = program
	}
}

// New returns a Relay for the provided owner.
func New(
	solanaClient solana.Client,
	relayerClient api.Client,
	orcaClient orca.Client,
	owner ed25519.PrivateKey,
	opts ...Option,
) (*Relay, error) {
	if len(owner) != ed25519.PrivateKeySize {
		return nil, ErrUnauthorized
	}

	r := &Relay{
		log:     logrus.StandardLogger().WithField("type", "feerelayer/relay"),
		solana:  solanaClient,
		relayer: relayerClient,
		orca:    orcaClient,
		owner:   owner,
		program: relayprogram.ProgramKey,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Owner returns the owner's public key.
func (r *Relay) Owner() ed25519.PublicKey {
	return r.owner.Public().(ed25519.PublicKey)
}

// GetUserRelayAddress returns the owner's relay account address.
func (r *Relay) GetUserRelayAddress() (ed25519.PublicKey, error) {
	return relayprogram.GetUserRelayAddress(r.program, r.Owner())
}

// Load fetches the network constants and relay state the engine needs. The
// sub-fetches run concurrently; results are committed to the cache together
// once all succeed.
func (r *Relay) Load(ctx context.Context) error {
	var (
		minimumTokenAccountBalance uint64
		minimumRelayAccountBalance uint64
		lamportsPerSignature       uint64
		feePayerAddress            ed25519.PublicKey
		relayAccountStatus         RelayAccountStatus
		freeTransactionFeeLimit    FreeTransactionFeeLimit
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		minimumTokenAccountBalance, err = r.solana.GetMinimumBalanceForRentExemption(token.AccountSize)
		return err
	})
	g.Go(func() (err error) {
		minimumRelayAccountBalance, err = r.solana.GetMinimumBalanceForRentExemption(0)
		return err
	})
	g.Go(func() (err error) {
		lamportsPerSignature, err = r.solana.GetLamportsPerSignature()
		return err
	})
	g.Go(func() (err error) {
		feePayerAddress, err = r.relayer.GetFeePayerPubkey(ctx)
		return err
	})
	g.Go(func() (err error) {
		relayAccountStatus, err = r.fetchRelayAccountStatus()
		return err
	})
	g.Go(func() (err error) {
		freeTransactionFeeLimit, err = r.fetchFreeTransactionFeeLimit(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "failed to load relay info")
	}

	r.cache.commitLoad(
		minimumTokenAccountBalance,
		minimumRelayAccountBalance,
		lamportsPerSignature,
		feePayerAddress,
		relayAccountStatus,
		freeTransactionFeeLimit,
	)

	r.log.WithField("fee_payer", base58.Encode(feePayerAddress)).Debug("relay info loaded")

	return nil
}

// Loaded reports whether Load has completed at least once.
func (r *Relay) Loaded() bool {
	return r.cache.loaded()
}

// GetRelayAccountStatus returns the owner's relay account status, reusing the
// cached value when useCache is set and a value is present.
func (r *Relay) GetRelayAccountStatus(ctx context.Context, useCache bool) (RelayAccountStatus, error) {
	if useCache {
		if status, ok := r.cache.getRelayAccountStatus(); ok {
			return status, nil
		}
	}

	status, err := r.fetchRelayAccountStatus()
	if err != nil {
		return RelayAccountStatus{}, err
	}

	r.cache.setRelayAccountStatus(status)
	return status, nil
}

// GetFreeTransactionFeeLimit returns the owner's free transaction allowance,
// reusing the cached value when useCache is set and a value is present.
func (r *Relay) GetFreeTransactionFeeLimit(ctx context.Context, useCache bool) (FreeTransactionFeeLimit, error) {
	if useCache {
		if limit, ok := r.cache.getFreeTransactionFeeLimit(); ok {
			return limit, nil
		}
	}

	limit, err := r.fetchFreeTransactionFeeLimit(ctx)
	if err != nil {
		return FreeTransactionFeeLimit{}, err
	}

	r.cache.setFreeTransactionFeeLimit(limit)
	return limit, nil
}

func (r *Relay) fetchRelayAccountStatus() (RelayAccountStatus, error) {
	relayAddress, err := r.GetUserRelayAddress()
	if err != nil {
		return RelayAccountStatus{}, err
	}

	info, err := r.solana.GetAccountInfo(relayAddress, solana.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, solana.ErrNoAccountInfo) {
			return RelayAccountStatus{State: RelayAccountNotYetCreated}, nil
		}
		return RelayAccountStatus{}, errors.Wrap(err, "failed to get relay account info")
	}

	return RelayAccountStatus{
		State:   RelayAccountCreated,
		Balance: info.Lamports,
	}, nil
}

func (r *Relay) fetchFreeTransactionFeeLimit(ctx context.Context) (FreeTransactionFeeLimit, error) {
	resp, err := r.relayer.GetFreeFeeLimits(ctx, r.Owner())
	if err != nil {
		return FreeTransactionFeeLimit{}, errors.Wrap(err, "failed to get free fee limits")
	}

	return FreeTransactionFeeLimit{
		MaxCount:   resp.Limits.MaxCount,
		UsedCount:  resp.ProcessedFee.Count,
		MaxAmount:  resp.Limits.MaxAmount,
		UsedAmount: resp.ProcessedFee.TotalAmount,
	}, nil
}

// lamportsPerSignature returns the cached network fee per signature, or the
// default when the cache is cold.
func (r *Relay) lamportsPerSignature() uint64 {
	if value, ok := r.cache.getLamportsPerSignature(); ok {
		return value
	}
	return solana.DefaultLamportsPerSignature
}

// getRelayAccountCreationCost returns the fee the relayer spends creating the
// user's relay account.
func (r *Relay) getRelayAccountCreationCost() uint64 {
	value, _ := r.cache.getLamportsPerSignature()
	return value
}
