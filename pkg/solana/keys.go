package solana

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// PublicKeyFromBase58 decodes a base58 encoded public key.
func PublicKeyFromBase58(value string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 encoded public key")
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key size: %d", len(raw))
	}

	return raw, nil
}

// MustPublicKeyFromBase58 decodes a base58 encoded public key, panicking on
// failure. Intended for well known program addresses.
func MustPublicKeyFromBase58(value string) ed25519.PublicKey {
	pub, err := PublicKeyFromBase58(value)
	if err != nil {
		panic(err)
	}

	return pub
}
