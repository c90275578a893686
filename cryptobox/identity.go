package cryptobox

import (
	"crypto/ecdh"
	"fmt"
)

// IdentityKey is one user's asymmetric identity on one device. The private
// scalar stays on the device that generated it; only the public half is ever
// exported for the shared directory.
type IdentityKey struct {
	priv *ecdh.PrivateKey
}

// GenerateIdentityKey creates a fresh P-256 identity key pair from the
// package randomness source.
func GenerateIdentityKey() (*IdentityKey, error) {
	priv, err := ecdh.P256().GenerateKey(randomSource())
	if err != nil {
		return nil, err
	}
	return &IdentityKey{priv: priv}, nil
}

// PublicBytes returns the uncompressed public point, the form published to
// the directory.
func (k *IdentityKey) PublicBytes() []byte {
	return k.priv.PublicKey().Bytes()
}

// PrivateBytes returns the private scalar for device-local persistence.
func (k *IdentityKey) PrivateBytes() []byte {
	return k.priv.Bytes()
}

// ParseIdentityKey restores an identity key from the private scalar bytes
// produced by PrivateBytes.
func ParseIdentityKey(privateBytes []byte) (*IdentityKey, error) {
	priv, err := ecdh.P256().NewPrivateKey(privateBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &IdentityKey{priv: priv}, nil
}

// ParseIdentityPublicKey validates public key bytes from the directory.
func ParseIdentityPublicKey(publicBytes []byte) (*ecdh.PublicKey, error) {
	pub, err := ecdh.P256().NewPublicKey(publicBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}
