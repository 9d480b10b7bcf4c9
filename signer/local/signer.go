package local

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	"github.com/cosmos/go-bip39"

	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

var _ signer.Signer = (*Signer)(nil)

// Signer holds an ed25519 key in memory
type Signer struct {
	key ed25519.PrivKey
}

// NewSigner returns a signer whose key is derived from the secret
func NewSigner(secret []byte) *Signer {
	return &Signer{key: ed25519.GenPrivKeyFromSecret(secret)}
}

// NewSignerFromMnemonic derives the key from the BIP-39 seed of the mnemonic
func NewSignerFromMnemonic(mnemonic, passphrase string) (*Signer, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	return NewSigner(seed), nil
}

// CreateMnemonic creates a new mnemonic
func CreateMnemonic() (string, error) {
	entropySeed, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropySeed)
}

func (s *Signer) Sign(_ context.Context, digest []byte) ([]byte, error) {
	return s.key.Sign(digest)
}

func (s *Signer) GetPublicKey(_ context.Context) ([]byte, error) {
	return s.key.PubKey().Bytes(), nil
}

// Address returns the address of the public key
func (s *Signer) Address() crypto.Address {
	return s.key.PubKey().Address()
}

// Verify checks an ed25519 signature made by the owner of pubKey
func Verify(pubKey, digest, signature []byte) bool {
	if len(pubKey) != ed25519.PubKeySize {
		return false
	}
	return ed25519.PubKey(pubKey).VerifySignature(digest, signature)
}
