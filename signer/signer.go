package signer

import (
	"context"
)

// SignerConfig builds a Signer from a config file entry
type SignerConfig interface {
	Build() (Signer, error)
	Validate() error
}

// Signer signs the transactions submitted by the relayer
type Signer interface {
	Sign(ctx context.Context, digest []byte) (signature []byte, err error)
	GetPublicKey(ctx context.Context) ([]byte, error)
}
