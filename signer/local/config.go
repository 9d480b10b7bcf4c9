package local

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cosmos/go-bip39"

	"github.com/hyperledger-labs/yui-bridge-relayer/signer"
)

var _ signer.SignerConfig = (*SignerConfig)(nil)

type SignerConfig struct {
	Mnemonic   string `mapstructure:"mnemonic" yaml:"mnemonic" json:"mnemonic"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase,omitempty" json:"passphrase,omitempty"`
}

func (c SignerConfig) Build() (signer.Signer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewSignerFromMnemonic(c.Mnemonic, c.Passphrase)
}

func (c SignerConfig) Validate() error {
	if strings.TrimSpace(c.Mnemonic) == "" {
		return errors.New("config attribute \"mnemonic\" is empty")
	}
	if _, err := bip39.MnemonicToByteArray(c.Mnemonic); err != nil {
		return errors.Wrap(err, "config attribute \"mnemonic\" is not a valid BIP-39 mnemonic")
	}
	return nil
}
