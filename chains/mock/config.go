package mock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/hyperledger-labs/yui-bridge-relayer/core"
	"github.com/hyperledger-labs/yui-bridge-relayer/signer/local"
)

const (
	// ChainType is the `type` of mock chains in the config file
	ChainType = "mock"

	DefaultAuthoritySetPeriod = 16
	DefaultBlockTime          = time.Second
	DefaultMaxUnconfirmed     = core.DefaultMaxUnconfirmed
)

var _ core.ChainConfig = (*ChainConfig)(nil)

// ChainConfig is the config of a chain simulated in a local database
type ChainConfig struct {
	ChainID      string `mapstructure:"chain-id" yaml:"chain-id" json:"chain-id"`
	Counterparty string `mapstructure:"counterparty" yaml:"counterparty" json:"counterparty"`
	// DBBackend is a cometbft-db backend, `memdb` or `goleveldb`
	DBBackend string `mapstructure:"db-backend" yaml:"db-backend" json:"db-backend"`
	// DBDir defaults to <home>/mock
	DBDir string `mapstructure:"db-dir" yaml:"db-dir,omitempty" json:"db-dir,omitempty"`
	// BlockTime is the interval between empty blocks. Zero seals a block only when a transaction is pending.
	BlockTime time.Duration `mapstructure:"block-time" yaml:"block-time" json:"block-time"`
	// AuthoritySetPeriod is the number of blocks after which the authority set changes. Zero never changes it.
	AuthoritySetPeriod uint64 `mapstructure:"authority-set-period" yaml:"authority-set-period" json:"authority-set-period"`
	// MaxUnconfirmed is the number of unconfirmed messages the inbound lanes accept
	MaxUnconfirmed uint64 `mapstructure:"max-unconfirmed" yaml:"max-unconfirmed" json:"max-unconfirmed"`

	Signer local.SignerConfig `mapstructure:"signer" yaml:"signer" json:"signer"`
}

// DefaultChainConfig returns a config with a fresh relayer key
func DefaultChainConfig(chainID, counterparty string) (ChainConfig, error) {
	mnemonic, err := local.CreateMnemonic()
	if err != nil {
		return ChainConfig{}, err
	}
	return ChainConfig{
		ChainID:            chainID,
		Counterparty:       counterparty,
		DBBackend:          string(dbm.GoLevelDBBackend),
		BlockTime:          DefaultBlockTime,
		AuthoritySetPeriod: DefaultAuthoritySetPeriod,
		MaxUnconfirmed:     DefaultMaxUnconfirmed,
		Signer:             local.SignerConfig{Mnemonic: mnemonic},
	}, nil
}

func (c ChainConfig) Build() (core.Chain, error) {
	return &Chain{
		config: c,
	}, nil
}

func (c ChainConfig) Validate() error {
	isEmpty := func(s string) bool {
		return strings.TrimSpace(s) == ""
	}

	var errs []error
	if isEmpty(c.ChainID) {
		errs = append(errs, fmt.Errorf("config attribute \"chain-id\" is empty"))
	}
	if isEmpty(c.Counterparty) {
		errs = append(errs, fmt.Errorf("config attribute \"counterparty\" is empty"))
	}
	if c.ChainID == c.Counterparty {
		errs = append(errs, fmt.Errorf("config attribute \"counterparty\" must differ from \"chain-id\": %s", c.ChainID))
	}
	switch dbm.BackendType(c.DBBackend) {
	case dbm.MemDBBackend, dbm.GoLevelDBBackend:
	default:
		errs = append(errs, fmt.Errorf("config attribute \"db-backend\" is unexpected: %s", c.DBBackend))
	}
	if c.BlockTime < 0 {
		errs = append(errs, fmt.Errorf("config attribute \"block-time\" is negative: %v", c.BlockTime))
	}
	if c.MaxUnconfirmed == 0 {
		errs = append(errs, fmt.Errorf("config attribute \"max-unconfirmed\" is zero"))
	}
	if err := c.Signer.Validate(); err != nil {
		errs = append(errs, core.ErrSigner.Wrap(err.Error()))
	}

	// errors.Join returns nil if len(errs) == 0
	return errors.Join(errs...)
}
