package substrate

import (
	"context"
	"sync"
	"time"

	retry "github.com/avast/retry-go"
	gsrpc "github.com/snowfork/go-substrate-rpc-client/v4"
	"github.com/snowfork/go-substrate-rpc-client/v4/signature"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/hyperledger-labs/yui-bridge-relayer/log"
)

var (
	rtyAttNum = uint(3)
	rtyAtt    = retry.Attempts(rtyAttNum)
	rtyDel    = retry.Delay(time.Millisecond * 400)
	rtyErr    = retry.LastErrorOnly(true)
)

// Connection is a websocket connection to a substrate node.
// It is established on first use so that commands which only read the config stay offline.
type Connection struct {
	endpoint string
	kp       *signature.KeyringPair

	mu          sync.Mutex
	api         *gsrpc.SubstrateAPI
	metadata    types.Metadata
	genesisHash types.Hash
}

func NewConnection(endpoint string, kp *signature.KeyringPair) *Connection {
	return &Connection{
		endpoint: endpoint,
		kp:       kp,
	}
}

func (co *Connection) API() *gsrpc.SubstrateAPI {
	return co.api
}

func (co *Connection) Metadata() *types.Metadata {
	return &co.metadata
}

func (co *Connection) Keypair() *signature.KeyringPair {
	return co.kp
}

func (co *Connection) GenesisHash() types.Hash {
	return co.genesisHash
}

// Connect dials the node unless the connection is already established.
// The dial is retried a few times.
func (co *Connection) Connect(ctx context.Context) error {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.api != nil {
		return nil
	}

	var api *gsrpc.SubstrateAPI
	if err := retry.Do(func() error {
		var err error
		api, err = gsrpc.NewSubstrateAPI(co.endpoint)
		return err
	}, rtyAtt, rtyDel, rtyErr, retry.Context(ctx), retry.OnRetry(func(n uint, err error) {
		log.GetLogger().WithModule("substrate").InfoContext(ctx,
			"retrying to connect to chain",
			"endpoint", co.endpoint,
			"try", n+1,
			"try_limit", rtyAttNum,
			"error", err.Error(),
		)
	})); err != nil {
		return err
	}

	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return err
	}

	genesisHash, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return err
	}

	co.api = api
	co.metadata = *meta
	co.genesisHash = genesisHash

	log.GetLogger().WithModule("substrate").Info("connected to chain",
		"endpoint", co.endpoint,
		"meta_version", meta.Version,
	)
	return nil
}

// Close drops the connection. gsrpc has no way to close its websocket on demand,
// so the next Connect dials a new one.
func (co *Connection) Close() {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.api = nil
}

func (co *Connection) GetFinalizedHeader() (types.Hash, *types.Header, error) {
	finalizedHash, err := co.api.RPC.Chain.GetFinalizedHead()
	if err != nil {
		return types.Hash{}, nil, err
	}

	finalizedHeader, err := co.api.RPC.Chain.GetHeader(finalizedHash)
	if err != nil {
		return types.Hash{}, nil, err
	}

	return finalizedHash, finalizedHeader, nil
}
