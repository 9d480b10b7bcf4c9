package mock

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	dbm "github.com/cometbft/cometbft-db"
)

var (
	keyLatest     = []byte("latest")
	prefixBlock   = []byte("block/")
	prefixState   = []byte("state/")
	prefixReceipt = []byte("receipt/")
)

func heightKey(prefix []byte, number uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], number)
	return key
}

func receiptKey(txID string) []byte {
	return append(append([]byte{}, prefixReceipt...), txID...)
}

// receipt records the block including a transaction
type receipt struct {
	TxID  string `json:"tx_id"`
	Block uint64 `json:"block"`
}

// store persists the blocks, states and receipts of a mock chain in a cometbft-db database
type store struct {
	db dbm.DB
}

func openStore(cfg ChainConfig, homePath string) (*store, error) {
	dir := cfg.DBDir
	if dir == "" {
		dir = filepath.Join(homePath, "mock")
	}
	backend := dbm.BackendType(cfg.DBBackend)
	if backend != dbm.MemDBBackend {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := dbm.NewDB(cfg.ChainID, backend, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open the %s database of %s", backend, cfg.ChainID)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

func (s *store) getJSON(key []byte, v any) (bool, error) {
	bz, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if bz == nil {
		return false, nil
	}
	return true, json.Unmarshal(bz, v)
}

// latest returns the number of the latest sealed block
func (s *store) latest() (uint64, bool, error) {
	bz, err := s.db.Get(keyLatest)
	if err != nil || bz == nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(bz), true, nil
}

func (s *store) block(number uint64) (*block, error) {
	var b block
	if found, err := s.getJSON(heightKey(prefixBlock, number), &b); err != nil {
		return nil, err
	} else if !found {
		return nil, fmt.Errorf("block %d not found", number)
	}
	return &b, nil
}

func (s *store) state(number uint64) (*chainState, error) {
	bz, err := s.db.Get(heightKey(prefixState, number))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, fmt.Errorf("state at %d not found", number)
	}
	return decodeChainState(bz)
}

func (s *store) receipt(txID string) (*receipt, error) {
	var r receipt
	if found, err := s.getJSON(receiptKey(txID), &r); err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// commit writes a sealed block atomically
func (s *store) commit(b *block, st *chainState, txIDs []string) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	bz, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := batch.Set(heightKey(prefixBlock, b.Number), bz); err != nil {
		return err
	}
	if bz, err = json.Marshal(st); err != nil {
		return err
	}
	if err := batch.Set(heightKey(prefixState, b.Number), bz); err != nil {
		return err
	}
	for _, id := range txIDs {
		if bz, err = json.Marshal(receipt{TxID: id, Block: b.Number}); err != nil {
			return err
		}
		if err := batch.Set(receiptKey(id), bz); err != nil {
			return err
		}
	}
	if err := batch.Set(keyLatest, heightKey(nil, b.Number)); err != nil {
		return err
	}
	return batch.WriteSync()
}
