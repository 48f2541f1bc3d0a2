package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"solana-m/runtime"
)

const (
	accountsDirName = "accounts"
	accountPrefix   = "a/"
)

// LevelDB is a persistent account store. It implements runtime.Store.
type LevelDB struct {
	db *leveldb.DB
}

// Open opens or creates the account database below dir.
func Open(dir string) (*LevelDB, error) {
	path := filepath.Join(dir, accountsDirName)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("could not create ledger directory: %w", err)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open account database: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*LevelDB, error) {
	db, err := leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not open in-memory account database: %w", err)
	}
	return &LevelDB{db: db}, nil
}

func accountKey(address solana.PublicKey) []byte {
	return append([]byte(accountPrefix), address[:]...)
}

// Get returns nil without error when the address holds no account.
func (l *LevelDB) Get(address solana.PublicKey) (*runtime.Account, error) {
	value, err := l.db.Get(accountKey(address), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read account %s: %w", address, err)
	}
	return decodeRecord(value)
}

// Commit writes the change set in a single batch.
func (l *LevelDB) Commit(changes map[solana.PublicKey]*runtime.Account) error {
	batch := new(leveldb.Batch)
	for address, acc := range changes {
		if acc == nil {
			batch.Delete(accountKey(address))
			continue
		}
		batch.Put(accountKey(address), encodeRecord(acc))
	}
	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("could not commit %d accounts: %w", len(changes), err)
	}
	return nil
}

// AccountsByOwner scans every account owned by program.
func (l *LevelDB) AccountsByOwner(program solana.PublicKey) (map[solana.PublicKey]*runtime.Account, error) {
	out := make(map[solana.PublicKey]*runtime.Account)
	iter := l.db.NewIterator(util.BytesPrefix([]byte(accountPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		acc, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, err
		}
		if !acc.Owner.Equals(program) {
			continue
		}
		var address solana.PublicKey
		copy(address[:], iter.Key()[len(accountPrefix):])
		out[address] = acc
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("could not scan accounts: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
