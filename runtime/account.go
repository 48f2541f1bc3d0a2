package runtime

import (
	"github.com/gagliardetto/solana-go"
	"github.com/sasha-s/go-deadlock"
)

//go:generate mockgen -source account.go -destination store_mocks.go -package runtime

// Account is the raw state held at an address: the owning program and its
// serialized data.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}

func (a *Account) clone() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{Owner: a.Owner, Data: data}
}

// Store persists accounts. Commit applies a change set atomically; a nil
// account in the change set deletes the address.
type Store interface {
	Get(address solana.PublicKey) (*Account, error)
	Commit(changes map[solana.PublicKey]*Account) error
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu       deadlock.RWMutex
	accounts map[solana.PublicKey]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[solana.PublicKey]*Account)}
}

// Get returns nil without error when the address holds no account.
func (m *MemoryStore) Get(address solana.PublicKey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[address]
	if !ok {
		return nil, nil
	}
	return acc.clone(), nil
}

func (m *MemoryStore) Commit(changes map[solana.PublicKey]*Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for address, acc := range changes {
		if acc == nil {
			delete(m.accounts, address)
			continue
		}
		m.accounts[address] = acc.clone()
	}
	return nil
}

// overlay buffers writes of a single transaction on top of a store.
type overlay struct {
	base  Store
	dirty map[solana.PublicKey]*Account
}

func newOverlay(base Store) *overlay {
	return &overlay{base: base, dirty: make(map[solana.PublicKey]*Account)}
}

func (o *overlay) get(address solana.PublicKey) (*Account, error) {
	if acc, ok := o.dirty[address]; ok {
		if acc == nil {
			return nil, nil
		}
		return acc.clone(), nil
	}
	return o.base.Get(address)
}

func (o *overlay) put(address solana.PublicKey, acc *Account) {
	o.dirty[address] = acc.clone()
}

func (o *overlay) remove(address solana.PublicKey) {
	o.dirty[address] = nil
}

func (o *overlay) commit() error {
	if len(o.dirty) == 0 {
		return nil
	}
	return o.base.Commit(o.dirty)
}
