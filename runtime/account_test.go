package runtime

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ConcurrentCommitAndGet(t *testing.T) {
	store := NewMemoryStore()
	owner := solana.NewWallet().PublicKey()
	addresses := make([]solana.PublicKey, 16)
	for i := range addresses {
		addresses[i] = solana.NewWallet().PublicKey()
	}

	var wg sync.WaitGroup
	for i, address := range addresses {
		wg.Add(2)
		go func(i int, address solana.PublicKey) {
			defer wg.Done()
			err := store.Commit(map[solana.PublicKey]*Account{
				address: {Owner: owner, Data: []byte{byte(i)}},
			})
			assert.NoError(t, err)
		}(i, address)
		go func(address solana.PublicKey) {
			defer wg.Done()
			_, err := store.Get(address)
			assert.NoError(t, err)
		}(address)
	}
	wg.Wait()

	for i, address := range addresses {
		acc, err := store.Get(address)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, acc.Data)
	}
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	address := solana.NewWallet().PublicKey()
	require.NoError(t, store.Commit(map[solana.PublicKey]*Account{address: {Data: []byte{1}}}))

	acc, err := store.Get(address)
	require.NoError(t, err)
	acc.Data[0] = 9

	again, err := store.Get(address)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, again.Data)

	require.NoError(t, store.Commit(map[solana.PublicKey]*Account{address: nil}))
	gone, err := store.Get(address)
	require.NoError(t, err)
	require.Nil(t, gone)
}
