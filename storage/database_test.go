package storage

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solana-m/runtime"
)

func TestLevelDB_CommitGetDelete(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	require.NoError(t, db.Commit(map[solana.PublicKey]*runtime.Account{
		a: {Owner: solana.TokenProgramID, Data: []byte{1, 2, 3}},
		b: {Owner: solana.Token2022ProgramID, Data: []byte{}},
	}))

	got, err := db.Get(a)
	require.NoError(t, err)
	require.Equal(t, solana.TokenProgramID, got.Owner)
	require.Equal(t, []byte{1, 2, 3}, got.Data)

	require.NoError(t, db.Commit(map[solana.PublicKey]*runtime.Account{a: nil}))
	got, err = db.Get(a)
	require.NoError(t, err)
	require.Nil(t, got)

	missing, err := db.Get(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestLevelDB_AccountsByOwner(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	mine := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	require.NoError(t, db.Commit(map[solana.PublicKey]*runtime.Account{
		mine:  {Owner: solana.TokenProgramID, Data: []byte{7}},
		other: {Owner: solana.SystemProgramID, Data: []byte{8}},
	}))

	owned, err := db.AccountsByOwner(solana.TokenProgramID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, []byte{7}, owned[mine].Data)
}

func TestLevelDB_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	address := solana.NewWallet().PublicKey()

	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Commit(map[solana.PublicKey]*runtime.Account{
		address: {Owner: solana.TokenProgramID, Data: []byte("state")},
	}))
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Get(address)
	require.NoError(t, err)
	require.Equal(t, []byte("state"), got.Data)
}

func TestDecodeRecord_RejectsTruncatedValue(t *testing.T) {
	_, err := decodeRecord([]byte{1, 2})
	require.Error(t, err)
}

func TestLevelDB_BacksRuntime(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	var _ runtime.Store = db
	rt := runtime.New(db)
	acc, err := rt.GetAccount(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	require.Nil(t, acc)
}
