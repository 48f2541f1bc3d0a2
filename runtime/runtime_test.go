package runtime

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var counterProgramID = solana.NewWallet().PublicKey()

type counter struct {
	Authority solana.PublicKey
	Value     uint64
}

type incrementArgs struct {
	Amount uint64
}

type counterProgram struct {
	dispatcher *Dispatcher
}

func newCounterProgram() *counterProgram {
	p := &counterProgram{dispatcher: NewDispatcher()}
	p.dispatcher.Handle("increment", p.increment)
	p.dispatcher.Handle("sign_as_vault", p.signAsVault)
	return p
}

func (p *counterProgram) ID() solana.PublicKey { return counterProgramID }

func (p *counterProgram) Process(ctx *Context, accounts []solana.PublicKey, data []byte) error {
	return p.dispatcher.Dispatch(ctx, accounts, data)
}

func (p *counterProgram) increment(ctx *Context, accounts []solana.PublicKey, data []byte) error {
	if err := RequireAccounts(accounts, 2); err != nil {
		return err
	}
	var args incrementArgs
	if err := DecodeArgs(data, &args); err != nil {
		return err
	}
	authority, address := accounts[0], accounts[1]
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	if args.Amount == 0 {
		return ErrInvalidParam
	}

	var state counter
	exists, err := ctx.Exists(address)
	if err != nil {
		return err
	}
	if exists {
		if err := ctx.Load(address, counterProgramID, "Counter", &state); err != nil {
			return err
		}
		if !state.Authority.Equals(authority) {
			return ErrNotAuthorized
		}
	} else {
		state.Authority = authority
	}
	state.Value += args.Amount
	if err := ctx.Save(address, "Counter", &state); err != nil {
		return err
	}
	return ctx.Emit("Incremented", &state)
}

func (p *counterProgram) signAsVault(ctx *Context, accounts []solana.PublicKey, data []byte) error {
	vault, bump, err := solana.FindProgramAddress([][]byte{[]byte("vault")}, counterProgramID)
	if err != nil {
		return err
	}
	signer, err := ctx.SignAsProgram([]byte("vault"), []byte{bump})
	if err != nil {
		return err
	}
	if !signer.Equals(vault) {
		return ErrInvalidSeeds
	}
	return ctx.Invoke(solana.SystemProgramID, func(callee *Context) error {
		if callee.ProgramID() != solana.SystemProgramID {
			return errors.New("callee runs under the wrong program")
		}
		return callee.RequireSigner(vault)
	})
}

func incrementIx(t *testing.T, authority, address solana.PublicKey, amount uint64, signer bool) solana.Instruction {
	t.Helper()
	data, err := EncodeInstruction("increment", &incrementArgs{Amount: amount})
	require.NoError(t, err)
	authorityMeta := solana.Meta(authority)
	if signer {
		authorityMeta = authorityMeta.SIGNER()
	}
	return solana.NewInstruction(counterProgramID, solana.AccountMetaSlice{
		authorityMeta,
		solana.Meta(address).WRITE(),
	}, data)
}

func signedTx(t *testing.T, rt *Runtime, payer solana.PrivateKey, ixs ...solana.Instruction) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(ixs, rt.LatestBlockhash(), solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func newTestRuntime(store Store) *Runtime {
	rt := New(store, WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	rt.Register(newCounterProgram())
	return rt
}

func loadCounter(t *testing.T, rt *Runtime, address solana.PublicKey) counter {
	t.Helper()
	acc, err := rt.GetAccount(address)
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, counterProgramID, acc.Owner)
	var c counter
	require.NoError(t, UnmarshalAccount("Counter", acc.Data, &c))
	return c
}

func TestRuntime_Execute_CommitsStateAndLogsEvents(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey
	address := solana.NewWallet().PublicKey()

	receipt, err := rt.Execute(signedTx(t, rt, payer,
		incrementIx(t, payer.PublicKey(), address, 3, true),
		incrementIx(t, payer.PublicKey(), address, 4, true),
	))
	require.NoError(t, err)
	require.Equal(t, uint64(0), receipt.Slot)
	require.Equal(t, uint64(1), rt.Slot())

	c := loadCounter(t, rt, address)
	require.Equal(t, uint64(7), c.Value)
	require.Equal(t, payer.PublicKey(), c.Authority)

	var events int
	for _, line := range receipt.Logs {
		if strings.HasPrefix(line, "Program data: ") {
			events++
		}
	}
	require.Equal(t, 2, events)
}

func TestRuntime_Execute_FailingInstructionDiscardsWholeTransaction(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey
	address := solana.NewWallet().PublicKey()

	receipt, err := rt.Execute(signedTx(t, rt, payer,
		incrementIx(t, payer.PublicKey(), address, 3, true),
		incrementIx(t, payer.PublicKey(), address, 0, true),
	))
	require.ErrorIs(t, err, ErrInvalidParam)
	require.ErrorIs(t, receipt.Err, ErrInvalidParam)

	acc, err := rt.GetAccount(address)
	require.NoError(t, err)
	require.Nil(t, acc)
	require.Equal(t, uint64(0), rt.Slot())
}

func TestRuntime_Execute_RejectsMissingSigner(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey
	other := solana.NewWallet().PublicKey()

	_, err := rt.Execute(signedTx(t, rt, payer,
		incrementIx(t, other, solana.NewWallet().PublicKey(), 1, false),
	))
	require.ErrorIs(t, err, ErrMissingSigner)
}

func TestRuntime_Execute_RejectsTamperedSignature(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey
	tx := signedTx(t, rt, payer, incrementIx(t, payer.PublicKey(), solana.NewWallet().PublicKey(), 1, true))
	tx.Signatures[0][0] ^= 0xff

	_, err := rt.Execute(tx)
	require.ErrorIs(t, err, ErrSignatureVerification)
}

func TestRuntime_Execute_RejectsUnknownBlockhashAndReplay(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey
	address := solana.NewWallet().PublicKey()

	tx := signedTx(t, rt, payer, incrementIx(t, payer.PublicKey(), address, 1, true))
	_, err := rt.Execute(tx)
	require.NoError(t, err)

	_, err = rt.Execute(tx)
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	stale, err := solana.NewTransaction(
		[]solana.Instruction{incrementIx(t, payer.PublicKey(), address, 1, true)},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = stale.Sign(func(solana.PublicKey) *solana.PrivateKey { return &payer })
	require.NoError(t, err)
	_, err = rt.Execute(stale)
	require.ErrorIs(t, err, ErrBlockhashNotFound)
}

func TestRuntime_Execute_RejectsUnknownProgramAndInstruction(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey

	unknown := solana.NewInstruction(solana.NewWallet().PublicKey(), solana.AccountMetaSlice{}, []byte{1})
	_, err := rt.Execute(signedTx(t, rt, payer, unknown))
	require.ErrorIs(t, err, ErrUnknownProgram)

	data, err := EncodeInstruction("decrement", nil)
	require.NoError(t, err)
	bogus := solana.NewInstruction(counterProgramID, solana.AccountMetaSlice{}, data)
	_, err = rt.Execute(signedTx(t, rt, payer, bogus))
	require.ErrorIs(t, err, ErrInstructionFallbackNotFound)
}

func TestRuntime_Execute_ProgramSignerCarriesIntoInvoke(t *testing.T) {
	rt := newTestRuntime(NewMemoryStore())
	payer := solana.NewWallet().PrivateKey

	data, err := EncodeInstruction("sign_as_vault", nil)
	require.NoError(t, err)
	ix := solana.NewInstruction(counterProgramID, solana.AccountMetaSlice{}, data)
	receipt, err := rt.Execute(signedTx(t, rt, payer, ix))
	require.NoError(t, err)
	require.Contains(t, receipt.Logs, "Program "+solana.SystemProgramID.String()+" invoke [2]")
}

func TestRuntime_Execute_SurfacesStoreCommitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	rt := newTestRuntime(store)
	payer := solana.NewWallet().PrivateKey
	address := solana.NewWallet().PublicKey()

	injected := errors.New("disk full")
	store.EXPECT().Get(address).Return(nil, nil).AnyTimes()
	store.EXPECT().Commit(gomock.Any()).Return(injected)

	_, err := rt.Execute(signedTx(t, rt, payer, incrementIx(t, payer.PublicKey(), address, 1, true)))
	require.ErrorIs(t, err, injected)
	require.Equal(t, uint64(0), rt.Slot())
}

func TestRuntime_Execute_ForeignAccountCannotBeOverwritten(t *testing.T) {
	store := NewMemoryStore()
	address := solana.NewWallet().PublicKey()
	require.NoError(t, store.Commit(map[solana.PublicKey]*Account{
		address: {Owner: solana.TokenProgramID, Data: []byte{1, 2, 3}},
	}))
	rt := newTestRuntime(store)
	payer := solana.NewWallet().PrivateKey

	_, err := rt.Execute(signedTx(t, rt, payer, incrementIx(t, payer.PublicKey(), address, 1, true)))
	require.ErrorIs(t, err, ErrAccountOwnedByWrongProgram)
}

func TestErrors_AreOrderedAndMatchByCode(t *testing.T) {
	all := Errors()
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].Code, all[i].Code)
	}
	wrapped := errors.New("unrelated")
	require.False(t, errors.Is(wrapped, ErrNotAuthorized))

	found, ok := ErrorByCode(6012)
	require.True(t, ok)
	require.ErrorIs(t, found, ErrInsufficientCollateral)
}
