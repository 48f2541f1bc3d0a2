package ext_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-m/client"
	"solana-m/earn"
	"solana-m/ext"
	"solana-m/merkle"
	"solana-m/runtime"
)

const (
	startIndex = 1_100_000_000_000
	userFunds  = 10_000_000
	decimals   = 6
)

type fixture struct {
	t       *testing.T
	rt      *runtime.Runtime
	admin   *client.Client
	wrapper *client.Client
	user    solana.PrivateKey
	mMint   solana.PublicKey
	extMint solana.PublicKey
	userM   solana.PublicKey
	userExt solana.PublicKey
}

// newLedger creates the M mint under the earn registry and an ext mint whose
// authority is the vault's mint authority PDA. The vault itself is not
// initialized.
func newLedger(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, user: solana.NewWallet().PrivateKey}
	f.rt = runtime.New(runtime.NewMemoryStore())
	client.RegisterPrograms(f.rt)
	f.admin = client.NewClient(f.rt, solana.NewWallet().PrivateKey, nil)
	f.wrapper = client.NewClient(f.rt, solana.NewWallet().PrivateKey, nil)

	f.mMint = f.createMint(f.admin.PublicKey(), decimals)
	var err error
	f.userM, _, err = f.admin.CreateAssociatedAccount(f.user.PublicKey(), f.mMint)
	require.NoError(t, err)
	_, err = f.admin.MintTo(f.mMint, f.userM, userFunds)
	require.NoError(t, err)

	tokenAuthority, _, err := earn.GetTokenAuthorityPDA()
	require.NoError(t, err)
	_, err = f.admin.SetMintAuthority(f.mMint, tokenAuthority)
	require.NoError(t, err)
	_, err = f.admin.InitializeEarn(f.mMint, earn.InitializeArgs{
		EarnAuthority:   f.admin.PublicKey(),
		PortalAuthority: f.admin.PublicKey(),
		InitialIndex:    startIndex,
	})
	require.NoError(t, err)

	mintAuthority, _, err := ext.GetMintAuthorityPDA()
	require.NoError(t, err)
	f.extMint = f.createMint(mintAuthority, decimals)
	f.userExt, _, err = f.admin.CreateAssociatedAccount(f.user.PublicKey(), f.extMint)
	require.NoError(t, err)
	return f
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := newLedger(t)
	_, err := f.admin.InitializeExt(f.mMint, f.extMint, []solana.PublicKey{f.wrapper.PublicKey()})
	require.NoError(t, err)
	return f
}

func (f *fixture) createMint(authority solana.PublicKey, decimals uint8) solana.PublicKey {
	f.t.Helper()
	mint := solana.NewWallet().PrivateKey
	_, err := f.admin.CreateMint(mint, solana.TokenProgramID, decimals, authority)
	require.NoError(f.t, err)
	return mint.PublicKey()
}

func (f *fixture) balance(account solana.PublicKey) uint64 {
	f.t.Helper()
	amount, err := f.admin.TokenBalance(account)
	require.NoError(f.t, err)
	return amount
}

func (f *fixture) supply(mint solana.PublicKey) uint64 {
	f.t.Helper()
	info, err := f.admin.FetchMint(mint)
	require.NoError(f.t, err)
	return info.Supply
}

func (f *fixture) vault() solana.PublicKey {
	f.t.Helper()
	g, err := f.admin.FetchExtGlobal()
	require.NoError(f.t, err)
	vault, err := ext.GetVaultTokenAccount(g.MMint, solana.TokenProgramID)
	require.NoError(f.t, err)
	return vault
}

func (f *fixture) assertCollateralized() {
	f.t.Helper()
	assert.GreaterOrEqual(f.t, f.balance(f.vault()), f.supply(f.extMint))
}

func (f *fixture) wrap(amount uint64) {
	f.t.Helper()
	_, err := f.wrapper.WrapFor(f.user, f.userM, f.userExt, amount)
	require.NoError(f.t, err)
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	g, err := f.admin.FetchExtGlobal()
	require.NoError(t, err)
	earnGlobal, _, err := earn.GetGlobalPDA()
	require.NoError(t, err)
	assert.Equal(t, f.admin.PublicKey(), g.Admin)
	assert.Equal(t, f.mMint, g.MMint)
	assert.Equal(t, f.extMint, g.ExtMint)
	assert.Equal(t, earnGlobal, g.MEarnGlobalAccount)
	assert.Equal(t, []solana.PublicKey{f.wrapper.PublicKey()}, g.WrapAuthorities.Keys())
	assert.Equal(t, ext.NoYield, g.YieldConfig.Variant)

	vault, err := f.admin.FetchTokenAccount(f.vault())
	require.NoError(t, err)
	mVault, _, err := ext.GetMVaultPDA()
	require.NoError(t, err)
	assert.Equal(t, mVault, vault.Owner)
	assert.Zero(t, vault.Amount)

	_, err = f.admin.InitializeExt(f.mMint, f.extMint, nil)
	assert.ErrorIs(t, err, runtime.ErrAccountAlreadyInitialized)
}

func TestInitialize_Rejects(t *testing.T) {
	f := newLedger(t)

	t.Run("ext mint authority not delegated", func(t *testing.T) {
		other := f.createMint(f.admin.PublicKey(), decimals)
		_, err := f.admin.InitializeExt(f.mMint, other, nil)
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	t.Run("decimals differ", func(t *testing.T) {
		mintAuthority, _, err := ext.GetMintAuthorityPDA()
		require.NoError(t, err)
		other := f.createMint(mintAuthority, decimals+1)
		_, err = f.admin.InitializeExt(f.mMint, other, nil)
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	t.Run("too many wrap authorities", func(t *testing.T) {
		keys := make([]solana.PublicKey, ext.WrapAuthorityCapacity+1)
		for i := range keys {
			keys[i] = solana.NewWallet().PublicKey()
		}
		_, err := f.admin.InitializeExt(f.mMint, f.extMint, keys)
		assert.ErrorIs(t, err, runtime.ErrInvalidParam)
	})

	t.Run("duplicate wrap authority", func(t *testing.T) {
		key := solana.NewWallet().PublicKey()
		_, err := f.admin.InitializeExt(f.mMint, f.extMint, []solana.PublicKey{key, key})
		assert.ErrorIs(t, err, runtime.ErrInvalidParam)
	})

	_, err := f.admin.FetchExtGlobal()
	assert.ErrorIs(t, err, runtime.ErrAccountNotInitialized)
}

func TestWrapUnwrap(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.wrapper.WrapFor(f.user, f.userM, f.userExt, 4_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 6_000_000, f.balance(f.userM))
	assert.EqualValues(t, 4_000_000, f.balance(f.userExt))
	assert.EqualValues(t, 4_000_000, f.balance(f.vault()))
	assert.EqualValues(t, 4_000_000, f.supply(f.extMint))

	events, err := client.DecodeEvents(receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ext.ProgramID, events[0].Program)
	assert.Equal(t, &ext.Wrapped{From: f.userM, To: f.userExt, Amount: 4_000_000}, events[0].Data)

	_, err = f.wrapper.UnwrapFor(f.user, f.userExt, f.userM, 1_000_000)
	require.NoError(t, err)
	assert.EqualValues(t, 7_000_000, f.balance(f.userM))
	assert.EqualValues(t, 3_000_000, f.balance(f.userExt))
	assert.EqualValues(t, 3_000_000, f.balance(f.vault()))
	assert.EqualValues(t, 3_000_000, f.supply(f.extMint))

	vaultBalance, err := f.admin.VaultBalance()
	require.NoError(t, err)
	assert.EqualValues(t, 3_000_000, vaultBalance)
	f.assertCollateralized()
}

func TestWrap_Rejects(t *testing.T) {
	f := newFixture(t)

	t.Run("not a wrap authority", func(t *testing.T) {
		holder := client.NewClient(f.rt, f.user, nil)
		_, err := holder.Wrap(f.userM, f.userExt, 1)
		assert.ErrorIs(t, err, runtime.ErrNotAuthorized)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := f.wrapper.WrapFor(f.user, f.userM, f.userExt, 0)
		assert.ErrorIs(t, err, runtime.ErrInvalidParam)
	})

	t.Run("overdraft", func(t *testing.T) {
		_, err := f.wrapper.WrapFor(f.user, f.userM, f.userExt, userFunds+1)
		assert.ErrorIs(t, err, runtime.ErrInsufficientFunds)
	})

	t.Run("destination holds m", func(t *testing.T) {
		_, err := f.wrapper.WrapFor(f.user, f.userM, f.userM, 1)
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	t.Run("source not owned by holder", func(t *testing.T) {
		_, err := f.wrapper.WrapFor(solana.NewWallet().PrivateKey, f.userM, f.userExt, 1)
		assert.ErrorIs(t, err, runtime.ErrOwnerMismatch)
	})

	assert.EqualValues(t, userFunds, f.balance(f.userM))
	assert.Zero(t, f.balance(f.vault()))
	assert.Zero(t, f.supply(f.extMint))
}

func TestUnwrap_Rejects(t *testing.T) {
	f := newFixture(t)
	f.wrap(1_000)

	_, err := f.wrapper.UnwrapFor(f.user, f.userExt, f.userM, 1_001)
	assert.ErrorIs(t, err, runtime.ErrInsufficientFunds)

	_, err = f.wrapper.UnwrapFor(f.user, f.userExt, f.userExt, 1)
	assert.ErrorIs(t, err, runtime.ErrInvalidMint)

	assert.EqualValues(t, 1_000, f.balance(f.vault()))
	f.assertCollateralized()
}

func TestUpdateWrapAuthority(t *testing.T) {
	f := newFixture(t)
	holder := client.NewClient(f.rt, f.user, nil)

	_, err := f.wrapper.UpdateWrapAuthority(1, f.user.PublicKey())
	assert.ErrorIs(t, err, runtime.ErrNotAuthorized)

	receipt, err := f.admin.UpdateWrapAuthority(1, f.user.PublicKey())
	require.NoError(t, err)
	_, err = holder.Wrap(f.userM, f.userExt, 10)
	require.NoError(t, err)

	events, err := client.DecodeEvents(receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, &ext.WrapAuthorityUpdated{Index: 1, NewAuthority: f.user.PublicKey()}, events[0].Data)

	t.Run("key already in another slot", func(t *testing.T) {
		_, err := f.admin.UpdateWrapAuthority(2, f.wrapper.PublicKey())
		assert.ErrorIs(t, err, runtime.ErrInvalidParam)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := f.admin.UpdateWrapAuthority(ext.WrapAuthorityCapacity, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, runtime.ErrInvalidParam)
	})

	_, err = f.admin.UpdateWrapAuthority(0, solana.PublicKey{})
	require.NoError(t, err)
	_, err = f.wrapper.WrapFor(f.user, f.userM, f.userExt, 10)
	assert.ErrorIs(t, err, runtime.ErrNotAuthorized)

	g, err := f.admin.FetchExtGlobal()
	require.NoError(t, err)
	assert.Equal(t, []solana.PublicKey{f.user.PublicKey()}, g.WrapAuthorities.Keys())
}

func TestClaimFees(t *testing.T) {
	f := newFixture(t)
	f.wrap(5_000)
	recipient, _, err := f.admin.CreateAssociatedAccount(f.admin.PublicKey(), f.extMint)
	require.NoError(t, err)

	receipt, err := f.admin.ClaimFees(recipient)
	require.NoError(t, err)
	assert.Contains(t, receipt.Logs, "Program log: no fees to claim")
	assert.Zero(t, f.balance(recipient))

	// Surplus M sent straight to the vault is skimmed as fees.
	holder := client.NewClient(f.rt, f.user, nil)
	_, err = holder.Transfer(f.userM, f.vault(), 700)
	require.NoError(t, err)

	t.Run("not admin", func(t *testing.T) {
		_, err := f.wrapper.ClaimFees(recipient)
		assert.ErrorIs(t, err, runtime.ErrNotAuthorized)
	})

	t.Run("recipient holds m", func(t *testing.T) {
		_, err := f.admin.ClaimFees(f.userM)
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	receipt, err = f.admin.ClaimFees(recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 700, f.balance(recipient))
	assert.Equal(t, f.balance(f.vault()), f.supply(f.extMint))

	events, err := client.DecodeEvents(receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, &ext.FeesClaimed{Recipient: recipient, Amount: 700}, events[0].Data)
}

func TestSetMMint(t *testing.T) {
	f := newFixture(t)
	f.wrap(2_000)

	mVault, _, err := ext.GetMVaultPDA()
	require.NoError(t, err)
	newMint := f.createMint(f.admin.PublicKey(), decimals)
	newVault, _, err := f.admin.CreateAssociatedAccount(mVault, newMint)
	require.NoError(t, err)

	t.Run("same mint", func(t *testing.T) {
		_, err := f.admin.SetMMint(f.mMint)
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	t.Run("decimals differ", func(t *testing.T) {
		_, err := f.admin.SetMMint(f.createMint(f.admin.PublicKey(), decimals+2))
		assert.ErrorIs(t, err, runtime.ErrInvalidMint)
	})

	t.Run("new vault underfunded", func(t *testing.T) {
		_, err := f.admin.MintTo(newMint, newVault, 1_999)
		require.NoError(t, err)
		_, err = f.admin.SetMMint(newMint)
		assert.ErrorIs(t, err, runtime.ErrInsufficientCollateral)
	})

	t.Run("not admin", func(t *testing.T) {
		_, err := f.wrapper.SetMMint(newMint)
		assert.ErrorIs(t, err, runtime.ErrNotAuthorized)
	})

	_, err = f.admin.MintTo(newMint, newVault, 1)
	require.NoError(t, err)
	receipt, err := f.admin.SetMMint(newMint)
	require.NoError(t, err)

	g, err := f.admin.FetchExtGlobal()
	require.NoError(t, err)
	assert.Equal(t, newMint, g.MMint)
	assert.Equal(t, newVault, f.vault())
	f.assertCollateralized()

	events, err := client.DecodeEvents(receipt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, &ext.MMintUpdated{OldMint: f.mMint, NewMint: newMint, Backing: 2_000}, events[0].Data)

	// Wrapping now pulls the new mint.
	_, err = f.wrapper.WrapFor(f.user, f.userM, f.userExt, 1)
	assert.ErrorIs(t, err, runtime.ErrInvalidMint)

	userNewM, _, err := f.admin.CreateAssociatedAccount(f.user.PublicKey(), newMint)
	require.NoError(t, err)

	_, err = f.wrapper.UnwrapFor(f.user, f.userExt, userNewM, 500)
	require.NoError(t, err)
	assert.EqualValues(t, 500, f.balance(userNewM))
	assert.EqualValues(t, 1_500, f.balance(newVault))
	assert.EqualValues(t, 1_500, f.supply(f.extMint))
	assert.EqualValues(t, 1_500, f.balance(f.userExt))
	f.assertCollateralized()

	_, err = f.wrapper.WrapFor(f.user, userNewM, f.userExt, 500)
	require.NoError(t, err)
	assert.Zero(t, f.balance(userNewM))
	assert.EqualValues(t, 2_000, f.balance(newVault))
	assert.EqualValues(t, 2_000, f.supply(f.extMint))
	assert.EqualValues(t, 2_000, f.balance(f.userExt))
	f.assertCollateralized()

	// The old vault keeps its M; it no longer backs anything.
	oldVault, err := ext.GetVaultTokenAccount(f.mMint, solana.TokenProgramID)
	require.NoError(t, err)
	assert.EqualValues(t, 2_000, f.balance(oldVault))
}

// TestYieldFlowsToFees runs the whole loop: the vault earns on its M, the
// registry mints the yield into it and the admin skims it as ext.
func TestYieldFlowsToFees(t *testing.T) {
	f := newFixture(t)
	f.wrap(userFunds)
	vault := f.vault()

	leaf := earn.EarnerLeaf(vault)
	tree := merkle.NewTree([]merkle.Hash{leaf})
	_, err := f.admin.PropagateIndex(startIndex, tree.Root())
	require.NoError(t, err)
	proof, err := tree.Proof(leaf)
	require.NoError(t, err)
	_, err = f.admin.AddRegistrarEarner(vault, proof)
	require.NoError(t, err)

	_, err = f.admin.PropagateIndex(1_200_000_000_000, tree.Root())
	require.NoError(t, err)
	g, err := f.admin.FetchEarnGlobal()
	require.NoError(t, err)
	assert.EqualValues(t, 909_090, g.MaxYield)

	amount, _, err := f.admin.ClaimFor(vault, f.balance(vault))
	require.NoError(t, err)
	assert.EqualValues(t, 909_090, amount)
	assert.EqualValues(t, 10_909_090, f.balance(vault))
	assert.EqualValues(t, userFunds, f.supply(f.extMint))

	recipient, _, err := f.admin.CreateAssociatedAccount(f.admin.PublicKey(), f.extMint)
	require.NoError(t, err)
	_, err = f.admin.ClaimFees(recipient)
	require.NoError(t, err)
	assert.EqualValues(t, 909_090, f.balance(recipient))
	assert.Equal(t, f.balance(vault), f.supply(f.extMint))
}
