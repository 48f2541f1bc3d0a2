package ext

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-m/earn"
	"solana-m/runtime"
	"solana-m/token"
)

// Program is the wrap vault.
type Program struct {
	dispatcher *runtime.Dispatcher
}

func NewProgram() *Program {
	p := &Program{dispatcher: runtime.NewDispatcher()}
	p.dispatcher.Handle("initialize", p.initialize)
	p.dispatcher.Handle("wrap", p.wrap)
	p.dispatcher.Handle("unwrap", p.unwrap)
	p.dispatcher.Handle("set_m_mint", p.setMMint)
	p.dispatcher.Handle("claim_fees", p.claimFees)
	p.dispatcher.Handle("update_wrap_authority", p.updateWrapAuthority)
	return p
}

func (p *Program) ID() solana.PublicKey { return ProgramID }

func (p *Program) Process(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	return p.dispatcher.Dispatch(ctx, accounts, data)
}

type InitializeArgs struct {
	WrapAuthorities []solana.PublicKey
}

type AmountArgs struct {
	Amount uint64
}

type UpdateWrapAuthorityArgs struct {
	Index        uint8
	NewAuthority solana.PublicKey
}

// loadGlobal checks the singleton address, decodes it and re-validates the
// trusted earn registry reference.
func loadGlobal(ctx *runtime.Context, address solana.PublicKey) (*Global, error) {
	expected, _, err := GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get global PDA: %w", err)
	}
	if !address.Equals(expected) {
		return nil, fmt.Errorf("%w: global %s", runtime.ErrInvalidAccount, address)
	}
	var g Global
	if err := ctx.Load(address, ProgramID, globalAccountName, &g); err != nil {
		return nil, err
	}
	earnGlobal, _, err := earn.GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get earn global PDA: %w", err)
	}
	if !g.MEarnGlobalAccount.Equals(earnGlobal) {
		return nil, fmt.Errorf("%w: earn global reference %s", runtime.ErrInvalidAccount, g.MEarnGlobalAccount)
	}
	return &g, nil
}

func saveGlobal(ctx *runtime.Context, address solana.PublicKey, g *Global) error {
	return ctx.Save(address, globalAccountName, g)
}

// vaultContext holds the validated accounts shared by the collateral moving
// instructions.
type vaultContext struct {
	global       *Global
	mMint        *token.MintInfo
	extMint      *token.MintInfo
	vaultAccount solana.PublicKey
}

func loadVault(ctx *runtime.Context, global *Global, mMint, extMint, mVault, vaultAccount solana.PublicKey) (*vaultContext, error) {
	if !mMint.Equals(global.MMint) {
		return nil, fmt.Errorf("%w: m mint %s", runtime.ErrInvalidMint, mMint)
	}
	if !extMint.Equals(global.ExtMint) {
		return nil, fmt.Errorf("%w: ext mint %s", runtime.ErrInvalidMint, extMint)
	}
	expectedVault, _, err := GetMVaultPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get m vault PDA: %w", err)
	}
	if !mVault.Equals(expectedVault) {
		return nil, fmt.Errorf("%w: m vault %s", runtime.ErrInvalidAccount, mVault)
	}
	mInfo, err := token.GetMint(ctx, mMint)
	if err != nil {
		return nil, err
	}
	extInfo, err := token.GetMint(ctx, extMint)
	if err != nil {
		return nil, err
	}
	expectedAccount, err := GetVaultTokenAccount(mMint, mInfo.Program)
	if err != nil {
		return nil, err
	}
	if !vaultAccount.Equals(expectedAccount) {
		return nil, fmt.Errorf("%w: vault token account %s", runtime.ErrInvalidAccount, vaultAccount)
	}
	return &vaultContext{global: global, mMint: mInfo, extMint: extInfo, vaultAccount: vaultAccount}, nil
}

// checkCollateral asserts that the vault holds at least the derivative
// supply.
func checkCollateral(ctx *runtime.Context, vaultAccount, extMint solana.PublicKey) error {
	vaultBalance, err := token.Balance(ctx, vaultAccount)
	if err != nil {
		return err
	}
	extInfo, err := token.GetMint(ctx, extMint)
	if err != nil {
		return err
	}
	if vaultBalance < extInfo.Supply {
		return fmt.Errorf("%w: vault %d < supply %d", runtime.ErrInsufficientCollateral, vaultBalance, extInfo.Supply)
	}
	return nil
}

func (p *Program) signAsMintAuthority(ctx *runtime.Context, global *Global) (solana.PublicKey, error) {
	return ctx.SignAsProgram([]byte(MintAuthoritySeed), []byte{global.ExtMintAuthorityBump})
}

func (p *Program) signAsVault(ctx *runtime.Context, global *Global) (solana.PublicKey, error) {
	return ctx.SignAsProgram([]byte(MVaultSeed), []byte{global.MVaultBump})
}

// accounts: [admin, global, m mint, ext mint, earn global, m vault, vault m token account]
func (p *Program) initialize(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 7); err != nil {
		return err
	}
	var args InitializeArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	admin, globalAddress, mMint, extMint, earnGlobal, mVault, vaultAccount :=
		accounts[0], accounts[1], accounts[2], accounts[3], accounts[4], accounts[5], accounts[6]
	if err := ctx.RequireSigner(admin); err != nil {
		return err
	}

	expectedGlobal, bump, err := GetGlobalPDA()
	if err != nil {
		return fmt.Errorf("failed to get global PDA: %w", err)
	}
	if !globalAddress.Equals(expectedGlobal) {
		return fmt.Errorf("%w: global %s", runtime.ErrInvalidAccount, globalAddress)
	}
	exists, err := ctx.Exists(globalAddress)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: ext global", runtime.ErrAccountAlreadyInitialized)
	}

	expectedEarnGlobal, _, err := earn.GetGlobalPDA()
	if err != nil {
		return fmt.Errorf("failed to get earn global PDA: %w", err)
	}
	if !earnGlobal.Equals(expectedEarnGlobal) {
		return fmt.Errorf("%w: earn global %s", runtime.ErrInvalidAccount, earnGlobal)
	}

	mInfo, err := token.GetMint(ctx, mMint)
	if err != nil {
		return err
	}
	extInfo, err := token.GetMint(ctx, extMint)
	if err != nil {
		return err
	}
	if !mInfo.Program.Equals(extInfo.Program) || mInfo.Decimals != extInfo.Decimals {
		return fmt.Errorf("%w: m and ext mints must share token program and decimals", runtime.ErrInvalidMint)
	}
	mintAuthority, mintAuthorityBump, err := GetMintAuthorityPDA()
	if err != nil {
		return fmt.Errorf("failed to get mint authority PDA: %w", err)
	}
	if !extInfo.MintAuthority.Equals(mintAuthority) {
		return fmt.Errorf("%w: ext mint authority must be %s", runtime.ErrInvalidMint, mintAuthority)
	}

	authorities, err := NewWrapAuthorities(args.WrapAuthorities)
	if err != nil {
		return err
	}

	expectedVault, vaultBump, err := GetMVaultPDA()
	if err != nil {
		return fmt.Errorf("failed to get m vault PDA: %w", err)
	}
	if !mVault.Equals(expectedVault) {
		return fmt.Errorf("%w: m vault %s", runtime.ErrInvalidAccount, mVault)
	}
	created, err := token.CreateAssociatedAccount(ctx, mVault, mMint)
	if err != nil {
		return err
	}
	if !created.Equals(vaultAccount) {
		return fmt.Errorf("%w: vault token account %s", runtime.ErrInvalidAccount, vaultAccount)
	}

	global := &Global{
		Admin:                admin,
		MMint:                mMint,
		ExtMint:              extMint,
		MEarnGlobalAccount:   earnGlobal,
		Bump:                 bump,
		MVaultBump:           vaultBump,
		ExtMintAuthorityBump: mintAuthorityBump,
		WrapAuthorities:      authorities,
		YieldConfig:          YieldConfig{Variant: NoYield},
	}
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	ctx.Logger().Info("wrap vault initialized",
		zap.Stringer("m_mint", mMint),
		zap.Stringer("ext_mint", extMint),
		zap.Int("wrap_authorities", len(args.WrapAuthorities)),
	)
	return nil
}

// accounts: [signer, token authority, global, m mint, ext mint, m vault,
// ext mint authority, from m token account, vault m token account,
// to ext token account]
func (p *Program) wrap(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 10); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, tokenAuthority, globalAddress := accounts[0], accounts[1], accounts[2]
	mMint, extMint, mVault, extMintAuthority := accounts[3], accounts[4], accounts[5], accounts[6]
	from, vaultAccount, to := accounts[7], accounts[8], accounts[9]

	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !global.WrapAuthorities.Contains(signer) {
		return runtime.ErrNotAuthorized
	}
	if args.Amount == 0 {
		return fmt.Errorf("%w: amount must be positive", runtime.ErrInvalidParam)
	}
	vc, err := loadVault(ctx, global, mMint, extMint, mVault, vaultAccount)
	if err != nil {
		return err
	}
	fromInfo, err := token.GetAccount(ctx, from)
	if err != nil {
		return err
	}
	if !fromInfo.Mint.Equals(global.MMint) {
		return fmt.Errorf("%w: source is not an m token account", runtime.ErrInvalidMint)
	}
	toInfo, err := token.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	if !toInfo.Mint.Equals(global.ExtMint) {
		return fmt.Errorf("%w: destination is not an ext token account", runtime.ErrInvalidMint)
	}

	if err := token.Transfer(ctx, from, vc.vaultAccount, args.Amount, tokenAuthority); err != nil {
		return err
	}
	authority, err := p.signAsMintAuthority(ctx, global)
	if err != nil {
		return err
	}
	if !authority.Equals(extMintAuthority) {
		return fmt.Errorf("%w: ext mint authority %s", runtime.ErrInvalidAccount, extMintAuthority)
	}
	if err := token.MintTo(ctx, extMint, to, args.Amount, authority); err != nil {
		return err
	}
	if err := checkCollateral(ctx, vc.vaultAccount, extMint); err != nil {
		return err
	}

	ctx.Logger().Debug("wrapped", zap.Uint64("amount", args.Amount), zap.Stringer("to", to))
	return ctx.Emit(EventWrapped, &Wrapped{From: from, To: to, Amount: args.Amount})
}

// accounts: [signer, token authority, global, m mint, ext mint, m vault,
// from ext token account, vault m token account, to m token account]
func (p *Program) unwrap(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 9); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, tokenAuthority, globalAddress := accounts[0], accounts[1], accounts[2]
	mMint, extMint, mVault := accounts[3], accounts[4], accounts[5]
	from, vaultAccount, to := accounts[6], accounts[7], accounts[8]

	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !global.WrapAuthorities.Contains(signer) {
		return runtime.ErrNotAuthorized
	}
	if args.Amount == 0 {
		return fmt.Errorf("%w: amount must be positive", runtime.ErrInvalidParam)
	}
	vc, err := loadVault(ctx, global, mMint, extMint, mVault, vaultAccount)
	if err != nil {
		return err
	}
	toInfo, err := token.GetAccount(ctx, to)
	if err != nil {
		return err
	}
	if !toInfo.Mint.Equals(global.MMint) {
		return fmt.Errorf("%w: destination is not an m token account", runtime.ErrInvalidMint)
	}

	if err := token.Burn(ctx, from, extMint, args.Amount, tokenAuthority); err != nil {
		return err
	}
	vaultSigner, err := p.signAsVault(ctx, global)
	if err != nil {
		return err
	}
	if err := token.Transfer(ctx, vc.vaultAccount, to, args.Amount, vaultSigner); err != nil {
		return err
	}
	if err := checkCollateral(ctx, vc.vaultAccount, extMint); err != nil {
		return err
	}

	ctx.Logger().Debug("unwrapped", zap.Uint64("amount", args.Amount), zap.Stringer("to", to))
	return ctx.Emit(EventUnwrapped, &Unwrapped{From: from, To: to, Amount: args.Amount})
}

// accounts: [admin, global, m vault, old m mint, new m mint,
// old vault m token account, new vault m token account, ext mint]
func (p *Program) setMMint(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 8); err != nil {
		return err
	}
	admin, globalAddress, mVault := accounts[0], accounts[1], accounts[2]
	oldMint, newMint := accounts[3], accounts[4]
	oldVaultAccount, newVaultAccount, extMint := accounts[5], accounts[6], accounts[7]

	if err := ctx.RequireSigner(admin); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !admin.Equals(global.Admin) {
		return runtime.ErrNotAuthorized
	}
	vc, err := loadVault(ctx, global, oldMint, extMint, mVault, oldVaultAccount)
	if err != nil {
		return err
	}
	if newMint.Equals(oldMint) {
		return fmt.Errorf("%w: new m mint equals current", runtime.ErrInvalidMint)
	}
	newInfo, err := token.GetMint(ctx, newMint)
	if err != nil {
		return err
	}
	if !newInfo.Program.Equals(vc.mMint.Program) || newInfo.Decimals != vc.mMint.Decimals {
		return fmt.Errorf("%w: new m mint must share token program and decimals", runtime.ErrInvalidMint)
	}
	expectedNewVault, err := GetVaultTokenAccount(newMint, newInfo.Program)
	if err != nil {
		return err
	}
	if !newVaultAccount.Equals(expectedNewVault) {
		return fmt.Errorf("%w: new vault token account %s", runtime.ErrInvalidAccount, newVaultAccount)
	}

	oldBalance, err := token.Balance(ctx, oldVaultAccount)
	if err != nil {
		return err
	}
	newBalance, err := token.Balance(ctx, newVaultAccount)
	if err != nil {
		return err
	}
	if newBalance < oldBalance {
		return fmt.Errorf("%w: new vault %d < old vault %d", runtime.ErrInsufficientCollateral, newBalance, oldBalance)
	}

	global.MMint = newMint
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	if err := checkCollateral(ctx, newVaultAccount, extMint); err != nil {
		return err
	}
	ctx.Logger().Info("m mint migrated",
		zap.Stringer("old", oldMint),
		zap.Stringer("new", newMint),
		zap.Uint64("backing", newBalance),
	)
	return ctx.Emit(EventMMintUpdated, &MMintUpdated{OldMint: oldMint, NewMint: newMint, Backing: newBalance})
}

// accounts: [admin, global, m mint, ext mint, m vault, ext mint authority,
// vault m token account, recipient ext token account]
func (p *Program) claimFees(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 8); err != nil {
		return err
	}
	admin, globalAddress, mMint, extMint := accounts[0], accounts[1], accounts[2], accounts[3]
	mVault, extMintAuthority, vaultAccount, recipient := accounts[4], accounts[5], accounts[6], accounts[7]

	if err := ctx.RequireSigner(admin); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !admin.Equals(global.Admin) {
		return runtime.ErrNotAuthorized
	}
	vc, err := loadVault(ctx, global, mMint, extMint, mVault, vaultAccount)
	if err != nil {
		return err
	}
	recipientInfo, err := token.GetAccount(ctx, recipient)
	if err != nil {
		return err
	}
	if !recipientInfo.Mint.Equals(global.ExtMint) {
		return fmt.Errorf("%w: recipient is not an ext token account", runtime.ErrInvalidMint)
	}

	vaultBalance, err := token.Balance(ctx, vc.vaultAccount)
	if err != nil {
		return err
	}
	if vaultBalance <= vc.extMint.Supply {
		ctx.Msg("no fees to claim")
		return nil
	}
	excess := vaultBalance - vc.extMint.Supply

	authority, err := p.signAsMintAuthority(ctx, global)
	if err != nil {
		return err
	}
	if !authority.Equals(extMintAuthority) {
		return fmt.Errorf("%w: ext mint authority %s", runtime.ErrInvalidAccount, extMintAuthority)
	}
	if err := token.MintTo(ctx, extMint, recipient, excess, authority); err != nil {
		return err
	}
	if err := checkCollateral(ctx, vc.vaultAccount, extMint); err != nil {
		return err
	}

	ctx.Logger().Info("fees claimed", zap.Uint64("amount", excess), zap.Stringer("recipient", recipient))
	return ctx.Emit(EventFeesClaimed, &FeesClaimed{Recipient: recipient, Amount: excess})
}

// accounts: [admin, global]
func (p *Program) updateWrapAuthority(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 2); err != nil {
		return err
	}
	var args UpdateWrapAuthorityArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	admin, globalAddress := accounts[0], accounts[1]
	if err := ctx.RequireSigner(admin); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !admin.Equals(global.Admin) {
		return runtime.ErrNotAuthorized
	}
	if err := global.WrapAuthorities.Set(int(args.Index), args.NewAuthority); err != nil {
		return err
	}
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	return ctx.Emit(EventWrapAuthorityUpdated, &WrapAuthorityUpdated{Index: args.Index, NewAuthority: args.NewAuthority})
}
