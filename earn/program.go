package earn

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-m/merkle"
	"solana-m/runtime"
	"solana-m/token"
)

// Program is the earn registry.
type Program struct {
	dispatcher *runtime.Dispatcher
}

func NewProgram() *Program {
	p := &Program{dispatcher: runtime.NewDispatcher()}
	p.dispatcher.Handle("initialize", p.initialize)
	p.dispatcher.Handle("propagate_index", p.propagateIndex)
	p.dispatcher.Handle("add_registrar_earner", p.addRegistrarEarner)
	p.dispatcher.Handle("remove_registrar_earner", p.removeRegistrarEarner)
	p.dispatcher.Handle("claim_for", p.claimFor)
	p.dispatcher.Handle("complete_claims", p.completeClaims)
	p.dispatcher.Handle("set_earn_authority", p.setEarnAuthority)
	return p
}

func (p *Program) ID() solana.PublicKey { return ProgramID }

func (p *Program) Process(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	return p.dispatcher.Dispatch(ctx, accounts, data)
}

type InitializeArgs struct {
	EarnAuthority   solana.PublicKey
	PortalAuthority solana.PublicKey
	InitialIndex    uint64
	ClaimCooldown   uint64
}

type PropagateIndexArgs struct {
	Index            uint64
	EarnerMerkleRoot merkle.Hash
}

type AddRegistrarEarnerArgs struct {
	Proof []merkle.ProofElement
}

// RemoveRegistrarEarnerArgs carries every other earner of the current root as
// a token account, so the leaves are recomputed here rather than trusted.
type RemoveRegistrarEarnerArgs struct {
	Neighbors []solana.PublicKey
	Proofs    [][]merkle.ProofElement
}

type ClaimForArgs struct {
	SnapshotBalance uint64
}

type SetEarnAuthorityArgs struct {
	NewEarnAuthority solana.PublicKey
}

// accounts: [admin, global, mint]
func (p *Program) initialize(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args InitializeArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	admin, globalAddress, mint := accounts[0], accounts[1], accounts[2]
	if err := ctx.RequireSigner(admin); err != nil {
		return err
	}

	expected, bump, err := GetGlobalPDA()
	if err != nil {
		return fmt.Errorf("failed to get global PDA: %w", err)
	}
	if !globalAddress.Equals(expected) {
		return fmt.Errorf("%w: global %s", runtime.ErrInvalidAccount, globalAddress)
	}
	exists, err := ctx.Exists(globalAddress)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: earn global", runtime.ErrAccountAlreadyInitialized)
	}
	if args.InitialIndex == 0 {
		return fmt.Errorf("%w: initial index must be positive", runtime.ErrInvalidParam)
	}
	if _, err := cooldownSeconds(args.ClaimCooldown); err != nil {
		return err
	}

	mintInfo, err := token.GetMint(ctx, mint)
	if err != nil {
		return err
	}
	tokenAuthority, tokenAuthorityBump, err := GetTokenAuthorityPDA()
	if err != nil {
		return fmt.Errorf("failed to get token authority PDA: %w", err)
	}
	if !mintInfo.MintAuthority.Equals(tokenAuthority) {
		return fmt.Errorf("%w: mint authority must be %s", runtime.ErrInvalidMint, tokenAuthority)
	}

	global := &Global{
		Admin:              admin,
		EarnAuthority:      args.EarnAuthority,
		PortalAuthority:    args.PortalAuthority,
		Mint:               mint,
		Index:              args.InitialIndex,
		Timestamp:          ctx.Now(),
		ClaimCooldown:      args.ClaimCooldown,
		ClaimComplete:      true,
		Bump:               bump,
		TokenAuthorityBump: tokenAuthorityBump,
	}
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	ctx.Logger().Info("earn registry initialized",
		zap.Stringer("mint", mint),
		zap.Uint64("index", args.InitialIndex),
	)
	return nil
}

func cooldownSeconds(cooldown uint64) (int64, error) {
	if cooldown > math.MaxInt64 {
		return 0, fmt.Errorf("%w: claim cooldown %d", runtime.ErrTypeConversion, cooldown)
	}
	return int64(cooldown), nil
}

// accounts: [signer, global, mint]
func (p *Program) propagateIndex(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args PropagateIndexArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, globalAddress, mint := accounts[0], accounts[1], accounts[2]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !signer.Equals(global.Admin) && !signer.Equals(global.PortalAuthority) {
		return runtime.ErrNotAuthorized
	}
	if !mint.Equals(global.Mint) {
		return runtime.ErrInvalidMint
	}
	if args.Index < global.Index {
		return fmt.Errorf("%w: index %d below current %d", runtime.ErrInvalidParam, args.Index, global.Index)
	}

	global.EarnerMerkleRoot = args.EarnerMerkleRoot

	cooldown, err := cooldownSeconds(global.ClaimCooldown)
	if err != nil {
		return err
	}
	now := ctx.Now()
	if args.Index > global.Index && global.ClaimComplete && now-global.Timestamp >= cooldown {
		mintInfo, err := token.GetMint(ctx, mint)
		if err != nil {
			return err
		}
		maxYield, err := ComputeYield(mintInfo.Supply, args.Index, global.Index)
		if err != nil {
			return err
		}
		global.Index = args.Index
		global.Timestamp = now
		global.MaxYield = maxYield
		global.DistributedYield = 0
		global.ClaimComplete = false
		ctx.Logger().Info("claim cycle started",
			zap.Uint64("index", global.Index),
			zap.Uint64("max_yield", maxYield),
		)
	} else if args.Index > global.Index {
		ctx.Logger().Debug("index deferred, claim cycle still open or cooling down",
			zap.Uint64("requested", args.Index),
			zap.Uint64("index", global.Index),
		)
	}

	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	return ctx.Emit(EventIndexUpdate, &IndexUpdate{Index: global.Index, Timestamp: global.Timestamp})
}

// accounts: [signer, global, user token account, earner]
func (p *Program) addRegistrarEarner(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 4); err != nil {
		return err
	}
	var args AddRegistrarEarnerArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, globalAddress, tokenAccount, earnerAddress := accounts[0], accounts[1], accounts[2], accounts[3]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}

	info, err := token.GetAccount(ctx, tokenAccount)
	if err != nil {
		return err
	}
	if !info.Mint.Equals(global.Mint) {
		return runtime.ErrInvalidMint
	}
	if !info.ImmutableOwner {
		return runtime.ErrMutableOwner
	}

	bump, err := checkEarnerAddress(earnerAddress, tokenAccount)
	if err != nil {
		return err
	}
	exists, err := ctx.Exists(earnerAddress)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", runtime.ErrAlreadyEarns, tokenAccount)
	}
	if !merkle.Verify(global.EarnerMerkleRoot, EarnerLeaf(tokenAccount), args.Proof) {
		return runtime.ErrInvalidProof
	}

	earner := &Earner{
		User:               info.Owner,
		UserTokenAccount:   tokenAccount,
		LastClaimIndex:     global.Index,
		LastClaimTimestamp: ctx.Now(),
		Bump:               bump,
	}
	if err := ctx.Save(earnerAddress, earnerAccountName, earner); err != nil {
		return err
	}
	ctx.Logger().Info("earner added", zap.Stringer("token_account", tokenAccount))
	return ctx.Emit(EventEarnerAdded, &EarnerAdded{TokenAccount: tokenAccount, User: info.Owner})
}

// accounts: [signer, global, user token account, earner]
func (p *Program) removeRegistrarEarner(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 4); err != nil {
		return err
	}
	var args RemoveRegistrarEarnerArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, globalAddress, tokenAccount, earnerAddress := accounts[0], accounts[1], accounts[2], accounts[3]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if _, err := loadEarner(ctx, earnerAddress, tokenAccount); err != nil {
		return err
	}
	neighbors := make([][]byte, len(args.Neighbors))
	for i := range args.Neighbors {
		neighbors[i] = args.Neighbors[i][:]
	}
	if !merkle.VerifyExclusion(global.EarnerMerkleRoot, tokenAccount[:], neighbors, args.Proofs) {
		return runtime.ErrInvalidProof
	}
	if err := ctx.Close(earnerAddress); err != nil {
		return err
	}
	ctx.Logger().Info("earner removed", zap.Stringer("token_account", tokenAccount))
	return ctx.Emit(EventEarnerRemoved, &EarnerRemoved{TokenAccount: tokenAccount})
}

// accounts: [earn authority, global, mint, token authority, user token account, earner]
func (p *Program) claimFor(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 6); err != nil {
		return err
	}
	var args ClaimForArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, globalAddress, mint, tokenAuthority, tokenAccount, earnerAddress :=
		accounts[0], accounts[1], accounts[2], accounts[3], accounts[4], accounts[5]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !signer.Equals(global.EarnAuthority) {
		return runtime.ErrNotAuthorized
	}
	if !mint.Equals(global.Mint) {
		return runtime.ErrInvalidMint
	}
	earner, err := loadEarner(ctx, earnerAddress, tokenAccount)
	if err != nil {
		return err
	}
	if global.ClaimComplete {
		return runtime.ErrNoActiveClaim
	}
	if earner.LastClaimIndex >= global.Index {
		return fmt.Errorf("%w: %s at index %d", runtime.ErrAlreadyClaimed, tokenAccount, global.Index)
	}

	amount, err := ComputeYield(args.SnapshotBalance, global.Index, earner.LastClaimIndex)
	if err != nil {
		return err
	}
	distributed, err := addChecked(global.DistributedYield, amount)
	if err != nil {
		return err
	}
	if distributed > global.MaxYield {
		return fmt.Errorf("%w: %d > %d", runtime.ErrExceedsMaxYield, distributed, global.MaxYield)
	}

	if amount > 0 {
		authority, err := ctx.SignAsProgram([]byte(TokenAuthoritySeed), []byte{global.TokenAuthorityBump})
		if err != nil {
			return err
		}
		if !authority.Equals(tokenAuthority) {
			return fmt.Errorf("%w: token authority %s", runtime.ErrInvalidAccount, tokenAuthority)
		}
		if err := token.MintTo(ctx, mint, tokenAccount, amount, authority); err != nil {
			return err
		}
	}

	earner.LastClaimIndex = global.Index
	earner.LastClaimTimestamp = ctx.Now()
	global.DistributedYield = distributed
	if err := ctx.Save(earnerAddress, earnerAccountName, earner); err != nil {
		return err
	}
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}

	ret := make([]byte, 8)
	binary.LittleEndian.PutUint64(ret, amount)
	ctx.SetReturnData(ret)

	ctx.Logger().Debug("yield claimed",
		zap.Stringer("token_account", tokenAccount),
		zap.Uint64("amount", amount),
		zap.Uint64("index", global.Index),
	)
	return ctx.Emit(EventRewardsClaim, &RewardsClaim{
		TokenAccount:   tokenAccount,
		RecipientToken: tokenAccount,
		Amount:         amount,
		Ts:             ctx.Now(),
		Index:          global.Index,
	})
}

// accounts: [earn authority, global]
func (p *Program) completeClaims(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 2); err != nil {
		return err
	}
	signer, globalAddress := accounts[0], accounts[1]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !signer.Equals(global.EarnAuthority) {
		return runtime.ErrNotAuthorized
	}
	if global.ClaimComplete {
		return runtime.ErrNoActiveClaim
	}
	global.ClaimComplete = true
	if err := saveGlobal(ctx, globalAddress, global); err != nil {
		return err
	}
	ctx.Logger().Info("claim cycle completed",
		zap.Uint64("index", global.Index),
		zap.Uint64("distributed", global.DistributedYield),
	)
	return ctx.Emit(EventClaimsComplete, &ClaimsComplete{Index: global.Index, DistributedYield: global.DistributedYield})
}

// accounts: [admin, global]
func (p *Program) setEarnAuthority(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 2); err != nil {
		return err
	}
	var args SetEarnAuthorityArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	signer, globalAddress := accounts[0], accounts[1]
	if err := ctx.RequireSigner(signer); err != nil {
		return err
	}
	global, err := loadGlobal(ctx, globalAddress)
	if err != nil {
		return err
	}
	if !signer.Equals(global.Admin) {
		return runtime.ErrNotAuthorized
	}
	global.EarnAuthority = args.NewEarnAuthority
	return saveGlobal(ctx, globalAddress, global)
}
