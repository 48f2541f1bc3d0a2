package token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
)

// Program processes token instructions sent by clients. Other programs call
// the package functions directly.
type Program struct {
	id         solana.PublicKey
	dispatcher *runtime.Dispatcher
}

// NewProgram returns the token program deployed at id, which must be
// solana.TokenProgramID or solana.Token2022ProgramID.
func NewProgram(id solana.PublicKey) *Program {
	p := &Program{id: id, dispatcher: runtime.NewDispatcher()}
	p.dispatcher.Handle("initialize_mint", p.initializeMint)
	p.dispatcher.Handle("initialize_account", p.initializeAccount)
	p.dispatcher.Handle("create_associated_account", p.createAssociatedAccount)
	p.dispatcher.Handle("mint_to", p.mintTo)
	p.dispatcher.Handle("transfer", p.transfer)
	p.dispatcher.Handle("burn", p.burn)
	p.dispatcher.Handle("approve", p.approve)
	p.dispatcher.Handle("set_owner", p.setOwner)
	p.dispatcher.Handle("set_mint_authority", p.setMintAuthority)
	return p
}

func (p *Program) ID() solana.PublicKey { return p.id }

func (p *Program) Process(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	return p.dispatcher.Dispatch(ctx, accounts, data)
}

type InitializeMintArgs struct {
	Decimals      uint8
	MintAuthority solana.PublicKey
}

type InitializeAccountArgs struct {
	ImmutableOwner bool
}

type AmountArgs struct {
	Amount uint64
}

func (p *Program) ownsMint(ctx *runtime.Context, mint solana.PublicKey) error {
	info, err := GetMint(ctx, mint)
	if err != nil {
		return err
	}
	if !info.Program.Equals(p.id) {
		return fmt.Errorf("%w: mint %s", runtime.ErrAccountOwnedByWrongProgram, mint)
	}
	return nil
}

func (p *Program) ownsAccount(ctx *runtime.Context, account solana.PublicKey) error {
	info, err := GetAccount(ctx, account)
	if err != nil {
		return err
	}
	if !info.Program.Equals(p.id) {
		return fmt.Errorf("%w: token account %s", runtime.ErrAccountOwnedByWrongProgram, account)
	}
	return nil
}

// accounts: [mint]
func (p *Program) initializeMint(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 1); err != nil {
		return err
	}
	var args InitializeMintArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := ctx.RequireSigner(accounts[0]); err != nil {
		return err
	}
	return InitializeMint(ctx, p.id, accounts[0], args.Decimals, args.MintAuthority)
}

// accounts: [account, mint, owner]
func (p *Program) initializeAccount(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args InitializeAccountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := ctx.RequireSigner(accounts[0]); err != nil {
		return err
	}
	if err := p.ownsMint(ctx, accounts[1]); err != nil {
		return err
	}
	return InitializeAccount(ctx, accounts[0], accounts[1], accounts[2], args.ImmutableOwner)
}

// accounts: [payer, associated account, owner, mint]
func (p *Program) createAssociatedAccount(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 4); err != nil {
		return err
	}
	if err := ctx.RequireSigner(accounts[0]); err != nil {
		return err
	}
	if err := p.ownsMint(ctx, accounts[3]); err != nil {
		return err
	}
	address, err := CreateAssociatedAccount(ctx, accounts[2], accounts[3])
	if err != nil {
		return err
	}
	if !address.Equals(accounts[1]) {
		return fmt.Errorf("%w: associated token account %s", runtime.ErrInvalidAccount, accounts[1])
	}
	return nil
}

// accounts: [mint, destination, authority]
func (p *Program) mintTo(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := p.ownsMint(ctx, accounts[0]); err != nil {
		return err
	}
	return MintTo(ctx, accounts[0], accounts[1], args.Amount, accounts[2])
}

// accounts: [source, destination, authority]
func (p *Program) transfer(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := p.ownsAccount(ctx, accounts[0]); err != nil {
		return err
	}
	return Transfer(ctx, accounts[0], accounts[1], args.Amount, accounts[2])
}

// accounts: [source, mint, authority]
func (p *Program) burn(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := p.ownsAccount(ctx, accounts[0]); err != nil {
		return err
	}
	return Burn(ctx, accounts[0], accounts[1], args.Amount, accounts[2])
}

// accounts: [account, delegate, owner]
func (p *Program) approve(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	var args AmountArgs
	if err := runtime.DecodeArgs(data, &args); err != nil {
		return err
	}
	if err := p.ownsAccount(ctx, accounts[0]); err != nil {
		return err
	}
	return Approve(ctx, accounts[0], accounts[1], args.Amount, accounts[2])
}

// accounts: [account, new owner, owner]
func (p *Program) setOwner(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	if err := p.ownsAccount(ctx, accounts[0]); err != nil {
		return err
	}
	return SetOwner(ctx, accounts[0], accounts[1], accounts[2])
}

// accounts: [mint, new authority, authority]
func (p *Program) setMintAuthority(ctx *runtime.Context, accounts []solana.PublicKey, data []byte) error {
	if err := runtime.RequireAccounts(accounts, 3); err != nil {
		return err
	}
	if err := p.ownsMint(ctx, accounts[0]); err != nil {
		return err
	}
	return SetMintAuthority(ctx, accounts[0], accounts[1], accounts[2])
}
