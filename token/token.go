// Package token is a minimal fungible token standard: mints, token accounts
// and the balance moving operations the registry and the extension rely on.
// Two instances are deployed, under the legacy token program ID and the
// Token-2022 program ID; a mint and its accounts always share one of them.
package token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
)

const (
	mintAccountName  = "Mint"
	tokenAccountName = "TokenAccount"
)

// Mint is the state of a token mint.
type Mint struct {
	MintAuthority solana.PublicKey
	Supply        uint64
	Decimals      uint8
}

// Account is the state of a token account.
type Account struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        solana.PublicKey
	DelegatedAmount uint64
	ImmutableOwner  bool
}

// MintInfo is a decoded mint together with its address and token program.
type MintInfo struct {
	Mint
	Address solana.PublicKey
	Program solana.PublicKey
}

// AccountInfo is a decoded token account together with its address and
// token program.
type AccountInfo struct {
	Account
	Address solana.PublicKey
	Program solana.PublicKey
}

// IsTokenProgram reports whether id is one of the deployed token programs.
func IsTokenProgram(id solana.PublicKey) bool {
	return id.Equals(solana.TokenProgramID) || id.Equals(solana.Token2022ProgramID)
}

// AssociatedAddress derives the canonical token account of owner for mint.
func AssociatedAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			owner[:],
			tokenProgram[:],
			mint[:],
		},
		solana.SPLAssociatedTokenAccountProgramID,
	)
}

// DecodeMint decodes raw account data into a mint.
func DecodeMint(data []byte) (*Mint, error) {
	var m Mint
	if err := runtime.UnmarshalAccount(mintAccountName, data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeAccount decodes raw account data into a token account.
func DecodeAccount(data []byte) (*Account, error) {
	var a Account
	if err := runtime.UnmarshalAccount(tokenAccountName, data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetMint loads a mint owned by either token program.
func GetMint(ctx *runtime.Context, address solana.PublicKey) (*MintInfo, error) {
	acc, err := ctx.Get(address)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: mint %s", runtime.ErrAccountNotInitialized, address)
	}
	if !IsTokenProgram(acc.Owner) {
		return nil, fmt.Errorf("%w: mint %s", runtime.ErrAccountOwnedByWrongProgram, address)
	}
	m, err := DecodeMint(acc.Data)
	if err != nil {
		return nil, err
	}
	return &MintInfo{Mint: *m, Address: address, Program: acc.Owner}, nil
}

// GetAccount loads a token account owned by either token program.
func GetAccount(ctx *runtime.Context, address solana.PublicKey) (*AccountInfo, error) {
	acc, err := ctx.Get(address)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%w: token account %s", runtime.ErrAccountNotInitialized, address)
	}
	if !IsTokenProgram(acc.Owner) {
		return nil, fmt.Errorf("%w: token account %s", runtime.ErrAccountOwnedByWrongProgram, address)
	}
	a, err := DecodeAccount(acc.Data)
	if err != nil {
		return nil, err
	}
	return &AccountInfo{Account: *a, Address: address, Program: acc.Owner}, nil
}

// Balance returns the amount held by a token account.
func Balance(ctx *runtime.Context, address solana.PublicKey) (uint64, error) {
	info, err := GetAccount(ctx, address)
	if err != nil {
		return 0, err
	}
	return info.Amount, nil
}

func saveMint(ctx *runtime.Context, info *MintInfo) error {
	return ctx.Save(info.Address, mintAccountName, &info.Mint)
}

func saveAccount(ctx *runtime.Context, info *AccountInfo) error {
	return ctx.Save(info.Address, tokenAccountName, &info.Account)
}

// InitializeMint creates a mint at address under tokenProgram.
func InitializeMint(ctx *runtime.Context, tokenProgram, address solana.PublicKey, decimals uint8, authority solana.PublicKey) error {
	if !IsTokenProgram(tokenProgram) {
		return fmt.Errorf("%w: %s is not a token program", runtime.ErrInvalidAccount, tokenProgram)
	}
	return ctx.Invoke(tokenProgram, func(ctx *runtime.Context) error {
		exists, err := ctx.Exists(address)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: mint %s", runtime.ErrAccountAlreadyInitialized, address)
		}
		return saveMint(ctx, &MintInfo{
			Mint:    Mint{MintAuthority: authority, Decimals: decimals},
			Address: address,
		})
	})
}

// InitializeAccount creates a token account for mint at address. The token
// program is taken from the mint.
func InitializeAccount(ctx *runtime.Context, address, mint, owner solana.PublicKey, immutableOwner bool) error {
	mintInfo, err := GetMint(ctx, mint)
	if err != nil {
		return err
	}
	return ctx.Invoke(mintInfo.Program, func(ctx *runtime.Context) error {
		exists, err := ctx.Exists(address)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: token account %s", runtime.ErrAccountAlreadyInitialized, address)
		}
		return saveAccount(ctx, &AccountInfo{
			Account: Account{Mint: mint, Owner: owner, ImmutableOwner: immutableOwner},
			Address: address,
		})
	})
}

// CreateAssociatedAccount creates the associated token account of owner for
// mint. Associated accounts always have an immutable owner.
func CreateAssociatedAccount(ctx *runtime.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	mintInfo, err := GetMint(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	address, _, err := AssociatedAddress(owner, mint, mintInfo.Program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	if err := InitializeAccount(ctx, address, mint, owner, true); err != nil {
		return solana.PublicKey{}, err
	}
	return address, nil
}

// MintTo mints amount to a token account. authority must be the mint
// authority and must have signed.
func MintTo(ctx *runtime.Context, mint, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	mintInfo, err := GetMint(ctx, mint)
	if err != nil {
		return err
	}
	return ctx.Invoke(mintInfo.Program, func(ctx *runtime.Context) error {
		if err := ctx.RequireSigner(authority); err != nil {
			return err
		}
		if !mintInfo.MintAuthority.Equals(authority) {
			return fmt.Errorf("%w: mint authority of %s", runtime.ErrOwnerMismatch, mint)
		}
		dest, err := GetAccount(ctx, to)
		if err != nil {
			return err
		}
		if !dest.Mint.Equals(mint) {
			return runtime.ErrMintMismatch
		}
		if mintInfo.Supply+amount < mintInfo.Supply || dest.Amount+amount < dest.Amount {
			return runtime.ErrMathOverflow
		}
		mintInfo.Supply += amount
		dest.Amount += amount
		if err := saveMint(ctx, mintInfo); err != nil {
			return err
		}
		return saveAccount(ctx, dest)
	})
}

// authorize checks that authority may move amount out of acc, consuming the
// delegated allowance when it acts as delegate.
func authorize(ctx *runtime.Context, acc *AccountInfo, amount uint64, authority solana.PublicKey) error {
	if err := ctx.RequireSigner(authority); err != nil {
		return err
	}
	if acc.Owner.Equals(authority) {
		return nil
	}
	if !acc.Delegate.IsZero() && acc.Delegate.Equals(authority) {
		if acc.DelegatedAmount < amount {
			return fmt.Errorf("%w: delegated allowance", runtime.ErrInsufficientFunds)
		}
		acc.DelegatedAmount -= amount
		if acc.DelegatedAmount == 0 {
			acc.Delegate = solana.PublicKey{}
		}
		return nil
	}
	return fmt.Errorf("%w: %s cannot move funds of %s", runtime.ErrOwnerMismatch, authority, acc.Address)
}

// Transfer moves amount between two accounts of the same mint. authority is
// the source owner or its delegate.
func Transfer(ctx *runtime.Context, from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	source, err := GetAccount(ctx, from)
	if err != nil {
		return err
	}
	return ctx.Invoke(source.Program, func(ctx *runtime.Context) error {
		dest, err := GetAccount(ctx, to)
		if err != nil {
			return err
		}
		if !source.Mint.Equals(dest.Mint) || !source.Program.Equals(dest.Program) {
			return runtime.ErrMintMismatch
		}
		if err := authorize(ctx, source, amount, authority); err != nil {
			return err
		}
		if source.Amount < amount {
			return runtime.ErrInsufficientFunds
		}
		if from.Equals(to) {
			return saveAccount(ctx, source)
		}
		if dest.Amount+amount < dest.Amount {
			return runtime.ErrMathOverflow
		}
		source.Amount -= amount
		dest.Amount += amount
		if err := saveAccount(ctx, source); err != nil {
			return err
		}
		return saveAccount(ctx, dest)
	})
}

// Burn destroys amount from a token account and its mint supply.
func Burn(ctx *runtime.Context, from, mint solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	source, err := GetAccount(ctx, from)
	if err != nil {
		return err
	}
	return ctx.Invoke(source.Program, func(ctx *runtime.Context) error {
		if !source.Mint.Equals(mint) {
			return runtime.ErrMintMismatch
		}
		mintInfo, err := GetMint(ctx, mint)
		if err != nil {
			return err
		}
		if err := authorize(ctx, source, amount, authority); err != nil {
			return err
		}
		if source.Amount < amount {
			return runtime.ErrInsufficientFunds
		}
		if mintInfo.Supply < amount {
			return runtime.ErrMathUnderflow
		}
		source.Amount -= amount
		mintInfo.Supply -= amount
		if err := saveAccount(ctx, source); err != nil {
			return err
		}
		return saveMint(ctx, mintInfo)
	})
}

// Approve lets delegate move up to amount out of account. An amount of zero
// revokes the delegation.
func Approve(ctx *runtime.Context, account, delegate solana.PublicKey, amount uint64, owner solana.PublicKey) error {
	info, err := GetAccount(ctx, account)
	if err != nil {
		return err
	}
	return ctx.Invoke(info.Program, func(ctx *runtime.Context) error {
		if err := ctx.RequireSigner(owner); err != nil {
			return err
		}
		if !info.Owner.Equals(owner) {
			return runtime.ErrOwnerMismatch
		}
		if amount == 0 {
			info.Delegate = solana.PublicKey{}
		} else {
			info.Delegate = delegate
		}
		info.DelegatedAmount = amount
		return saveAccount(ctx, info)
	})
}

// SetOwner hands a token account to a new owner. Accounts with an immutable
// owner refuse.
func SetOwner(ctx *runtime.Context, account, newOwner, owner solana.PublicKey) error {
	info, err := GetAccount(ctx, account)
	if err != nil {
		return err
	}
	return ctx.Invoke(info.Program, func(ctx *runtime.Context) error {
		if err := ctx.RequireSigner(owner); err != nil {
			return err
		}
		if !info.Owner.Equals(owner) {
			return runtime.ErrOwnerMismatch
		}
		if info.ImmutableOwner {
			return runtime.ErrImmutableOwner
		}
		info.Owner = newOwner
		info.Delegate = solana.PublicKey{}
		info.DelegatedAmount = 0
		return saveAccount(ctx, info)
	})
}

// SetMintAuthority replaces the mint authority.
func SetMintAuthority(ctx *runtime.Context, mint, newAuthority, authority solana.PublicKey) error {
	mintInfo, err := GetMint(ctx, mint)
	if err != nil {
		return err
	}
	return ctx.Invoke(mintInfo.Program, func(ctx *runtime.Context) error {
		if err := ctx.RequireSigner(authority); err != nil {
			return err
		}
		if !mintInfo.MintAuthority.Equals(authority) {
			return runtime.ErrOwnerMismatch
		}
		mintInfo.MintAuthority = newAuthority
		return saveMint(ctx, mintInfo)
	})
}
