package client

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
	"solana-m/token"
)

// CreateMint initializes a mint at the address of mint under tokenProgram.
func (c *Client) CreateMint(mint solana.PrivateKey, tokenProgram solana.PublicKey, decimals uint8, authority solana.PublicKey) (*runtime.Receipt, error) {
	ix, err := token.NewInitializeMintInstruction(tokenProgram, mint.PublicKey(), decimals, authority)
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize mint instruction: %w", err)
	}
	return c.Send([]solana.PrivateKey{mint}, ix)
}

// CreateAssociatedAccount creates the associated token account of owner for
// mint and returns its address.
func (c *Client) CreateAssociatedAccount(owner, mint solana.PublicKey) (solana.PublicKey, *runtime.Receipt, error) {
	mintInfo, err := c.FetchMint(mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	ix, err := token.NewCreateAssociatedAccountInstruction(mintInfo.Program, c.PublicKey(), owner, mint)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to build create associated account instruction: %w", err)
	}
	receipt, err := c.Send(nil, ix)
	if err != nil {
		return solana.PublicKey{}, receipt, err
	}
	address, _, err := token.AssociatedAddress(owner, mint, mintInfo.Program)
	if err != nil {
		return solana.PublicKey{}, receipt, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	return address, receipt, nil
}

// CreateTokenAccount creates a plain token account at the address of
// account. Unlike associated accounts its owner may be mutable.
func (c *Client) CreateTokenAccount(account solana.PrivateKey, mint, owner solana.PublicKey, immutableOwner bool) (*runtime.Receipt, error) {
	mintInfo, err := c.FetchMint(mint)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewInitializeAccountInstruction(mintInfo.Program, account.PublicKey(), mint, owner, immutableOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize account instruction: %w", err)
	}
	return c.Send([]solana.PrivateKey{account}, ix)
}

// MintTo mints amount to destination with the client signer as mint
// authority.
func (c *Client) MintTo(mint, destination solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	mintInfo, err := c.FetchMint(mint)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewMintToInstruction(mintInfo.Program, mint, destination, c.PublicKey(), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to build mint to instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// Transfer moves amount out of source, owned or delegated to the signer.
func (c *Client) Transfer(source, destination solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	info, err := c.FetchTokenAccount(source)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewTransferInstruction(info.Program, source, destination, c.PublicKey(), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// Approve lets delegate spend up to amount of account.
func (c *Client) Approve(account, delegate solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	info, err := c.FetchTokenAccount(account)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewApproveInstruction(info.Program, account, delegate, c.PublicKey(), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to build approve instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// SetMintAuthority hands the mint authority held by the signer to
// newAuthority.
func (c *Client) SetMintAuthority(mint, newAuthority solana.PublicKey) (*runtime.Receipt, error) {
	mintInfo, err := c.FetchMint(mint)
	if err != nil {
		return nil, err
	}
	ix, err := token.NewSetMintAuthorityInstruction(mintInfo.Program, mint, newAuthority, c.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build set mint authority instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// FetchMint reads a mint.
func (c *Client) FetchMint(mint solana.PublicKey) (*token.MintInfo, error) {
	acc, err := c.fetch(mint, "mint")
	if err != nil {
		return nil, err
	}
	if !token.IsTokenProgram(acc.Owner) {
		return nil, fmt.Errorf("%s is not owned by a token program: %w", mint, runtime.ErrAccountOwnedByWrongProgram)
	}
	decoded, err := token.DecodeMint(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}
	return &token.MintInfo{Mint: *decoded, Address: mint, Program: acc.Owner}, nil
}

// FetchTokenAccount reads a token account.
func (c *Client) FetchTokenAccount(address solana.PublicKey) (*token.AccountInfo, error) {
	acc, err := c.fetch(address, "token")
	if err != nil {
		return nil, err
	}
	if !token.IsTokenProgram(acc.Owner) {
		return nil, fmt.Errorf("%s is not owned by a token program: %w", address, runtime.ErrAccountOwnedByWrongProgram)
	}
	decoded, err := token.DecodeAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	return &token.AccountInfo{Account: *decoded, Address: address, Program: acc.Owner}, nil
}

// TokenBalance returns the amount held by a token account.
func (c *Client) TokenBalance(address solana.PublicKey) (uint64, error) {
	info, err := c.FetchTokenAccount(address)
	if err != nil {
		return 0, err
	}
	return info.Amount, nil
}
