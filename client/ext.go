package client

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/ext"
	"solana-m/runtime"
)

// InitializeExt creates the wrap vault over mMint with the signer as admin.
// The ext mint authority must already be the vault's mint authority PDA.
func (c *Client) InitializeExt(mMint, extMint solana.PublicKey, wrapAuthorities []solana.PublicKey) (*runtime.Receipt, error) {
	mintInfo, err := c.FetchMint(mMint)
	if err != nil {
		return nil, err
	}
	ix, err := ext.NewInitializeInstruction(c.PublicKey(), mMint, extMint, mintInfo.Program, wrapAuthorities)
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize instruction: %w", err)
	}
	return c.Send(nil, ix)
}

func (c *Client) wrapAccounts(holder solana.PrivateKey, from, to solana.PublicKey) (ext.WrapAccounts, error) {
	global, err := c.FetchExtGlobal()
	if err != nil {
		return ext.WrapAccounts{}, err
	}
	mintInfo, err := c.FetchMint(global.MMint)
	if err != nil {
		return ext.WrapAccounts{}, err
	}
	return ext.WrapAccounts{
		MMint:          global.MMint,
		ExtMint:        global.ExtMint,
		TokenProgram:   mintInfo.Program,
		From:           from,
		To:             to,
		TokenAuthority: holder.PublicKey(),
	}, nil
}

// Wrap deposits amount of M from an account owned by the signer and mints the
// same amount of ext to to. The signer must be a wrap authority.
func (c *Client) Wrap(from, to solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	return c.WrapFor(c.Signer, from, to, amount)
}

// WrapFor is Wrap where holder owns from and cosigns the transaction.
func (c *Client) WrapFor(holder solana.PrivateKey, from, to solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	accs, err := c.wrapAccounts(holder, from, to)
	if err != nil {
		return nil, err
	}
	ix, err := ext.NewWrapInstruction(c.PublicKey(), accs, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to build wrap instruction: %w", err)
	}
	return c.Send([]solana.PrivateKey{holder}, ix)
}

// Unwrap burns amount of ext from an account owned by the signer and releases
// the same amount of M to to.
func (c *Client) Unwrap(from, to solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	return c.UnwrapFor(c.Signer, from, to, amount)
}

// UnwrapFor is Unwrap where holder owns from and cosigns the transaction.
func (c *Client) UnwrapFor(holder solana.PrivateKey, from, to solana.PublicKey, amount uint64) (*runtime.Receipt, error) {
	accs, err := c.wrapAccounts(holder, from, to)
	if err != nil {
		return nil, err
	}
	ix, err := ext.NewUnwrapInstruction(c.PublicKey(), accs, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to build unwrap instruction: %w", err)
	}
	return c.Send([]solana.PrivateKey{holder}, ix)
}

// SetMMint migrates the vault to newMint. The vault's token account for the
// new mint must already hold at least as much as the current one.
func (c *Client) SetMMint(newMint solana.PublicKey) (*runtime.Receipt, error) {
	global, err := c.FetchExtGlobal()
	if err != nil {
		return nil, err
	}
	mintInfo, err := c.FetchMint(global.MMint)
	if err != nil {
		return nil, err
	}
	ix, err := ext.NewSetMMintInstruction(c.PublicKey(), global.MMint, newMint, global.ExtMint, mintInfo.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to build set m mint instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// ClaimFees mints the vault's excess M as ext to recipient.
func (c *Client) ClaimFees(recipient solana.PublicKey) (*runtime.Receipt, error) {
	global, err := c.FetchExtGlobal()
	if err != nil {
		return nil, err
	}
	mintInfo, err := c.FetchMint(global.MMint)
	if err != nil {
		return nil, err
	}
	ix, err := ext.NewClaimFeesInstruction(c.PublicKey(), global.MMint, global.ExtMint, mintInfo.Program, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to build claim fees instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// UpdateWrapAuthority replaces the wrap authority slot at index. The zero key
// clears the slot.
func (c *Client) UpdateWrapAuthority(index uint8, newAuthority solana.PublicKey) (*runtime.Receipt, error) {
	ix, err := ext.NewUpdateWrapAuthorityInstruction(c.PublicKey(), index, newAuthority)
	if err != nil {
		return nil, fmt.Errorf("failed to build update wrap authority instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// FetchExtGlobal reads the vault singleton.
func (c *Client) FetchExtGlobal() (*ext.Global, error) {
	address, _, err := ext.GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get global PDA: %w", err)
	}
	acc, err := c.fetch(address, "ext global")
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(ext.ProgramID) {
		return nil, runtime.ErrAccountOwnedByWrongProgram
	}
	return ext.DecodeGlobal(acc.Data)
}

// VaultBalance returns the M held by the vault for the current base mint.
func (c *Client) VaultBalance() (uint64, error) {
	global, err := c.FetchExtGlobal()
	if err != nil {
		return 0, err
	}
	mintInfo, err := c.FetchMint(global.MMint)
	if err != nil {
		return 0, err
	}
	vault, err := ext.GetVaultTokenAccount(global.MMint, mintInfo.Program)
	if err != nil {
		return 0, err
	}
	return c.TokenBalance(vault)
}
