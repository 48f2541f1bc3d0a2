package client

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/earn"
	"solana-m/merkle"
	"solana-m/runtime"
)

// InitializeEarn creates the earn registry for mint with the signer as
// admin. The mint authority must already be the registry's token authority.
func (c *Client) InitializeEarn(mint solana.PublicKey, args earn.InitializeArgs) (*runtime.Receipt, error) {
	ix, err := earn.NewInitializeInstruction(c.PublicKey(), mint, args)
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// PropagateIndex pushes a new rate index and earner merkle root. The signer
// must be the admin or the portal authority.
func (c *Client) PropagateIndex(index uint64, root merkle.Hash) (*runtime.Receipt, error) {
	global, err := c.FetchEarnGlobal()
	if err != nil {
		return nil, err
	}
	ix, err := earn.NewPropagateIndexInstruction(c.PublicKey(), global.Mint, index, root)
	if err != nil {
		return nil, fmt.Errorf("failed to build propagate index instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// AddRegistrarEarner registers tokenAccount given its inclusion proof
// against the current earner root.
func (c *Client) AddRegistrarEarner(tokenAccount solana.PublicKey, proof []merkle.ProofElement) (*runtime.Receipt, error) {
	ix, err := earn.NewAddRegistrarEarnerInstruction(c.PublicKey(), tokenAccount, proof)
	if err != nil {
		return nil, fmt.Errorf("failed to build add earner instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// RemoveRegistrarEarner deregisters tokenAccount given proof that it is
// absent from the current earner root.
func (c *Client) RemoveRegistrarEarner(tokenAccount solana.PublicKey, neighbors []solana.PublicKey, proofs [][]merkle.ProofElement) (*runtime.Receipt, error) {
	ix, err := earn.NewRemoveRegistrarEarnerInstruction(c.PublicKey(), tokenAccount, neighbors, proofs)
	if err != nil {
		return nil, fmt.Errorf("failed to build remove earner instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// ClaimFor mints the yield owed to an earner and returns the amount minted.
func (c *Client) ClaimFor(tokenAccount solana.PublicKey, snapshotBalance uint64) (uint64, *runtime.Receipt, error) {
	global, err := c.FetchEarnGlobal()
	if err != nil {
		return 0, nil, err
	}
	ix, err := earn.NewClaimForInstruction(c.PublicKey(), global.Mint, tokenAccount, snapshotBalance)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build claim instruction: %w", err)
	}
	receipt, err := c.Send(nil, ix)
	if err != nil {
		return 0, receipt, err
	}
	if len(receipt.ReturnData) != 8 {
		return 0, receipt, fmt.Errorf("unexpected claim return data of %d bytes", len(receipt.ReturnData))
	}
	return binary.LittleEndian.Uint64(receipt.ReturnData), receipt, nil
}

// CompleteClaims closes the current claim cycle.
func (c *Client) CompleteClaims() (*runtime.Receipt, error) {
	ix, err := earn.NewCompleteClaimsInstruction(c.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to build complete claims instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// SetEarnAuthority rotates the key allowed to run claims.
func (c *Client) SetEarnAuthority(newEarnAuthority solana.PublicKey) (*runtime.Receipt, error) {
	ix, err := earn.NewSetEarnAuthorityInstruction(c.PublicKey(), newEarnAuthority)
	if err != nil {
		return nil, fmt.Errorf("failed to build set earn authority instruction: %w", err)
	}
	return c.Send(nil, ix)
}

// FetchEarnGlobal reads the registry singleton.
func (c *Client) FetchEarnGlobal() (*earn.Global, error) {
	address, _, err := earn.GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get global PDA: %w", err)
	}
	acc, err := c.fetch(address, "earn global")
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(earn.ProgramID) {
		return nil, runtime.ErrAccountOwnedByWrongProgram
	}
	return earn.DecodeGlobal(acc.Data)
}

// FetchEarner reads the earner record of tokenAccount. It fails with
// runtime.ErrNotEarning when the account is not registered.
func (c *Client) FetchEarner(tokenAccount solana.PublicKey) (*earn.Earner, error) {
	address, _, err := earn.GetEarnerPDA(tokenAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to get earner PDA: %w", err)
	}
	acc, err := c.fetch(address, "earner")
	if errors.Is(err, runtime.ErrAccountNotInitialized) {
		return nil, fmt.Errorf("%s: %w", tokenAccount, runtime.ErrNotEarning)
	}
	if err != nil {
		return nil, err
	}
	if !acc.Owner.Equals(earn.ProgramID) {
		return nil, runtime.ErrAccountOwnedByWrongProgram
	}
	return earn.DecodeEarner(acc.Data)
}

// IsEarning reports whether tokenAccount has an earner record.
func (c *Client) IsEarning(tokenAccount solana.PublicKey) (bool, error) {
	_, err := c.FetchEarner(tokenAccount)
	if errors.Is(err, runtime.ErrNotEarning) {
		return false, nil
	}
	return err == nil, err
}
