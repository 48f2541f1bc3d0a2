// Package ext implements the wrap vault: a derivative token minted 1:1 against
// base tokens held by a program owned vault.
package ext

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/runtime"
	"solana-m/token"
)

var ProgramID = solana.MustPublicKeyFromBase58("3C865D264L4NkAm78zfnDzQJJvXuU3fMjRUvRxyPi5da")

const (
	GlobalSeed        = "global"
	MVaultSeed        = "m_vault"
	MintAuthoritySeed = "mint_authority"

	// WrapAuthorityCapacity is the number of wrap authority slots.
	WrapAuthorityCapacity = 10

	globalAccountName = "ExtGlobal"
)

// AuthoritySlot is one wrap authority entry. An unoccupied slot carries no
// key.
type AuthoritySlot struct {
	Occupied bool
	Key      solana.PublicKey
}

// WrapAuthorities is the fixed capacity set of keys allowed to wrap and
// unwrap.
type WrapAuthorities [WrapAuthorityCapacity]AuthoritySlot

// NewWrapAuthorities fills slots in order. Zero keys are rejected, as are
// duplicates and more keys than slots.
func NewWrapAuthorities(keys []solana.PublicKey) (WrapAuthorities, error) {
	var w WrapAuthorities
	if len(keys) > WrapAuthorityCapacity {
		return w, fmt.Errorf("%w: %d wrap authorities exceed capacity %d", runtime.ErrInvalidParam, len(keys), WrapAuthorityCapacity)
	}
	for i, key := range keys {
		if key.IsZero() {
			return w, fmt.Errorf("%w: empty wrap authority at %d", runtime.ErrInvalidParam, i)
		}
		if w.IndexOf(key) >= 0 {
			return w, fmt.Errorf("%w: duplicate wrap authority %s", runtime.ErrInvalidParam, key)
		}
		w[i] = AuthoritySlot{Occupied: true, Key: key}
	}
	return w, nil
}

// IndexOf returns the slot holding key, or -1.
func (w *WrapAuthorities) IndexOf(key solana.PublicKey) int {
	for i, slot := range w {
		if slot.Occupied && slot.Key.Equals(key) {
			return i
		}
	}
	return -1
}

func (w *WrapAuthorities) Contains(key solana.PublicKey) bool {
	return w.IndexOf(key) >= 0
}

// Keys lists the occupied slots in order.
func (w *WrapAuthorities) Keys() []solana.PublicKey {
	var out []solana.PublicKey
	for _, slot := range w {
		if slot.Occupied {
			out = append(out, slot.Key)
		}
	}
	return out
}

// Set writes key into slot index. The zero key empties the slot; a key held
// by another slot is rejected.
func (w *WrapAuthorities) Set(index int, key solana.PublicKey) error {
	if index < 0 || index >= WrapAuthorityCapacity {
		return fmt.Errorf("%w: wrap authority index %d", runtime.ErrInvalidParam, index)
	}
	if key.IsZero() {
		w[index] = AuthoritySlot{}
		return nil
	}
	if at := w.IndexOf(key); at >= 0 && at != index {
		return fmt.Errorf("%w: %s already holds slot %d", runtime.ErrInvalidParam, key, at)
	}
	w[index] = AuthoritySlot{Occupied: true, Key: key}
	return nil
}

// YieldVariant selects how the extension treats yield accrued by the vault.
type YieldVariant uint8

// NoYield keeps all vault yield as protocol fees, skimmed by claim_fees.
const NoYield YieldVariant = 0

type YieldConfig struct {
	Variant YieldVariant
}

// Global is the extension singleton.
type Global struct {
	Admin                solana.PublicKey
	MMint                solana.PublicKey
	ExtMint              solana.PublicKey
	MEarnGlobalAccount   solana.PublicKey
	Bump                 uint8
	MVaultBump           uint8
	ExtMintAuthorityBump uint8
	WrapAuthorities      WrapAuthorities
	YieldConfig          YieldConfig
}

func GetGlobalPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(GlobalSeed),
		},
		ProgramID,
	)
}

// GetMVaultPDA returns the program address owning the vault token accounts.
func GetMVaultPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(MVaultSeed),
		},
		ProgramID,
	)
}

// GetMintAuthorityPDA returns the program address that must hold the mint
// authority of the derivative mint.
func GetMintAuthorityPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(MintAuthoritySeed),
		},
		ProgramID,
	)
}

// GetVaultTokenAccount returns the vault's associated token account for a
// base mint under tokenProgram.
func GetVaultTokenAccount(mMint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	vault, _, err := GetMVaultPDA()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to get m vault PDA: %w", err)
	}
	ata, _, err := token.AssociatedAddress(vault, mMint, tokenProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive vault token account: %w", err)
	}
	return ata, nil
}

func DecodeGlobal(data []byte) (*Global, error) {
	var g Global
	if err := runtime.UnmarshalAccount(globalAccountName, data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
