// Package earn implements the earn registry: the global rate index, the
// merkle committed set of earners and the claim cycle that mints yield to
// them.
package earn

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/merkle"
	"solana-m/runtime"
)

var ProgramID = solana.MustPublicKeyFromBase58("MzeRokYa9o1ZikH6XHRiSS5nD8mNjZyHpLCBRTBSY4c")

const (
	GlobalSeed         = "global"
	EarnerSeed         = "earner"
	TokenAuthoritySeed = "token_authority"

	globalAccountName = "EarnGlobal"
	earnerAccountName = "Earner"
)

// IndexScale is the fixed point scale of the rate index; an index of
// IndexScale means a multiplier of one.
const IndexScale uint64 = 1_000_000_000_000

// Global is the registry singleton.
type Global struct {
	Admin              solana.PublicKey
	EarnAuthority      solana.PublicKey
	PortalAuthority    solana.PublicKey
	Mint               solana.PublicKey
	EarnerMerkleRoot   merkle.Hash
	Index              uint64
	Timestamp          int64
	ClaimCooldown      uint64
	MaxYield           uint64
	DistributedYield   uint64
	ClaimComplete      bool
	Bump               uint8
	TokenAuthorityBump uint8
}

// Earner records an authorized token account and the index it last claimed
// at.
type Earner struct {
	User               solana.PublicKey
	UserTokenAccount   solana.PublicKey
	LastClaimIndex     uint64
	LastClaimTimestamp int64
	Bump               uint8
}

// GetGlobalPDA returns the address of the registry singleton.
func GetGlobalPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(GlobalSeed),
		},
		ProgramID,
	)
}

// GetEarnerPDA returns the earner record address of a token account.
func GetEarnerPDA(tokenAccount solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(EarnerSeed),
			tokenAccount[:],
		},
		ProgramID,
	)
}

// GetTokenAuthorityPDA returns the program address that must hold the mint
// authority of the registry mint.
func GetTokenAuthorityPDA() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			[]byte(TokenAuthoritySeed),
		},
		ProgramID,
	)
}

// EarnerLeaf is the merkle leaf committing to a token account.
func EarnerLeaf(tokenAccount solana.PublicKey) merkle.Hash {
	return merkle.LeafHash(tokenAccount[:])
}

// EarnerTree builds the earner tree over token accounts.
func EarnerTree(accounts []solana.PublicKey) *merkle.Tree {
	leaves := make([]merkle.Hash, len(accounts))
	for i, a := range accounts {
		leaves[i] = EarnerLeaf(a)
	}
	return merkle.NewTree(leaves)
}

// ExclusionProof returns the arguments of remove_registrar_earner proving
// that tokenAccount is not among accounts: every account of the tree, in
// tree order, with its inclusion proof.
func ExclusionProof(accounts []solana.PublicKey, tokenAccount solana.PublicKey) ([]solana.PublicKey, [][]merkle.ProofElement, error) {
	byLeaf := make(map[merkle.Hash]solana.PublicKey, len(accounts))
	for _, a := range accounts {
		byLeaf[EarnerLeaf(a)] = a
	}
	leaves, proofs, err := EarnerTree(accounts).ExclusionProof(EarnerLeaf(tokenAccount))
	if err != nil {
		return nil, nil, err
	}
	neighbors := make([]solana.PublicKey, len(leaves))
	for i, leaf := range leaves {
		neighbors[i] = byLeaf[leaf]
	}
	return neighbors, proofs, nil
}

func DecodeGlobal(data []byte) (*Global, error) {
	var g Global
	if err := runtime.UnmarshalAccount(globalAccountName, data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func DecodeEarner(data []byte) (*Earner, error) {
	var e Earner
	if err := runtime.UnmarshalAccount(earnerAccountName, data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// loadGlobal checks that address is the registry singleton and decodes it.
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
	return &g, nil
}

func saveGlobal(ctx *runtime.Context, address solana.PublicKey, g *Global) error {
	return ctx.Save(address, globalAccountName, g)
}

// checkEarnerAddress verifies that address is the earner record of
// tokenAccount.
func checkEarnerAddress(address, tokenAccount solana.PublicKey) (uint8, error) {
	expected, bump, err := GetEarnerPDA(tokenAccount)
	if err != nil {
		return 0, fmt.Errorf("failed to get earner PDA: %w", err)
	}
	if !address.Equals(expected) {
		return 0, fmt.Errorf("%w: earner %s", runtime.ErrInvalidAccount, address)
	}
	return bump, nil
}

// loadEarner decodes the earner record, failing with ErrNotEarning when the
// token account has none.
func loadEarner(ctx *runtime.Context, address, tokenAccount solana.PublicKey) (*Earner, error) {
	if _, err := checkEarnerAddress(address, tokenAccount); err != nil {
		return nil, err
	}
	exists, err := ctx.Exists(address)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", runtime.ErrNotEarning, tokenAccount)
	}
	var e Earner
	if err := ctx.Load(address, ProgramID, earnerAccountName, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
