package earn

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"solana-m/merkle"
	"solana-m/runtime"
)

func newInstruction(name string, args interface{}, accounts ...*solana.AccountMeta) (solana.Instruction, error) {
	data, err := runtime.EncodeInstruction(name, args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

func globalMeta() (*solana.AccountMeta, error) {
	global, _, err := GetGlobalPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get global PDA: %w", err)
	}
	return solana.Meta(global).WRITE(), nil
}

func NewInitializeInstruction(admin, mint solana.PublicKey, args InitializeArgs) (solana.Instruction, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	return newInstruction("initialize", &args,
		solana.Meta(admin).WRITE().SIGNER(),
		global,
		solana.Meta(mint),
	)
}

func NewPropagateIndexInstruction(signer, mint solana.PublicKey, index uint64, root merkle.Hash) (solana.Instruction, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	return newInstruction("propagate_index",
		&PropagateIndexArgs{Index: index, EarnerMerkleRoot: root},
		solana.Meta(signer).SIGNER(),
		global,
		solana.Meta(mint),
	)
}

func earnerMetas(signer, tokenAccount solana.PublicKey) ([]*solana.AccountMeta, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	earner, _, err := GetEarnerPDA(tokenAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to get earner PDA: %w", err)
	}
	return []*solana.AccountMeta{
		solana.Meta(signer).WRITE().SIGNER(),
		global,
		solana.Meta(tokenAccount),
		solana.Meta(earner).WRITE(),
	}, nil
}

func NewAddRegistrarEarnerInstruction(signer, tokenAccount solana.PublicKey, proof []merkle.ProofElement) (solana.Instruction, error) {
	metas, err := earnerMetas(signer, tokenAccount)
	if err != nil {
		return nil, err
	}
	return newInstruction("add_registrar_earner", &AddRegistrarEarnerArgs{Proof: proof}, metas...)
}

func NewRemoveRegistrarEarnerInstruction(signer, tokenAccount solana.PublicKey, neighbors []solana.PublicKey, proofs [][]merkle.ProofElement) (solana.Instruction, error) {
	metas, err := earnerMetas(signer, tokenAccount)
	if err != nil {
		return nil, err
	}
	return newInstruction("remove_registrar_earner",
		&RemoveRegistrarEarnerArgs{Neighbors: neighbors, Proofs: proofs},
		metas...,
	)
}

func NewClaimForInstruction(earnAuthority, mint, tokenAccount solana.PublicKey, snapshotBalance uint64) (solana.Instruction, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	tokenAuthority, _, err := GetTokenAuthorityPDA()
	if err != nil {
		return nil, fmt.Errorf("failed to get token authority PDA: %w", err)
	}
	earner, _, err := GetEarnerPDA(tokenAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to get earner PDA: %w", err)
	}
	return newInstruction("claim_for", &ClaimForArgs{SnapshotBalance: snapshotBalance},
		solana.Meta(earnAuthority).SIGNER(),
		global,
		solana.Meta(mint).WRITE(),
		solana.Meta(tokenAuthority),
		solana.Meta(tokenAccount).WRITE(),
		solana.Meta(earner).WRITE(),
	)
}

func NewCompleteClaimsInstruction(earnAuthority solana.PublicKey) (solana.Instruction, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	return newInstruction("complete_claims", nil,
		solana.Meta(earnAuthority).SIGNER(),
		global,
	)
}

func NewSetEarnAuthorityInstruction(admin, newEarnAuthority solana.PublicKey) (solana.Instruction, error) {
	global, err := globalMeta()
	if err != nil {
		return nil, err
	}
	return newInstruction("set_earn_authority",
		&SetEarnAuthorityArgs{NewEarnAuthority: newEarnAuthority},
		solana.Meta(admin).SIGNER(),
		global,
	)
}
